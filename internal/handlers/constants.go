package handlers

const (
	SessionCookieName      = "session_id"
	ChildSessionCookieName = "child_session_id"

	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrPermissionDenied    = "Permission denied"
	ErrInternalServerError = "Internal server error"
)
