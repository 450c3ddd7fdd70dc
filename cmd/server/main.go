package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"famlink/internal/config"
	"famlink/internal/database"
	"famlink/internal/handlers"
	"famlink/internal/repository"
	"famlink/internal/security"
	"famlink/internal/service"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	blockRepo := repository.NewBlockRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	flagRepo := repository.NewFlagRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, familyRepo, cfg.SessionDuration)
	familyService := service.NewFamilyService(familyRepo, childRepo, cfg.ChildSessionDuration)
	identityService := service.NewIdentityService(userRepo, childRepo, familyRepo)
	relationshipService := service.NewRelationshipService(familyRepo, childRepo)
	blockService := service.NewBlockService(blockRepo, relationshipService)
	connectionService := service.NewConnectionService(connectionRepo, relationshipService)
	flagService := service.NewFlagService(flagRepo, relationshipService)
	permissionService := service.NewPermissionService(relationshipService, blockService, connectionService, flagService)
	messagingService := service.NewMessagingService(db, permissionService, relationshipService, conversationRepo)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	if emailService.IsEnabled() {
		log.Println("Email notifications enabled via Amazon SES")
	} else {
		log.Println("Email notifications disabled (SES_FROM_EMAIL not set)")
	}

	invitationService := service.NewInvitationService(invitationRepo, familyRepo, emailService)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}

	// Initialize handlers
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	loginLimiter := security.NewRateLimiter(10, time.Minute)
	middleware := handlers.NewMiddleware(authService, familyService, loginLimiter, csrf)
	authHandler := handlers.NewAuthHandler(authService, csrf, oauthProviders, cfg.OAuthRedirectBaseURL)
	familyHandler := handlers.NewFamilyHandler(familyService, invitationService, csrf)
	blockHandler := handlers.NewBlockHandler(blockService, identityService, emailService)
	connectionHandler := handlers.NewConnectionHandler(connectionService)
	flagHandler := handlers.NewFlagHandler(flagService, familyService)
	messageHandler := handlers.NewMessageHandler(messagingService, permissionService, identityService)

	// Setup routes
	mux := http.NewServeMux()

	// Public auth routes
	mux.HandleFunc("POST /auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /auth/me", middleware.RequireAuth(authHandler.Me))
	mux.HandleFunc("GET /auth/providers", authHandler.ListOAuthProviders)
	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)

	// Family routes
	mux.HandleFunc("POST /families", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.CreateFamily)))
	mux.HandleFunc("GET /families/{id}", middleware.RequireAuth(familyHandler.GetFamily))
	mux.HandleFunc("GET /me/families", middleware.RequireAuth(familyHandler.ListMemberships))
	mux.HandleFunc("GET /families/{id}/members", middleware.RequireAuth(familyHandler.ListMembers))
	mux.HandleFunc("POST /families/join", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.JoinFamily)))
	mux.HandleFunc("POST /families/{id}/leave", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.LeaveFamily)))
	mux.HandleFunc("POST /families/{id}/members/{userId}/suspend", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.SuspendMember)))
	mux.HandleFunc("POST /families/{id}/members/{userId}/reinstate", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.ReinstateMember)))

	// Child profile routes
	mux.HandleFunc("POST /families/{id}/children", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.CreateChild)))
	mux.HandleFunc("GET /families/{id}/children", middleware.RequireAuth(familyHandler.ListChildren))
	mux.HandleFunc("POST /families/{id}/children/{childId}", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.AddChildToFamily)))
	mux.HandleFunc("POST /children/{id}/regenerate-password", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.RegenerateChildPassword)))

	// Invitation routes
	mux.HandleFunc("POST /families/{id}/invitations", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.InviteMember)))
	mux.HandleFunc("GET /invitations/{code}", familyHandler.GetInvitation)
	mux.HandleFunc("POST /invitations/accept", middleware.RequireAuth(middleware.CSRFProtect(familyHandler.AcceptInvitation)))

	// Feature flag routes
	mux.HandleFunc("PUT /families/{id}/flags", middleware.RequireAuth(middleware.CSRFProtect(flagHandler.SetFlag)))
	mux.HandleFunc("GET /families/{id}/flags", middleware.RequireAuth(flagHandler.ListFlags))

	// Connection routes
	mux.HandleFunc("POST /child/connections", middleware.RequireChildAuth(middleware.CSRFProtect(connectionHandler.RequestConnection)))
	mux.HandleFunc("GET /child/connections", middleware.RequireChildAuth(connectionHandler.ListMyConnections))
	mux.HandleFunc("POST /connections/{id}/approve", middleware.RequireAuth(middleware.CSRFProtect(connectionHandler.ApproveConnection)))
	mux.HandleFunc("POST /connections/{id}/reject", middleware.RequireAuth(middleware.CSRFProtect(connectionHandler.RejectConnection)))
	mux.HandleFunc("POST /connections/{id}/block", middleware.RequireAuth(middleware.CSRFProtect(connectionHandler.BlockConnection)))
	mux.HandleFunc("GET /families/{id}/connections/pending", middleware.RequireAuth(connectionHandler.ListPendingForFamily))

	// Child session routes
	mux.HandleFunc("POST /child/login", middleware.RateLimit(familyHandler.ChildLogin))
	mux.HandleFunc("POST /child/logout", familyHandler.ChildLogout)
	mux.HandleFunc("GET /child/me", middleware.RequireChildAuth(familyHandler.ChildMe))

	// Block routes
	mux.HandleFunc("POST /child/blocks", middleware.RequireChildAuth(middleware.CSRFProtect(blockHandler.SetBlock)))
	mux.HandleFunc("POST /child/blocks/clear", middleware.RequireChildAuth(middleware.CSRFProtect(blockHandler.ClearBlock)))
	mux.HandleFunc("GET /child/blocks", middleware.RequireChildAuth(blockHandler.ListBlocks))

	// Messaging routes, registered once per session kind
	registerMessaging := func(prefix string, wrap func(http.HandlerFunc) http.HandlerFunc) {
		mux.HandleFunc("POST "+prefix+"/messages", wrap(middleware.CSRFProtect(messageHandler.SendMessage)))
		mux.HandleFunc("POST "+prefix+"/calls", wrap(middleware.CSRFProtect(messageHandler.PlaceCall)))
		mux.HandleFunc("POST "+prefix+"/calls/{id}", wrap(middleware.CSRFProtect(messageHandler.CompleteCall)))
		mux.HandleFunc("GET "+prefix+"/conversations", wrap(messageHandler.ListConversations))
		mux.HandleFunc("GET "+prefix+"/conversations/{id}/messages", wrap(messageHandler.ListMessages))
		mux.HandleFunc("GET "+prefix+"/conversations/{id}/calls", wrap(messageHandler.ListCalls))
		mux.HandleFunc("GET "+prefix+"/permissions/check", wrap(messageHandler.CheckPermission))
	}
	registerMessaging("", middleware.RequireAuth)
	registerMessaging("/child", middleware.RequireChildAuth)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background cleanup of expired sessions and invitations
	go cleanupExpired(authService, familyService, invitationService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// cleanupExpired periodically removes expired sessions and invitations
func cleanupExpired(authService *service.AuthService, familyService *service.FamilyService, invitationService *service.InvitationService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		if err := familyService.CleanupExpiredChildSessions(); err != nil {
			log.Printf("Error cleaning up expired child sessions: %v", err)
		}
		if err := invitationService.CleanupExpiredInvitations(); err != nil {
			log.Printf("Error cleaning up expired invitations: %v", err)
		}
	}
}
