package validation

import (
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "valid email", email: "parent@example.com"},
		{name: "valid with plus", email: "parent+tag@example.com"},
		{name: "empty", email: "", wantErr: true},
		{name: "missing domain", email: "parent@", wantErr: true},
		{name: "missing at", email: "parent.example.com", wantErr: true},
		{name: "whitespace only", email: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("longenough"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
	if err := ValidatePassword("short"); err == nil {
		t.Error("short password accepted")
	}
	if err := ValidatePassword(""); err == nil {
		t.Error("empty password accepted")
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Sam"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateName("S"); err == nil {
		t.Error("single character name accepted")
	}
	if err := ValidateName("  "); err == nil {
		t.Error("whitespace name accepted")
	}
}

func TestValidateMessageBody(t *testing.T) {
	if err := ValidateMessageBody("hi there"); err != nil {
		t.Errorf("valid body rejected: %v", err)
	}
	if err := ValidateMessageBody("  "); err == nil {
		t.Error("blank body accepted")
	}
	if err := ValidateMessageBody(strings.Repeat("x", 4001)); err == nil {
		t.Error("oversized body accepted")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Field: "body", Message: "message body is required"}
	if err.Error() != "body: message body is required" {
		t.Errorf("Error() = %v", err.Error())
	}
}
