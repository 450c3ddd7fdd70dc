package credentials

import (
	"strings"
	"testing"
)

func TestGenerateChildUsername(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		username, err := GenerateChildUsername()
		if err != nil {
			t.Fatalf("GenerateChildUsername: %v", err)
		}
		parts := strings.Split(username, "-")
		if len(parts) != 2 {
			t.Fatalf("username %q not in adjective-noun format", username)
		}
		seen[username] = true
	}
	// With 1600 combinations, 50 draws should produce more than one value
	if len(seen) < 2 {
		t.Error("usernames show no variation")
	}
}

func TestGenerateChildPassword(t *testing.T) {
	passwords := make(map[string]bool)
	for i := 0; i < 100; i++ {
		password, err := GenerateChildPassword()
		if err != nil {
			t.Fatalf("GenerateChildPassword: %v", err)
		}
		if len(password) != 4 {
			t.Errorf("password length %d, want 4", len(password))
		}
		passwords[password] = true
	}
	if len(passwords) < 2 {
		t.Error("passwords show no variation")
	}
}
