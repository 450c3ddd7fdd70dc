package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Error("hash should not equal plaintext")
	}

	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("correct password should verify")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestCheckPasswordInvalidHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Error("invalid hash should not verify")
	}
}

func TestGenerateSessionID(t *testing.T) {
	a := GenerateSessionID()
	b := GenerateSessionID()
	if a == "" || b == "" {
		t.Fatal("session ids should not be empty")
	}
	if a == b {
		t.Error("session ids should be unique")
	}
}
