package security

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Walk9&fit")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Walk9&fit" {
		t.Fatalf("expected hash to differ from plaintext")
	}
	if !VerifyPassword(hash, "Walk9&fit") {
		t.Fatalf("expected matching password to verify")
	}
	if VerifyPassword(hash, "Walk9&fix") {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	if VerifyPassword("not-a-bcrypt-hash", "anything") {
		t.Fatalf("expected invalid hash to fail verification")
	}
}
