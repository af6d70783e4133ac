package models

import "testing"

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("Test User", "test@example.com", "password123")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.Role != ROLE_USER || u.Status != STATUS_ACTIVE {
		t.Errorf("unexpected defaults: role=%s status=%s", u.Role, u.Status)
	}
	if u.SubscriptionStatus != SubscriptionStatusInactive {
		t.Errorf("new user subscription status = %s, want inactive", u.SubscriptionStatus)
	}
	if u.Password == "password123" {
		t.Error("password stored in plaintext")
	}
	if !u.CheckPassword("password123") {
		t.Error("CheckPassword rejected the correct password")
	}
	if u.CheckPassword("wrong") {
		t.Error("CheckPassword accepted a wrong password")
	}
}

func TestCreateUserValidation(t *testing.T) {
	if _, err := CreateUser("ab", "test@example.com", "password123"); err == nil {
		t.Error("expected error for too-short name")
	}
	if _, err := CreateUser("Test User", "not-an-email", "password123"); err == nil {
		t.Error("expected error for invalid email")
	}
	if _, err := CreateUser("Test User", "test@example.com", "short"); err == nil {
		t.Error("expected error for too-short password")
	}
}

func TestGenerateAPIToken(t *testing.T) {
	token, hash, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken failed: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}
	if token == hash {
		t.Error("plaintext token equals its hash")
	}
	if HashAPIToken(token) != hash {
		t.Error("HashAPIToken is not deterministic for the same token")
	}

	token2, _, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken failed: %v", err)
	}
	if token == token2 {
		t.Error("two generated tokens are identical")
	}
}

func TestIsAdmin(t *testing.T) {
	u := &User{Role: ROLE_USER}
	if u.IsAdmin() {
		t.Error("regular user reported as admin")
	}
	u.Role = ROLE_ADMIN
	if !u.IsAdmin() {
		t.Error("admin not recognized")
	}
}
