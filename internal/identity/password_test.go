package identity

import "testing"

func TestHashVerifyRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if !verifyPassword("correct horse battery staple", hash) {
		t.Fatal("verifyPassword should accept the original password")
	}
	if verifyPassword("wrong password", hash) {
		t.Fatal("verifyPassword should reject a wrong password")
	}
}

func TestHashIsSalted(t *testing.T) {
	a, err := hashPassword("same password")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	b, err := hashPassword("same password")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password should differ due to random salt")
	}
}
