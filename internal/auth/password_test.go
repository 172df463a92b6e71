// internal/auth/password_test.go
package auth

import (
	"strings"
	"testing"
)

func TestRoomPasswordRoundTrip(t *testing.T) {
	hash, err := HashRoomPassword("room-1", "sesame")
	if err != nil {
		t.Fatalf("HashRoomPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("hash %q is not argon2id encoded", hash)
	}
	if strings.Contains(hash, "sesame") {
		t.Fatal("hash leaks the plaintext password")
	}

	ok, err := VerifyRoomPassword("room-1", "sesame", hash)
	if err != nil {
		t.Fatalf("VerifyRoomPassword: %v", err)
	}
	if !ok {
		t.Fatal("correct password rejected")
	}

	ok, err = VerifyRoomPassword("room-1", "wrong", hash)
	if err != nil {
		t.Fatalf("VerifyRoomPassword: %v", err)
	}
	if ok {
		t.Fatal("wrong password accepted")
	}
}

// TestRoomPasswordScopedToRoom verifies the room id is part of the hashed
// material: the same password in another room must not verify.
func TestRoomPasswordScopedToRoom(t *testing.T) {
	hash, err := HashRoomPassword("room-1", "sesame")
	if err != nil {
		t.Fatalf("HashRoomPassword: %v", err)
	}

	ok, err := VerifyRoomPassword("room-2", "sesame", hash)
	if err != nil {
		t.Fatalf("VerifyRoomPassword: %v", err)
	}
	if ok {
		t.Fatal("hash verified against the wrong room")
	}
}

func TestRoomPasswordSaltsDiffer(t *testing.T) {
	first, err := HashRoomPassword("room-1", "sesame")
	if err != nil {
		t.Fatalf("HashRoomPassword: %v", err)
	}
	second, err := HashRoomPassword("room-1", "sesame")
	if err != nil {
		t.Fatalf("HashRoomPassword: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password share a salt")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyRoomPassword("room-1", "sesame", "not-a-hash"); err == nil {
		t.Fatal("expected an error for a malformed encoded hash")
	}
}
