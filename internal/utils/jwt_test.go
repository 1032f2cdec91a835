package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	SessionTokenSecret = []byte("test-secret")

	sessionID := uuid.New()
	token, err := GenerateSessionToken(sessionID, "schema-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, err := VerifySessionToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != sessionID {
		t.Errorf("session id = %s, want %s", got, sessionID)
	}
}

func TestSessionTokenRejectsTampering(t *testing.T) {
	SessionTokenSecret = []byte("test-secret")

	token, err := GenerateSessionToken(uuid.New(), "schema-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAA"
	if _, err := VerifySessionToken(tampered); err == nil {
		t.Errorf("tampered signature accepted")
	}

	SessionTokenSecret = []byte("other-secret")
	if _, err := VerifySessionToken(token); err == nil {
		t.Errorf("token signed with a different secret accepted")
	}
}
