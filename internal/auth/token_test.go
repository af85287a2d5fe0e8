package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func TestIssueAndParse(t *testing.T) {
	token, err := IssueToken("panel-7", "control", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "panel-7" {
		t.Errorf("subject = %q, want panel-7", claims.Subject)
	}
	if claims.Scope != "control" {
		t.Errorf("scope = %q, want control", claims.Scope)
	}
	if claims.ID == "" {
		t.Error("token has no JTI")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := IssueToken("panel-7", "control", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	if _, err := ParseToken(token, "some-other-secret"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParse_Expired(t *testing.T) {
	token, err := IssueToken("panel-7", "control", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	if _, err := ParseToken(token, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := ParseToken("not.a.token", testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}
