package utils

import (
    "errors"
    "regexp"
    "testing"
    "time"
)

func TestNewMemberCode(t *testing.T) {
    re := regexp.MustCompile(`^RR-26-[A-Z2-9]{4}$`)
    now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
    for i := 0; i < 50; i++ {
        code, err := NewMemberCode(now)
        if err != nil {
            t.Fatal(err)
        }
        if len(code) != 10 || !re.MatchString(code) {
            t.Fatalf("unexpected member code %q", code)
        }
    }
}

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", AccessClaims{UserID: 42, Role: "PRO", MemberCode: "RR-26-ABCD"}, 5)
    if err != nil {
        t.Fatal(err)
    }
    claims, err := ParseAccessToken("s3cret", tok.Token)
    if err != nil {
        t.Fatalf("parse failed: %v", err)
    }
    if claims.UserID != 42 || claims.Role != "PRO" || claims.MemberCode != "RR-26-ABCD" {
        t.Errorf("unexpected claims %+v", claims)
    }
    if _, err := ParseAccessToken("other", tok.Token); !errors.Is(err, ErrInvalidToken) {
        t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
    }
}

func TestAccessTokenExpired(t *testing.T) {
    tok, err := NewAccessToken("s3cret", AccessClaims{UserID: 1, Role: "USER"}, -1)
    if err != nil {
        t.Fatal(err)
    }
    if _, err := ParseAccessToken("s3cret", tok.Token); !errors.Is(err, ErrInvalidToken) {
        t.Errorf("expected expired token to be rejected, got %v", err)
    }
}

func TestPasswordPolicy(t *testing.T) {
    if err := CheckPasswordPolicy("short"); !errors.Is(err, ErrWeakPassword) {
        t.Errorf("expected ErrWeakPassword, got %v", err)
    }
    if err := CheckPasswordPolicy("long enough"); err != nil {
        t.Errorf("unexpected error %v", err)
    }
    hash, err := HashPassword("long enough", 4)
    if err != nil {
        t.Fatal(err)
    }
    if !VerifyPassword(hash, "long enough") || VerifyPassword(hash, "wrong one") {
        t.Error("bcrypt verification mismatch")
    }
}
