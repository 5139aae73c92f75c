package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding and decoding functions
    "errors"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned by ParseAccessToken for any token that is
// malformed, expired, signed with another key or missing claims.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access
// tokens.  Only its SHA‑256 hash is stored in the database.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// AccessClaims are the identity claims carried by an access token.  The
// conception level and employee flag are not embedded: they change through
// admin actions and are always read from the users table.
type AccessClaims struct {
    UserID     uint64
    Role       string
    MemberCode string
}

// NewAccessToken builds and signs an HS256 JWT.  The subject is the user id
// encoded as a decimal string; role and member code travel as custom claims.
func NewAccessToken(secret string, c AccessClaims, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  strconv.FormatUint(c.UserID, 10),
        "role": c.Role,
        "mc":   c.MemberCode,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies an HS256 token and extracts its claims.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return AccessClaims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return AccessClaims{}, ErrInvalidToken
    }
    var out AccessClaims
    switch sub := mc["sub"].(type) {
    case string:
        n, err := strconv.ParseUint(sub, 10, 64)
        if err != nil {
            return AccessClaims{}, ErrInvalidToken
        }
        out.UserID = n
    case float64:
        out.UserID = uint64(sub)
    default:
        return AccessClaims{}, ErrInvalidToken
    }
    out.Role, _ = mc["role"].(string)
    out.MemberCode, _ = mc["mc"].(string)
    if out.UserID == 0 || out.Role == "" {
        return AccessClaims{}, ErrInvalidToken
    }
    return out, nil
}

// NewRefreshToken returns a cryptographically secure random token (raw) and
// its expiration time.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48) // 48 bytes -> 96 hex chars
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
