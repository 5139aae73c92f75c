package utils

import (
    "crypto/rand"
    "fmt"
    "time"
)

// memberCodeAlphabet omits characters that are easily confused when a
// passport code is read aloud or typed from a printed certificate.
const memberCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewMemberCode returns a passport code of the form RR-YY-XXXX where YY is
// the two-digit registration year and XXXX four random characters.
func NewMemberCode(now time.Time) (string, error) {
    buf := make([]byte, 4)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    suffix := make([]byte, 4)
    for i, b := range buf {
        suffix[i] = memberCodeAlphabet[int(b)%len(memberCodeAlphabet)]
    }
    return fmt.Sprintf("RR-%02d-%s", now.Year()%100, suffix), nil
}
