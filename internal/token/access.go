package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"strconv"
)

// AccessGuard derives a stateless token from a reservation id.  The same
// id always yields the same token for a given secret.
type AccessGuard struct {
	secret []byte
}

// NewAccessGuard returns a guard keyed with secret.
func NewAccessGuard(secret string) (*AccessGuard, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &AccessGuard{secret: []byte(secret)}, nil
}

// Generate returns the access token for reservationID.  The same id always
// yields the same token, so it can be recomputed instead of stored.
func (g *AccessGuard) Generate(reservationID uint64) string {
	return enc.EncodeToString(g.sum(reservationID))
}

// Validate recomputes the token and compares in constant time.
func (g *AccessGuard) Validate(reservationID uint64, tok string) bool {
	got, err := enc.DecodeString(tok)
	if err != nil {
		return false
	}
	return hmac.Equal(got, g.sum(reservationID))
}

func (g *AccessGuard) sum(reservationID uint64) []byte {
	m := hmac.New(sha256.New, g.secret)
	m.Write([]byte(strconv.FormatUint(reservationID, 10)))
	return m.Sum(nil)
}
