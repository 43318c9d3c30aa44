// Package token issues and checks the two reservation tokens: the session
// token that guards mutations against a second tab or device, and the
// access token that hides sequential reservation ids.
package token

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const sessionRandomBytes = 16

var enc = base64.RawURLEncoding

// ErrEmptySecret is returned when a guard is built without a key.
var ErrEmptySecret = errors.New("token: empty secret")

// SessionStore persists the token of record for a reservation.
// CurrentSessionToken must only report a token while the reservation is
// TENTATIVE; ok is false otherwise.
type SessionStore interface {
	SaveSessionToken(ctx context.Context, reservationID uint64, token string) error
	CurrentSessionToken(ctx context.Context, reservationID uint64) (token string, ok bool, err error)
}

// SessionGuard implements last-write-wins session tokens.  Every Generate
// overwrites the stored token, so earlier tokens stop validating.
type SessionGuard struct {
	secret []byte
	rand   io.Reader
}

// NewSessionGuard returns a guard keyed with secret.
func NewSessionGuard(secret string) (*SessionGuard, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &SessionGuard{secret: []byte(secret), rand: rand.Reader}, nil
}

// Generate draws a fresh token for reservationID and stores it.
func (g *SessionGuard) Generate(ctx context.Context, store SessionStore, reservationID uint64) (string, error) {
	nonce := make([]byte, sessionRandomBytes)
	if _, err := io.ReadFull(g.rand, nonce); err != nil {
		return "", fmt.Errorf("session token random: %w", err)
	}
	tok := enc.EncodeToString(nonce) + ":" + enc.EncodeToString(g.sign(reservationID, nonce))
	if err := store.SaveSessionToken(ctx, reservationID, tok); err != nil {
		return "", err
	}
	return tok, nil
}

// Validate reports whether tok is well formed for reservationID and is the
// token currently on record.  Callers get false for every kind of mismatch.
func (g *SessionGuard) Validate(ctx context.Context, store SessionStore, reservationID uint64, tok string) (bool, error) {
	if !g.WellFormed(reservationID, tok) {
		return false, nil
	}
	current, ok, err := store.CurrentSessionToken(ctx, reservationID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(tok)) == 1, nil
}

// WellFormed checks the embedded signature only, without the store.
func (g *SessionGuard) WellFormed(reservationID uint64, tok string) bool {
	rawNonce, rawMAC, found := strings.Cut(tok, ":")
	if !found {
		return false
	}
	nonce, err := enc.DecodeString(rawNonce)
	if err != nil || len(nonce) != sessionRandomBytes {
		return false
	}
	mac, err := enc.DecodeString(rawMAC)
	if err != nil {
		return false
	}
	return hmac.Equal(mac, g.sign(reservationID, nonce))
}

func (g *SessionGuard) sign(reservationID uint64, nonce []byte) []byte {
	m := hmac.New(sha256.New, g.secret)
	m.Write([]byte(strconv.FormatUint(reservationID, 10)))
	m.Write([]byte{':'})
	m.Write(nonce)
	return m.Sum(nil)
}
