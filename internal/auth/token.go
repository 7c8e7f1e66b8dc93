package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenFormat  = errors.New("invalid token format")
	ErrTokenSig     = errors.New("invalid token signature")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenSession = errors.New("session id mismatch")
)

// MintSessionToken builds a bearer token binding a worker to one session.
// Format: base64url(session_id + "." + exp_unix + "." + hex(hmac_sha256(secret, session_id+"."+exp)))
func MintSessionToken(secret, sessionID string, expUnix int64) string {
	msg := sessionID + "." + strconv.FormatInt(expUnix, 10)
	raw := msg + "." + sign(secret, msg)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ValidateSessionToken checks signature, session binding, and expiry (with
// skew tolerance past exp). Returns the embedded session id and expiry.
func ValidateSessionToken(secret, token, expectSessionID string, now time.Time, skewSeconds int) (string, int64, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", 0, ErrTokenFormat
	}
	parts := strings.Split(string(b), ".")
	if len(parts) != 3 {
		return "", 0, ErrTokenFormat
	}
	sid, expStr, sigHex := parts[0], parts[1], parts[2]

	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", 0, ErrTokenFormat
	}
	if expectSessionID != "" && sid != expectSessionID {
		return "", 0, ErrTokenSession
	}

	want := sign(secret, sid+"."+expStr)
	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return "", 0, ErrTokenFormat
	}
	wantRaw, _ := hex.DecodeString(want)
	if !hmac.Equal(wantRaw, got) {
		return "", 0, ErrTokenSig
	}

	if now.Unix() > exp+int64(skewSeconds) {
		return "", 0, ErrTokenExpired
	}
	return sid, exp, nil
}

func sign(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
