package afip

import "time"

// Token holds the WSAA credential pair for one (cuit, service, environment).
type Token struct {
	Token          string    `json:"token"`
	Sign           string    `json:"sign"`
	GenerationTime time.Time `json:"generationTime"`
	ExpirationTime time.Time `json:"expirationTime"`
}

// Valid reports whether the token expiration is still strictly in the future.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.Token == "" || t.Sign == "" {
		return false
	}
	if t.ExpirationTime.IsZero() {
		return false
	}
	return t.ExpirationTime.After(now)
}

// RemainingValidity returns the time left until expiration, never negative.
func (t *Token) RemainingValidity(now time.Time) time.Duration {
	if t == nil || t.ExpirationTime.IsZero() {
		return 0
	}
	d := t.ExpirationTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
