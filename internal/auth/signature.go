// Package auth decides whether an inbound bridge call is trusted. Every
// request except the health check carries an HMAC-SHA256 signature computed
// over its remaining parameters, keyed by the 32-character store key.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
)

const (
	// SignParam is the request field carrying the signature.
	SignParam = "a2c_sign"

	// HealthCheckAction is accepted without a signature.
	HealthCheckAction = "checkbridge"

	// currencySwitcherParam is injected by a currency-switcher plugin into
	// every form post and is excluded from signing on both sides.
	currencySwitcherParam = "aelia_cs_currency"
)

var (
	ErrNotInstalled = errors.New("bridge is not installed")
	ErrNoStoreKey   = errors.New("store key is not configured")

	// ErrDecoyToken signals the reserved `token` honeypot field was present.
	// Legitimate clients never send it.
	ErrDecoyToken = errors.New("ERROR: Field token is not correct")

	ErrNoSignature  = errors.New("ERROR: Signature is not correct")
	ErrBadSignature = errors.New("ERROR: Signature is not correct")
)

// Sign computes the request signature: all parameters except the signature
// itself, sorted lexicographically by key, URL-encoded as a query string,
// HMAC-SHA256 with the store key, hex-encoded.
func Sign(params map[string]string, key string) string {
	vals := url.Values{}
	for k, v := range params {
		if k == SignParam || k == currencySwitcherParam {
			continue
		}
		vals.Set(k, v)
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(vals.Encode())) // Encode sorts by key
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticator validates inbound requests against the shared store key.
// The check is stateless and recomputed per request.
type Authenticator struct {
	key       string
	installed bool
}

func New(key string, installed bool) *Authenticator {
	return &Authenticator{key: key, installed: installed}
}

// Verify returns nil for trusted requests. The health check action is exempt;
// a present `token` field is always rejected; anything else needs an exact
// signature match.
func (a *Authenticator) Verify(action string, params map[string]string) error {
	if !a.installed {
		return ErrNotInstalled
	}

	if action == HealthCheckAction {
		return nil
	}

	if _, ok := params["token"]; ok {
		return ErrDecoyToken
	}

	if a.key == "" {
		return ErrNoStoreKey
	}

	sign, ok := params[SignParam]
	if !ok || sign == "" {
		return ErrNoSignature
	}

	if Sign(params, a.key) != sign {
		return ErrBadSignature
	}

	return nil
}
