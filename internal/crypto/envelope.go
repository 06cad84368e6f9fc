// Package crypto implements the wire envelope wrapping every bridge request and
// response payload: a reversible letter-substitution plus base64 when no key
// material is configured, or a chunked RSA-OAEP hybrid over zlib-compressed
// payloads when it is.
package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"github.com/cristalhq/base64"
	"github.com/klauspost/compress/zlib"
)

var (
	ErrEncrypt    = errors.New("ERROR_ENCRYPT")
	ErrDecrypt    = errors.New("ERROR_DECRYPT")
	ErrInvalidHex = errors.New("ERROR_INVALID_HEXDECIMAL_VALUE")
)

const (
	plainAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	customAlphabet = "ZYXWVUTSRQPONMLKJIHGFEDCBAzyxwvutsrqponmlkjihgfedcba9876543210+/"

	// RSA-OAEP with SHA-1: 2*20 hash bytes + 2 bytes padding framing.
	oaepOverhead = 42
)

var swapTable [256]byte

func init() {
	for i := range swapTable {
		swapTable[i] = byte(i)
	}
	for i := 0; i < len(plainAlphabet); i++ {
		swapTable[plainAlphabet[i]] = customAlphabet[i]
	}
}

// SwapLetters maps the base64 alphabet onto its reversed counterpart. The
// mapping is an involution: applying it twice yields the input.
func SwapLetters(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = swapTable[s[i]]
	}
	return string(out)
}

// Envelope transforms payloads between in-process bytes and wire-safe strings.
// Callers must use the same mode for requests and responses of one deployment.
type Envelope struct {
	pub   *rsa.PublicKey
	priv  *rsa.PrivateKey
	keyID string
}

// NewPlain returns an envelope in obfuscation-only mode.
func NewPlain() *Envelope {
	return &Envelope{}
}

// NewRSA returns an envelope in encryption mode. priv may be nil, in which
// case Decode is unavailable and returns ErrDecrypt.
func NewRSA(pub *rsa.PublicKey, priv *rsa.PrivateKey, keyID string) *Envelope {
	return &Envelope{pub: pub, priv: priv, keyID: keyID}
}

// Enabled reports whether encryption mode is active.
func (e *Envelope) Enabled() bool {
	return e.pub != nil
}

func (e *Envelope) KeyID() string {
	return e.keyID
}

// Encode turns data into its wire representation. In encryption mode the
// payload is compressed, encrypted chunk by chunk with the public key and
// hex-encoded; a failing chunk aborts the whole operation.
func (e *Envelope) Encode(data []byte) (string, error) {
	if !e.Enabled() {
		return SwapLetters(base64.StdEncoding.EncodeToString(data)), nil
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncrypt, err)
	}

	chunkSize := e.pub.Size() - oaepOverhead
	plain := compressed.Bytes()
	var out []byte

	for len(plain) > 0 {
		n := chunkSize
		if n > len(plain) {
			n = len(plain)
		}
		encrypted, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, e.pub, plain[:n], nil)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEncrypt, err)
		}
		out = append(out, encrypted...)
		plain = plain[n:]
	}

	return hex.EncodeToString(out), nil
}

// Decode is the inverse of Encode. Encryption mode requires the private key.
func (e *Envelope) Decode(data string) ([]byte, error) {
	if !e.Enabled() {
		return base64.StdEncoding.DecodeString(SwapLetters(data))
	}

	raw, err := hex.DecodeString(data)
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidHex
	}

	if e.priv == nil {
		return nil, fmt.Errorf("%w: private key is not configured", ErrDecrypt)
	}

	blockSize := e.priv.Size()
	var compressed []byte

	for len(raw) > 0 {
		n := blockSize
		if n > len(raw) {
			n = len(raw)
		}
		decrypted, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, e.priv, raw[:n], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		compressed = append(compressed, decrypted...)
		raw = raw[n:]
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return out, nil
}

// LoadPublicKey parses a PEM-encoded PKIX RSA public key.
func LoadPublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block in public key data")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return rsaPub, nil
}

// LoadPrivateKey parses a PEM-encoded PKCS#1 or PKCS#8 RSA private key.
func LoadPrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block in private key data")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return rsaKey, nil
}
