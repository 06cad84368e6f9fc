package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapLettersInvolution(t *testing.T) {
	inputs := []string{
		"",
		"ABCxyz019+/",
		"SGVsbG8gd29ybGQ=",
		"with = padding ==",
	}

	for _, in := range inputs {
		assert.Equal(t, in, SwapLetters(SwapLetters(in)))
	}
}

func TestSwapLettersMapping(t *testing.T) {
	assert.Equal(t, "Z", SwapLetters("A"))
	assert.Equal(t, "a", SwapLetters("z"))
	assert.Equal(t, "9", SwapLetters("0"))
	assert.Equal(t, "+/", SwapLetters("+/"))
	// characters outside the alphabet pass through
	assert.Equal(t, "=", SwapLetters("="))
}

func TestPlainRoundTrip(t *testing.T) {
	e := NewPlain()

	payloads := [][]byte{
		[]byte(""),
		[]byte("SELECT * FROM wp_posts"),
		[]byte(strings.Repeat("x", 10000)),
		{0x00, 0xff, 0x7f, 0x80},
	}

	for _, p := range payloads {
		encoded, err := e.Encode(p)
		require.NoError(t, err)

		decoded, err := e.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, p, decoded)
	}
}

func TestRSARoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	e := NewRSA(&key.PublicKey, key, "test-key")
	assert.True(t, e.Enabled())

	// payload larger than one OAEP chunk to exercise chunking
	payload := []byte(strings.Repeat("INSERT INTO wp_postmeta VALUES (1, 'k', 'v');", 50))

	encoded, err := e.Encode(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "INSERT")

	decoded, err := e.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestRSARejectsForeignCiphertext(t *testing.T) {
	keyA, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyB, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	sender := NewRSA(&keyA.PublicKey, keyA, "a")
	receiver := NewRSA(&keyB.PublicKey, keyB, "b")

	encoded, err := sender.Encode([]byte("secret"))
	require.NoError(t, err)

	_, err = receiver.Decode(encoded)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestRSADecodeInvalidHex(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	e := NewRSA(&key.PublicKey, key, "test-key")

	_, err = e.Decode("not hexadecimal!")
	assert.ErrorIs(t, err, ErrInvalidHex)

	_, err = e.Decode("")
	assert.ErrorIs(t, err, ErrInvalidHex)
}

func TestRSADecodeWithoutPrivateKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	e := NewRSA(&key.PublicKey, nil, "test-key")

	encoded, err := e.Encode([]byte("payload"))
	require.NoError(t, err)

	_, err = e.Decode(encoded)
	assert.ErrorIs(t, err, ErrDecrypt)
}
