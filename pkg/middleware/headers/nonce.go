package headers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const nonceSize = 32

// ErrEntropy is returned when the entropy source cannot produce a nonce.
var ErrEntropy = errors.New("csp nonce: entropy source unavailable")

// Nonce is a base64-encoded 256-bit random token bound to one response.
type Nonce string

// NonceSource produces a fresh nonce per request.
type NonceSource interface {
	Generate() (Nonce, error)
}

// RandomNonceSource reads from a CSPRNG. A zero value uses crypto/rand.
type RandomNonceSource struct {
	Reader io.Reader
}

func (s RandomNonceSource) Generate() (Nonce, error) {
	r := s.Reader
	if r == nil {
		r = rand.Reader
	}
	var b [nonceSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return Nonce(base64.StdEncoding.EncodeToString(b[:])), nil
}
