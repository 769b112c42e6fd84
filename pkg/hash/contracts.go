package hash

import "errors"

var (
	ErrUnsupportedType = errors.New("hash: unsupported hash type")
	ErrEmptyInput      = errors.New("hash: session token and token value are required")
)

// TokenHasher computes the proof-of-possession digest the platform expects
// when a token is exchanged for a session: the hex digest of the
// unprivileged session string concatenated with the token's secret value.
type TokenHasher interface {
	Type() Type
	Sum(sessionToken string, tokenValue string) (string, error)
}
