package hash

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
)

// Type names a digest algorithm the platform accepts for app tokens.
type Type string

const (
	TypeSHA1   Type = "SHA1"
	TypeSHA256 Type = "SHA256"
	TypeSHA512 Type = "SHA512"
	TypeMD5    Type = "MD5"
)

type Hasher struct {
	hashType Type
	factory  func() hash.Hash
}

func New(hashType Type) (*Hasher, error) {
	var factory func() hash.Hash

	switch hashType {
	case TypeSHA1:
		factory = sha1.New
	case TypeSHA256:
		factory = sha256.New
	case TypeSHA512:
		factory = sha512.New
	case TypeMD5:
		factory = md5.New
	default:
		return nil, ErrUnsupportedType
	}

	return &Hasher{
		hashType: hashType,
		factory:  factory,
	}, nil
}

func (h *Hasher) Type() Type {
	if h == nil {
		return ""
	}
	return h.hashType
}

func (h *Hasher) Sum(sessionToken string, tokenValue string) (string, error) {
	if h == nil || h.factory == nil {
		return "", ErrUnsupportedType
	}
	if sessionToken == "" || tokenValue == "" {
		return "", ErrEmptyInput
	}

	digest := h.factory()
	digest.Write([]byte(sessionToken + tokenValue))
	return hex.EncodeToString(digest.Sum(nil)), nil
}

var _ TokenHasher = (*Hasher)(nil)
