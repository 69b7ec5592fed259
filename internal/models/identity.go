package models

import (
	"encoding/hex"
	"errors"
	"strings"
)

// Identity is a caller address: "0x" followed by 40 lowercase hex digits.
type Identity string

const identityHexLen = 40

var ErrInvalidIdentity = errors.New("invalid identity")

func ParseIdentity(s string) (Identity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") || len(s) != 2+identityHexLen {
		return "", ErrInvalidIdentity
	}
	if _, err := hex.DecodeString(s[2:]); err != nil {
		return "", ErrInvalidIdentity
	}
	return Identity(s), nil
}

func IdentityFromBytes(b []byte) Identity {
	return Identity("0x" + hex.EncodeToString(b))
}

func (id Identity) String() string {
	return string(id)
}
