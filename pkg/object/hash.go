package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashObject computes the SHA-1 of the envelope "type len\0content".
func HashObject(objType ObjectType, data []byte) Hash {
	h := sha1.New()
	h.Write(envelopeHeader(objType, len(data)))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// ParseHash validates s as a full 40-character lowercase hex digest.
func ParseHash(s string) (Hash, error) {
	if len(s) != 2*HashSize {
		return "", fmt.Errorf("parse hash %q: want %d hex characters, got %d", s, 2*HashSize, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("parse hash %q: invalid character %q", s, c)
		}
	}
	return Hash(s), nil
}

// HashFromRaw converts a raw 20-byte digest into its hex form.
func HashFromRaw(raw []byte) (Hash, error) {
	if len(raw) != HashSize {
		return "", fmt.Errorf("raw hash: want %d bytes, got %d", HashSize, len(raw))
	}
	return Hash(hex.EncodeToString(raw)), nil
}

// Raw returns the 20-byte binary digest.
func (h Hash) Raw() ([]byte, error) {
	if _, err := ParseHash(string(h)); err != nil {
		return nil, err
	}
	return hex.DecodeString(string(h))
}

// Short returns the first 8 characters of the hash for display.
func (h Hash) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}
