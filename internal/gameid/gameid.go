// Package gameid generates session identifiers: UUIDv7 values written as
// 26-character lowercase Crockford base32, so ids sort by creation time.
package gameid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32, lowercase
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded id: 128 bits padded to 130 and split into 5-bit groups.
const Length = 26

// Generate returns a new id. It panics only if the system random source fails.
func Generate() string {
	return Encode(uuid.Must(uuid.NewV7()))
}

// FromReader builds an id whose random bits are read from r, which makes ids
// reproducible in tests.
func FromReader(r io.Reader) (string, error) {
	id, err := uuid.NewV7FromReader(r)
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return Encode(id), nil
}

// Encode writes id as base32. The two padding bits lead, so the first
// character is always 0-7.
func Encode(id uuid.UUID) string {
	var sb strings.Builder
	sb.Grow(Length)
	for i := 0; i < Length; i++ {
		var v byte
		for b := i*5 - 2; b < i*5+3; b++ {
			v <<= 1
			if b >= 0 {
				v |= (id[b/8] >> (7 - b%8)) & 1
			}
		}
		sb.WriteByte(alphabet[v])
	}
	return sb.String()
}

// Decode parses an id produced by Encode.
func Decode(s string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := Validate(s); err != nil {
		return id, err
	}
	for i := 0; i < Length; i++ {
		v := byte(strings.IndexByte(alphabet, s[i]))
		for k := 0; k < 5; k++ {
			b := i*5 - 2 + k
			if b < 0 {
				continue
			}
			if v&(1<<(4-k)) != 0 {
				id[b/8] |= 1 << (7 - b%8)
			}
		}
	}
	return id, nil
}

// Validate checks that s is a well-formed id.
func Validate(s string) error {
	if len(s) != Length {
		return fmt.Errorf("game ID must be exactly %d characters, got %d", Length, len(s))
	}
	if s[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", s[0])
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", s[i], i)
		}
	}
	return nil
}
