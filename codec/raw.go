package codec

import (
	"errors"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned by String.Decode.
var ErrInvalidUTF8 = errors.New("codec: invalid UTF-8")

// Bytes passes []byte values through. Both directions copy: a snapshot entry
// must not alias a slice the caller may still write to.
type Bytes struct{}

var _ Codec[[]byte] = Bytes{}

func (Bytes) Encode(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil }

// String is for plain text resources such as a mirrored GitHub file.
type String struct{}

var _ Codec[string] = String{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }

func (String) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}
