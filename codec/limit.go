package codec

import "fmt"

// ErrTooLarge is wrapped by LimitCodec when a payload exceeds its bound.
var ErrTooLarge = fmt.Errorf("codec: payload too large")

// LimitCodec bounds payload sizes around another codec. A bound <= 0 is
// not enforced. Remote Source bodies are decoded through one of these so a
// misbehaving backend cannot balloon an instance's memory.
type LimitCodec[V any] struct {
	Inner     Codec[V]
	MaxDecode int
	MaxEncode int
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("%w: encoded %d bytes, limit %d", ErrTooLarge, len(b), c.MaxEncode)
	}
	return b, nil
}

func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
