// Package codec converts cache values to and from bytes for the snapshot
// envelope and for Remote Source response bodies.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
