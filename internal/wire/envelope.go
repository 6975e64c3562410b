// Package wire frames the snapshot envelope stored in the durable blob store.
//
//	magic(4)="WCSN" | ver(1) | flags(1) | body
//
// body is a CBOR map with integer field tags; unknown tags are ignored on
// decode and missing ones decode to their zero value. flags bit 0 marks a
// zstd-compressed body.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

const (
	version  byte = 1
	flagZstd byte = 1 << 0
	hdrLen        = 4 + 1 + 1

	// bodies at or below this size are stored uncompressed
	compressAbove = 1 << 10
	// upper bound for a decompressed body
	maxBody = 64 << 20
)

var (
	ErrCorrupt = errors.New("warmcache: corrupt envelope")
	magic4     = [...]byte{'W', 'C', 'S', 'N'}
)

// Envelope is the union of all snapshot-eligible caches at one point in time.
// Entries holds each cache's value encoded with that cache's codec.
type Envelope struct {
	Version   uint              `cbor:"1,keyasint,omitempty"`
	CreatedAt time.Time         `cbor:"2,keyasint"`
	Entries   map[string][]byte `cbor:"3,keyasint,omitempty"`
}

var (
	modesOnce sync.Once
	encMode   cbor.EncMode
	decMode   cbor.DecMode
	zenc      *zstd.Encoder
	zdec      *zstd.Decoder
	modesErr  error
)

func modes() error {
	modesOnce.Do(func() {
		eo := cbor.CoreDetEncOptions()
		eo.Time = cbor.TimeRFC3339Nano
		if encMode, modesErr = eo.EncMode(); modesErr != nil {
			return
		}
		if decMode, modesErr = (cbor.DecOptions{MaxMapPairs: 1 << 20}).DecMode(); modesErr != nil {
			return
		}
		if zenc, modesErr = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1)); modesErr != nil {
			return
		}
		zdec, modesErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxBody))
	})
	return modesErr
}

// EncodeEnvelope frames env, compressing large bodies.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	if err := modes(); err != nil {
		return nil, err
	}
	if env.Version == 0 {
		env.Version = uint(version)
	}
	body, err := encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	var flags byte
	if len(body) > compressAbove {
		body = zenc.EncodeAll(body, make([]byte, 0, len(body)/2))
		flags |= flagZstd
	}

	var buf bytes.Buffer
	buf.Grow(hdrLen + len(body))
	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(flags)
	buf.Write(body)
	return buf.Bytes(), nil
}

// DecodeEnvelope validates the frame and decodes the body. Every failure
// wraps ErrCorrupt.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if err := modes(); err != nil {
		return Envelope{}, err
	}
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Envelope{}, ErrCorrupt
	}
	flags := b[5]
	if flags&^flagZstd != 0 {
		return Envelope{}, fmt.Errorf("%w: unknown flags %#x", ErrCorrupt, flags)
	}

	body := b[hdrLen:]
	if flags&flagZstd != 0 {
		var err error
		body, err = zdec.DecodeAll(body, nil)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	var env Envelope
	if err := decMode.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Entries == nil {
		env.Entries = map[string][]byte{}
	}
	return env, nil
}
