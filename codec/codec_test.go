package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type subscriptions map[string][]string

func TestCodecsRoundTripCollections(t *testing.T) {
	in := subscriptions{
		"swift-nio":   {"1001", "1002"},
		"async/await": {"1003"},
	}
	cases := map[string]Codec[subscriptions]{
		"json":    JSON[subscriptions]{},
		"msgpack": Msgpack[subscriptions]{},
		"cbor":    MustCBOR[subscriptions](true),
	}
	for name, cc := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := cc.Encode(in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := cc.Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(in, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCBORDeterministicIsStable(t *testing.T) {
	cc := MustCBOR[map[string]string](true)
	a := map[string]string{}
	b := map[string]string{}
	for _, k := range []string{"z", "a", "m", "q", "b"} {
		a[k] = k
	}
	for _, k := range []string{"b", "q", "m", "a", "z"} {
		b[k] = k
	}
	ea, _ := cc.Encode(a)
	eb, _ := cc.Encode(b)
	if string(ea) != string(eb) {
		t.Fatalf("deterministic encoding differs")
	}
}

func TestCBORRejectsDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	dup := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	if _, err := MustCBOR[map[string]int](false).Decode(dup); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestLimitCodec(t *testing.T) {
	lc := LimitCodec[string]{Inner: String{}, MaxDecode: 4, MaxEncode: 6}
	if _, err := lc.Decode([]byte("12345")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if v, err := lc.Decode([]byte("1234")); err != nil || v != "1234" {
		t.Fatalf("got (%q, %v)", v, err)
	}
	if _, err := lc.Encode("1234567"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge on encode, got %v", err)
	}
	unlimited := LimitCodec[[]byte]{Inner: Bytes{}}
	if _, err := unlimited.Decode(make([]byte, 1<<16)); err != nil {
		t.Fatalf("unlimited decode: %v", err)
	}
}

func TestRawCodecs(t *testing.T) {
	src := []byte("SE-0306")
	enc, _ := Bytes{}.Encode(src)
	src[0] = 'X'
	if string(enc) != "SE-0306" {
		t.Fatalf("Bytes.Encode aliases its input: %q", enc)
	}

	if _, err := (String{}).Decode([]byte{0xff, 0xfe}); !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("err=%v want ErrInvalidUTF8", err)
	}
	if s, err := (String{}).Decode([]byte("actors")); err != nil || s != "actors" {
		t.Fatalf("got (%q, %v)", s, err)
	}
}

func TestMsgpackUsesJSONTagsAndSortsKeys(t *testing.T) {
	type faq struct {
		Name string `json:"name"`
		Text string `json:"text,omitempty"`
	}
	cc := Msgpack[faq]{}
	b, err := cc.Encode(faq{Name: "xcode"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "name") || strings.Contains(string(b), "text") {
		t.Fatalf("json tags not honored: %q", b)
	}

	m := Msgpack[map[string]int]{}
	a, _ := m.Encode(map[string]int{"z": 1, "a": 2, "m": 3})
	z, _ := m.Encode(map[string]int{"m": 3, "z": 1, "a": 2})
	if string(a) != string(z) {
		t.Fatal("msgpack map encoding is not stable")
	}
}

func TestProtobuf(t *testing.T) {
	cc := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := cc.Encode(wrapperspb.String("SE-0296"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := cc.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if !proto.Equal(got, wrapperspb.String("SE-0296")) {
		t.Fatalf("got %v", got)
	}
}

func TestProtobufWithoutConstructor(t *testing.T) {
	var cc Protobuf[*wrapperspb.StringValue]
	if _, err := cc.Decode(nil); err == nil {
		t.Fatal("expected error without constructor")
	}
}
