package record

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeDecodeRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"set", Set("language", "go")},
		{"set with empty value", Set("empty", "")},
		{"remove", Remove("language")},
		{"unicode", Set("emoji", "🚀🔥")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.rec)
			if err != nil {
				t.Fatalf("unexpected encode error: %v", err)
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}

			if decoded != tt.rec {
				t.Errorf("record mismatch: got %+v, want %+v", decoded, tt.rec)
			}
		})
	}
}

func TestDecodeErrorsOnTruncatedData(t *testing.T) {
	encoded, err := Encode(Set("abc", "xy"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	for i := 0; i < len(encoded); i++ {
		_, err := Decode(encoded[:i])
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed when decoding truncated data of length %d, got %v", i, err)
		}
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	encoded, err := Encode(Set("abc", "xy"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	t.Run("flipped value byte", func(t *testing.T) {
		bad := append([]byte(nil), encoded...)
		bad[len(bad)-1] ^= 0xff
		if _, err := Decode(bad); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("trailing bytes", func(t *testing.T) {
		bad := append(append([]byte(nil), encoded...), 'z')
		if _, err := Decode(bad); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		bad := append([]byte(nil), encoded...)
		bad[4] = 9
		if _, err := Decode(bad); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed, got %v", err)
		}
	})
}

func TestEncodeRejectsTombstoneWithValue(t *testing.T) {
	_, err := Encode(Record{Kind: KindRemove, Key: "k", Value: "v"})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestEncodedByteLayout(t *testing.T) {
	encoded, err := Encode(Set("a", "b"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Expected bytes structure:
	// uint32 CRC
	// uint8  Kind
	// uint32 KeySize
	// uint32 ValueSize
	// []byte Key
	// []byte Value
	if len(encoded) != HeaderSizeBytes+2 {
		t.Fatalf("encoded length = %d, want %d", len(encoded), HeaderSizeBytes+2)
	}

	offset := 0

	expectUint32 := func(name string, want uint32) {
		got := binary.LittleEndian.Uint32(encoded[offset : offset+4])
		if got != want {
			t.Fatalf("%s mismatch: got %v want %v", name, got, want)
		}
		offset += 4
	}

	expectUint32("CRC", CalculateCRC([]byte{byte(KindSet)}, []byte("a"), []byte("b")))

	if Kind(encoded[offset]) != KindSet {
		t.Fatalf("expected kind %v, got %v", KindSet, Kind(encoded[offset]))
	}
	offset++

	expectUint32("KeySize", 1)
	expectUint32("ValueSize", 1)

	if encoded[offset] != 'a' {
		t.Fatalf("expected key byte 'a', got %v", encoded[offset])
	}
	offset++

	if encoded[offset] != 'b' {
		t.Fatalf("expected value byte 'b', got %v", encoded[offset])
	}
}
