package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Kind tags a record as a write or a tombstone.
type Kind uint8

const (
	KindSet    Kind = 1
	KindRemove Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrMalformed is returned when a payload cannot be decoded as a record.
var ErrMalformed = errors.New("malformed record")

// Record is the logical entry stored in a segment payload.
type Record struct {
	Kind  Kind
	Key   string
	Value string
}

// CRC (4) + Kind (1) + KeySize (4) + ValueSize (4)
const HeaderSizeBytes = 13

// Set builds a record that assigns value to key.
func Set(key, value string) Record {
	return Record{Kind: KindSet, Key: key, Value: value}
}

// Remove builds a tombstone for key.
func Remove(key string) Record {
	return Record{Kind: KindRemove, Key: key}
}

// Encode serializes r into its payload format.
//
// The payload is laid out as:
//
//	<crc:uint32><kind:uint8><key_size:uint32><value_size:uint32><key><value>
//
// All integer fields are little-endian. The CRC covers kind, key and value.
func Encode(r Record) ([]byte, error) {
	if r.Kind != KindSet && r.Kind != KindRemove {
		return nil, fmt.Errorf("%w: unknown %v", ErrMalformed, r.Kind)
	}
	if r.Kind == KindRemove && r.Value != "" {
		return nil, fmt.Errorf("%w: tombstone with value", ErrMalformed)
	}

	keyBytes := []byte(r.Key)
	valueBytes := []byte(r.Value)

	buf := &bytes.Buffer{}
	buf.Grow(HeaderSizeBytes + len(keyBytes) + len(valueBytes))

	if err := binary.Write(buf, binary.LittleEndian, CalculateCRC([]byte{byte(r.Kind)}, keyBytes, valueBytes)); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(r.Kind))
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(keyBytes))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(valueBytes))); err != nil {
		return nil, err
	}
	buf.Write(keyBytes)
	buf.Write(valueBytes)

	return buf.Bytes(), nil
}

// Decode parses a payload produced by Encode. Any truncation, trailing data,
// unknown kind, empty key or checksum mismatch yields ErrMalformed.
func Decode(data []byte) (Record, error) {
	var crc uint32
	var kind uint8
	var keySize uint32
	var valueSize uint32

	buf := bytes.NewReader(data)

	if err := binary.Read(buf, binary.LittleEndian, &crc); err != nil {
		return Record{}, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &kind); err != nil {
		return Record{}, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &keySize); err != nil {
		return Record{}, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &valueSize); err != nil {
		return Record{}, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}

	k := Kind(kind)
	if k != KindSet && k != KindRemove {
		return Record{}, fmt.Errorf("%w: unknown %v", ErrMalformed, k)
	}
	if keySize == 0 {
		return Record{}, fmt.Errorf("%w: empty key", ErrMalformed)
	}
	if k == KindRemove && valueSize != 0 {
		return Record{}, fmt.Errorf("%w: tombstone with value", ErrMalformed)
	}
	if uint64(keySize)+uint64(valueSize) != uint64(buf.Len()) {
		return Record{}, fmt.Errorf("%w: sizes %d+%d do not match %d body bytes",
			ErrMalformed, keySize, valueSize, buf.Len())
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(buf, key); err != nil {
		return Record{}, fmt.Errorf("%w: key: %v", ErrMalformed, err)
	}

	value := make([]byte, valueSize)
	if _, err := io.ReadFull(buf, value); err != nil {
		return Record{}, fmt.Errorf("%w: value: %v", ErrMalformed, err)
	}

	if !ValidateCRC(crc, []byte{kind}, key, value) {
		return Record{}, fmt.Errorf("%w: checksum mismatch", ErrMalformed)
	}

	return Record{Kind: k, Key: string(key), Value: string(value)}, nil
}
