package record

import "hash/crc32"

// CalculateCRC computes the CRC32 checksum of the given fields, in order, using the IEEE polynomial.
func CalculateCRC(fields ...[]byte) uint32 {
	h := crc32.NewIEEE()
	for _, f := range fields {
		h.Write(f)
	}
	return h.Sum32()
}

// ValidateCRC returns true if checksum matches the computed CRC32 of the fields
func ValidateCRC(checksum uint32, fields ...[]byte) bool {
	return CalculateCRC(fields...) == checksum
}
