package codec

import "hash/crc32"

// CRCTable is the IEEE polynomial (0xEDB88320, reflected) table used for all
// frame and envelope checksums. It is the same table hash/crc32.IEEETable
// publishes; it is named here so call sites read as domain code rather than
// stdlib trivia.
var CRCTable = crc32.IEEETable

// CRC32 computes the IEEE CRC-32 of b: init 0xFFFFFFFF, reflected
// input/output, final XOR 0xFFFFFFFF — exactly crc32.ChecksumIEEE.
func CRC32(b []byte) uint32 {
	return crc32.Checksum(b, CRCTable)
}
