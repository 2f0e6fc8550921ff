package js8

import "strings"

// ChecksumAlphabet is the base-41 digit set used for packed checksums.
const ChecksumAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ+-./?"

const checksumBase = len(ChecksumAlphabet)

// CRC16Kermit computes CRC-16/KERMIT (reflected poly 0x8408, init 0, no
// final xor) over data.
func CRC16Kermit(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		cur := b
		for i := 0; i < 8; i++ {
			mix := (crc ^ uint16(cur)) & 0x01
			crc >>= 1
			if mix != 0 {
				crc ^= 0x8408
			}
			cur >>= 1
		}
	}
	return crc
}

// Pack16 packs a 16-bit value into three base-41 digits, most significant
// first.
func Pack16(value uint16) string {
	v := int(value)
	d0 := v / (checksumBase * checksumBase)
	d1 := (v % (checksumBase * checksumBase)) / checksumBase
	d2 := v % checksumBase
	return string([]byte{ChecksumAlphabet[d0], ChecksumAlphabet[d1], ChecksumAlphabet[d2]})
}

// Checksum returns the 3-character checksum of body encoded as 7-bit ASCII.
// Runes outside ASCII are replaced by '?'.
func Checksum(body string) string {
	return Pack16(CRC16Kermit(asciiBytes(body)))
}

// AppendChecksum returns body followed by a space and its checksum.
func AppendChecksum(body string) string {
	return body + " " + Checksum(body)
}

// ValidateChecksum checks the trailing 3-character checksum of message and
// returns the body it covers. Anything shorter than 4 characters, or a
// checksum not separated from the body by a space, fails.
func ValidateChecksum(message string) (bool, string) {
	trimmed := strings.TrimLeft(message, " \t\r\n")
	if len(trimmed) < 4 {
		return false, trimmed
	}
	sum := strings.ToUpper(trimmed[len(trimmed)-3:])
	body := trimmed[:len(trimmed)-4]
	if trimmed[len(trimmed)-4] != ' ' {
		return false, body
	}
	return Checksum(body) == sum, body
}

// StripChecksum removes a trailing " XXX" token when it looks like a packed
// checksum, whether or not it is correct.
func StripChecksum(message string) string {
	trimmed := strings.TrimRight(message, " \t\r\n")
	lastSpace := strings.LastIndexByte(trimmed, ' ')
	if lastSpace <= 0 || len(trimmed)-lastSpace != 4 {
		return trimmed
	}
	for _, c := range strings.ToUpper(trimmed[lastSpace+1:]) {
		if !strings.ContainsRune(ChecksumAlphabet, c) {
			return trimmed
		}
	}
	return trimmed[:lastSpace]
}

func asciiBytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0x7F {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}
