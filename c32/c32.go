// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package c32

import (
	"encoding/binary"
	"strings"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// alphabet is the Crockford base32 digit set.  Note the absence of I, L, O,
// and U.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// checksumLen is the number of checksum bytes appended by the check forms.
const checksumLen = 4

// digitValues maps an ASCII byte to its digit value, or -1 when the byte is
// not part of the alphabet.  Normalization must happen before lookup.
var digitValues = func() [128]int8 {
	var vals [128]int8
	for i := range vals {
		vals[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		vals[alphabet[i]] = int8(i)
	}
	return vals
}()

// isASCII returns whether every byte of s is within the ASCII range.  Strings
// containing other code points are rejected before normalization.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}

// normalize uppercases s and folds the visually ambiguous characters O, L,
// and I onto the digits they are most commonly mistaken for.
func normalize(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "O", "0")
	s = strings.ReplaceAll(s, "L", "1")
	s = strings.ReplaceAll(s, "I", "1")
	return s
}

// Encode encodes arbitrary bytes as a Crockford base32 string.  Leading zero
// bytes of the input are preserved as leading '0' digits of the output.
func Encode(input []byte) string {
	// Accumulate 5-bit digits from the low end of each byte, consuming the
	// input from its high-order end.
	result := make([]byte, 0, (len(input)*8+4)/5)
	carry := byte(0)
	carryBits := uint(0)
	for i := len(input) - 1; i >= 0; i-- {
		cur := input[i]
		lowBitsToTake := 5 - carryBits
		lowBits := cur & ((1 << lowBitsToTake) - 1)
		result = append(result, alphabet[(lowBits<<carryBits)+carry])
		carryBits = (8 + carryBits) - 5
		carry = cur >> (8 - carryBits)

		if carryBits >= 5 {
			result = append(result, alphabet[carry&0x1f])
			carryBits -= 5
			carry >>= 5
		}
	}
	if carryBits > 0 {
		result = append(result, alphabet[carry])
	}

	// The digits were emitted in reverse.  Strip the excess zero digits from
	// the high-order end and re-add one '0' per leading zero byte of the
	// input so the encoding round-trips.
	for len(result) > 0 && result[len(result)-1] == '0' {
		result = result[:len(result)-1]
	}
	for _, b := range input {
		if b != 0 {
			break
		}
		result = append(result, '0')
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return string(result)
}

// Decode decodes a Crockford base32 string into the bytes it represents.
// Decoding is case-insensitive and applies the O/L/I normalization.  Leading
// '0' digits of the input are preserved as leading zero bytes of the output.
func Decode(input string) ([]byte, error) {
	if !isASCII(input) {
		return nil, ErrInvalidCrockford32
	}

	norm := normalize(input)
	result := make([]byte, 0, len(norm)*5/8+1)
	carry := uint16(0)
	carryBits := uint(0)
	for i := len(norm) - 1; i >= 0; i-- {
		v := digitValues[norm[i]]
		if v < 0 {
			return nil, ErrInvalidCrockford32
		}
		carry += uint16(v) << carryBits
		carryBits += 5

		if carryBits >= 8 {
			result = append(result, byte(carry&0xff))
			carryBits -= 8
			carry >>= 8
		}
	}
	if carryBits > 0 {
		result = append(result, byte(carry))
	}

	// Mirror the encoder's leading zero handling.
	for len(result) > 0 && result[len(result)-1] == 0 {
		result = result[:len(result)-1]
	}
	for i := 0; i < len(norm); i++ {
		if norm[i] != '0' {
			break
		}
		result = append(result, 0)
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// checksum returns the leading four bytes of the double SHA-256 of the
// version byte followed by the payload.
func checksum(version byte, data []byte) []byte {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, version)
	buf = append(buf, data...)
	return chainhash.DoubleHashB(buf)[:checksumLen]
}

// CheckEncode encodes a version byte and payload with a trailing 4-byte
// double SHA-256 checksum.  The version must be less than 32 as it is
// rendered as a single base32 digit preceding the encoded body.
func CheckEncode(version byte, data []byte) (string, error) {
	if version >= 32 {
		return "", InvalidVersionError(version)
	}
	body := make([]byte, 0, len(data)+checksumLen)
	body = append(body, data...)
	body = append(body, checksum(version, data)...)
	return string(alphabet[version]) + Encode(body), nil
}

// CheckDecode decodes a string produced by CheckEncode, verifying the
// trailing checksum.  A ChecksumError carrying both the computed and expected
// sums as little-endian uint32s is returned on mismatch.
func CheckDecode(input string) (byte, []byte, error) {
	if !isASCII(input) {
		return 0, nil, ErrInvalidCrockford32
	}
	if len(input) < 2 {
		return 0, nil, ErrInvalidCrockford32
	}

	norm := normalize(input)
	versionBytes, err := Decode(norm[:1])
	if err != nil {
		return 0, nil, err
	}
	dataSum, err := Decode(norm[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(dataSum) < checksumLen+1 {
		return 0, nil, ErrInvalidCrockford32
	}

	data := dataSum[:len(dataSum)-checksumLen]
	expected := dataSum[len(dataSum)-checksumLen:]
	version := versionBytes[0]
	computed := checksum(version, data)
	if !equalBytes(computed, expected) {
		return 0, nil, ChecksumError{
			Computed: binary.LittleEndian.Uint32(computed),
			Expected: binary.LittleEndian.Uint32(expected),
		}
	}

	return version, data, nil
}

// Address renders a version byte and payload as a Stacks address: the
// character 'S' followed by the check encoding.
func Address(version byte, data []byte) (string, error) {
	encoded, err := CheckEncode(version, data)
	if err != nil {
		return "", err
	}
	return "S" + encoded, nil
}

// DecodeAddress decodes a Stacks address produced by Address, returning the
// version byte and payload.
func DecodeAddress(addr string) (byte, []byte, error) {
	if len(addr) <= 5 {
		return 0, nil, ErrInvalidCrockford32
	}
	return CheckDecode(addr[1:])
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
