// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// MaxVarBytesLen is the maximum byte length a variable-length byte
	// sequence is allowed to claim.  It exists to prevent memory exhaustion
	// from crafted length prefixes and comfortably exceeds the largest
	// message this protocol carries.
	MaxVarBytesLen = 16 * 1024 * 1024

	// MaxVarStringLen is the maximum byte length of a variable-length
	// string, such as a rejection reason.
	MaxVarStringLen = 1024 * 1024
)

func writeUint8(w io.Writer, val uint8) error {
	_, err := w.Write([]byte{val})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func writeUint16(w io.Writer, val uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func writeUint32(w io.Writer, val uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeUint64(w io.Writer, val uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], val)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteVarBytes serializes a variable length byte sequence to w as a 4-byte
// big-endian length followed by the bytes themselves.
func WriteVarBytes(w io.Writer, b []byte) error {
	if len(b) > MaxVarBytesLen {
		str := fmt.Sprintf("byte sequence too large [len %d, max %d]",
			len(b), MaxVarBytesLen)
		return messageError("WriteVarBytes", str)
	}
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarBytes reads a variable length byte sequence from r, enforcing the
// given maximum length.  The fieldName is only used for error descriptions.
func ReadVarBytes(r io.Reader, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		str := fmt.Sprintf("%s is larger than the maximum size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
		return nil, messageError("ReadVarBytes", str)
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarString serializes a variable length string to w.
func WriteVarString(w io.Writer, s string) error {
	if len(s) > MaxVarStringLen {
		str := fmt.Sprintf("string too large [len %d, max %d]",
			len(s), MaxVarStringLen)
		return messageError("WriteVarString", str)
	}
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// ReadVarString reads a variable length string from r.
func ReadVarString(r io.Reader, fieldName string) (string, error) {
	b, err := ReadVarBytes(r, MaxVarStringLen, fieldName)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
