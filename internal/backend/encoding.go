package backend

import (
	"errors"
	"fmt"
)

// encodeLEB128U encodes an unsigned integer as unsigned LEB128.
func encodeLEB128U(value uint64) []byte {
	if value == 0 {
		return []byte{0}
	}
	var result []byte
	for value > 0 {
		b := byte(value & 0x7F)
		value >>= 7
		if value > 0 {
			b |= 0x80
		}
		result = append(result, b)
	}
	return result
}

// encodeLEB128S encodes a signed integer as signed LEB128.
func encodeLEB128S(value int64) []byte {
	var result []byte
	more := true
	for more {
		b := byte(value & 0x7F)
		value >>= 7
		if (value == 0 && b&0x40 == 0) || (value == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		result = append(result, b)
	}
	return result
}

// encodeString encodes a string with its length prefix.
func encodeString(s string) []byte {
	result := encodeLEB128U(uint64(len(s)))
	result = append(result, []byte(s)...)
	return result
}

// encodeSection encodes a section with its ID and length prefix.
func encodeSection(id byte, contents []byte) []byte {
	result := []byte{id}
	result = append(result, encodeLEB128U(uint64(len(contents)))...)
	result = append(result, contents...)
	return result
}

// encodeVector encodes a vector of items with a count prefix.
func encodeVector(count int, items []byte) []byte {
	result := encodeLEB128U(uint64(count))
	result = append(result, items...)
	return result
}

var errTruncated = errors.New("unexpected end of image")

// reader decodes the primitives written by the encode helpers. The first
// error sticks and later reads return zero values.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("offset %d: %w", r.off, err)
	}
}

func (r *reader) readByte() byte {
	if r.err != nil {
		return 0
	}
	if r.off >= len(r.data) {
		r.fail(errTruncated)
		return 0
	}
	b := r.data[r.off]
	r.off++
	return b
}

func (r *reader) readBytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(errTruncated)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) readU() uint64 {
	var result uint64
	for shift := uint(0); ; shift += 7 {
		b := r.readByte()
		if r.err != nil {
			return 0
		}
		if shift >= 64 {
			r.fail(errors.New("LEB128 value overflows 64 bits"))
			return 0
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result
		}
	}
}

func (r *reader) readS() int64 {
	var result int64
	var shift uint
	for {
		b := r.readByte()
		if r.err != nil {
			return 0
		}
		if shift >= 64 {
			r.fail(errors.New("LEB128 value overflows 64 bits"))
			return 0
		}
		result |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result
		}
	}
}

// readCount reads a length prefix and bounds it by the bytes that remain
func (r *reader) readCount() int {
	n := r.readU()
	if r.err == nil && n > uint64(len(r.data)-r.off) {
		r.fail(fmt.Errorf("%w: length %d exceeds the remaining %d bytes", errTruncated, n, len(r.data)-r.off))
		return 0
	}
	return int(n)
}

func (r *reader) readString() string {
	return string(r.readBytes(r.readCount()))
}
