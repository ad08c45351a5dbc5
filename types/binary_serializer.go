package types

import "math"

// BinarySerializer converts scalars to a compact big-endian byte string.
// Integers are fixed width (int: 4 bytes, int64: 8 bytes), floating point
// values are serialized through their bit patterns, booleans take one byte,
// and strings are length-prefixed. Several values can be appended to the
// same serializer; the deserializer consumes them in order.
type BinarySerializer struct {
	value []byte
}

// Value returns the serialized bytes.
func (s *BinarySerializer) Value() []byte { return s.value }

func (s *BinarySerializer) Int(value int) bool {
	s.value = append(s.value,
		byte(value>>24), byte(value>>16), byte(value>>8), byte(value))
	return true
}

func (s *BinarySerializer) Int64(value int64) bool {
	for i := 7; i >= 0; i-- {
		s.value = append(s.value, byte(value>>(uint(i)*8)))
	}
	return true
}

func (s *BinarySerializer) Bool(value bool) bool {
	if value {
		s.value = append(s.value, 0xFF)
	} else {
		s.value = append(s.value, 0)
	}
	return true
}

func (s *BinarySerializer) Float(value float32) bool {
	return s.Int(int(int32(math.Float32bits(value))))
}

func (s *BinarySerializer) Double(value float64) bool {
	return s.Int64(int64(math.Float64bits(value)))
}

func (s *BinarySerializer) String(value string) bool {
	s.Int(len(value))
	s.value = append(s.value, value...)
	return true
}

// BinaryDeserializer consumes the byte string produced by BinarySerializer.
// Each successful visit removes the bytes it decoded; a visit that finds too
// few bytes returns false and leaves the buffer untouched.
type BinaryDeserializer struct {
	value []byte
}

// NewBinaryDeserializer wraps serialized for a later Apply.
func NewBinaryDeserializer(serialized []byte) *BinaryDeserializer {
	return &BinaryDeserializer{value: serialized}
}

func (d *BinaryDeserializer) Int(value *int) bool {
	if len(d.value) < 4 {
		return false
	}
	*value = int(int32(uint32(d.value[0])<<24 | uint32(d.value[1])<<16 |
		uint32(d.value[2])<<8 | uint32(d.value[3])))
	d.value = d.value[4:]
	return true
}

func (d *BinaryDeserializer) Int64(value *int64) bool {
	if len(d.value) < 8 {
		return false
	}
	var decoded uint64
	for i := 0; i < 8; i++ {
		decoded = decoded<<8 | uint64(d.value[i])
	}
	*value = int64(decoded)
	d.value = d.value[8:]
	return true
}

func (d *BinaryDeserializer) Bool(value *bool) bool {
	if len(d.value) < 1 {
		return false
	}
	*value = d.value[0] != 0
	d.value = d.value[1:]
	return true
}

func (d *BinaryDeserializer) Float(value *float32) bool {
	var bits int
	if !d.Int(&bits) {
		return false
	}
	*value = math.Float32frombits(uint32(int32(bits)))
	return true
}

func (d *BinaryDeserializer) Double(value *float64) bool {
	var bits int64
	if !d.Int64(&bits) {
		return false
	}
	*value = math.Float64frombits(uint64(bits))
	return true
}

func (d *BinaryDeserializer) String(value *string) bool {
	var length int
	if !d.Int(&length) {
		return false
	}
	if length < 0 || len(d.value) < length {
		// Undo the length read so the buffer stays consistent.
		prefix := []byte{byte(length >> 24), byte(length >> 16),
			byte(length >> 8), byte(length)}
		d.value = append(prefix, d.value...)
		return false
	}
	*value = string(d.value[:length])
	d.value = d.value[length:]
	return true
}
