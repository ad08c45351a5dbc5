package types

import "strconv"

// StringSerializer converts a scalar value to its human readable form. Apply
// it to a property, then call Value.
type StringSerializer struct {
	value string
}

// Value returns the serialized value.
func (s *StringSerializer) Value() string { return s.value }

func (s *StringSerializer) Int(value int) bool {
	s.value = strconv.Itoa(value)
	return true
}

func (s *StringSerializer) Int64(value int64) bool {
	s.value = strconv.FormatInt(value, 10)
	return true
}

func (s *StringSerializer) Bool(value bool) bool {
	if value {
		s.value = "1"
	} else {
		s.value = "0"
	}
	return true
}

func (s *StringSerializer) Float(value float32) bool {
	s.value = strconv.FormatFloat(float64(value), 'g', -1, 32)
	return true
}

func (s *StringSerializer) Double(value float64) bool {
	s.value = strconv.FormatFloat(value, 'g', -1, 64)
	return true
}

func (s *StringSerializer) String(value string) bool {
	s.value = value
	return true
}

// StringDeserializer parses a human readable string back into a scalar.
type StringDeserializer struct {
	value string
}

// NewStringDeserializer wraps serialized for a later Apply.
func NewStringDeserializer(serialized string) *StringDeserializer {
	return &StringDeserializer{value: serialized}
}

func (d *StringDeserializer) Int(value *int) bool {
	parsed, err := strconv.Atoi(d.value)
	if err != nil {
		return false
	}
	*value = parsed
	return true
}

func (d *StringDeserializer) Int64(value *int64) bool {
	parsed, err := strconv.ParseInt(d.value, 10, 64)
	if err != nil {
		return false
	}
	*value = parsed
	return true
}

func (d *StringDeserializer) Bool(value *bool) bool {
	switch d.value {
	case "1", "true":
		*value = true
	case "0", "false":
		*value = false
	default:
		return false
	}
	return true
}

func (d *StringDeserializer) Float(value *float32) bool {
	parsed, err := strconv.ParseFloat(d.value, 32)
	if err != nil {
		return false
	}
	*value = float32(parsed)
	return true
}

func (d *StringDeserializer) Double(value *float64) bool {
	parsed, err := strconv.ParseFloat(d.value, 64)
	if err != nil {
		return false
	}
	*value = parsed
	return true
}

func (d *StringDeserializer) String(value *string) bool {
	*value = d.value
	return true
}
