// Package metrics defines the canonical sample schema and the normalizer
// that converts raw platform readings into it.
package metrics

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category identifies one class of host telemetry.
type Category string

const (
	CategoryCPU     Category = "cpu"
	CategoryMemory  Category = "memory"
	CategoryDisk    Category = "disk"
	CategoryNetwork Category = "network"
	CategoryGPU     Category = "gpu"
	CategorySystem  Category = "system"
)

// Categories lists every category in collection order.
var Categories = []Category{
	CategoryCPU, CategoryMemory, CategoryDisk,
	CategoryNetwork, CategoryGPU, CategorySystem,
}

// Value is a tri-state field value: a number, a string, or unavailable.
// The source platform often reports "0" both for a genuine zero and for
// "could not read"; the tri-state keeps those apart so downstream
// consumers (history, alerts) can skip what was never measured.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

type valueKind uint8

const (
	kindUnavailable valueKind = iota
	kindNumber
	kindString
)

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: kindString, str: s} }

// Unavailable is the Value for a reading that could not be obtained.
var Unavailable = Value{kind: kindUnavailable}

// IsAvailable reports whether the value carries data.
func (v Value) IsAvailable() bool { return v.kind != kindUnavailable }

// Float returns the numeric value; ok is false for strings and unavailable.
func (v Value) Float() (float64, bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

// Text returns the string value; ok is false for numbers and unavailable.
func (v Value) Text() (string, bool) {
	if v.kind != kindString {
		return "", false
	}
	return v.str, true
}

// MarshalJSON encodes numbers as numbers, strings as strings and
// unavailable values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Unavailable
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = String(s)
		return nil
	}
	return fmt.Errorf("metrics: cannot decode value %s", data)
}

// String implements fmt.Stringer for logs.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return fmt.Sprintf("%g", v.num)
	case kindString:
		return v.str
	default:
		return "unavailable"
	}
}

// Sample is one normalized reading set for a single category at an instant.
// Field names and their units are fixed; see the Field* constants.
type Sample struct {
	Category  Category         `json:"category"`
	Timestamp time.Time        `json:"timestamp"`
	Fields    map[string]Value `json:"fields"`
}

// Well-known field names. The unit is part of the name where ambiguity
// is possible.
const (
	FieldUsagePercent = "usage_percent"
	FieldPercentUsed  = "percent_used"
	FieldTemperatureC = "temperature_c"
	FieldRecvMbps     = "recv_mbps"
	FieldSendMbps     = "send_mbps"
	FieldUsedBytes    = "used_bytes"
	FieldTotalBytes   = "total_bytes"
	FieldFreeBytes    = "free_bytes"
)

// NewSample creates an empty Sample for a category.
func NewSample(cat Category, ts time.Time) *Sample {
	return &Sample{Category: cat, Timestamp: ts, Fields: make(map[string]Value)}
}

// Set stores a field value, validating the percentage invariant: any field
// named *_percent or percent_* must lie in [0,100]. Out-of-range input is a
// data-quality error and is stored as unavailable rather than clamped.
func (s *Sample) Set(field string, v Value) error {
	if f, ok := v.Float(); ok && isPercentField(field) {
		if f < 0 || f > 100 {
			s.Fields[field] = Unavailable
			return fmt.Errorf("metrics: %s/%s out of range: %g", s.Category, field, f)
		}
	}
	s.Fields[field] = v
	return nil
}

// Get returns the value for a field; missing fields read as unavailable.
func (s *Sample) Get(field string) Value {
	if s == nil {
		return Unavailable
	}
	v, ok := s.Fields[field]
	if !ok {
		return Unavailable
	}
	return v
}

// Float is a convenience accessor for numeric fields.
func (s *Sample) Float(field string) (float64, bool) {
	return s.Get(field).Float()
}

func isPercentField(name string) bool {
	const pct = "percent"
	if len(name) < len(pct) {
		return false
	}
	return name[:len(pct)] == pct || name[len(name)-len(pct):] == pct
}
