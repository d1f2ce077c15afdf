package metrics

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSetRejectsOutOfRangePercent(t *testing.T) {
	s := NewSample(CategoryCPU, time.Now())

	if err := s.Set(FieldUsagePercent, Number(105)); err == nil {
		t.Error("expected error for percent > 100")
	}
	if s.Get(FieldUsagePercent).IsAvailable() {
		t.Error("out-of-range percent should be stored as unavailable, not clamped")
	}

	if err := s.Set(FieldUsagePercent, Number(-1)); err == nil {
		t.Error("expected error for negative percent")
	}

	if err := s.Set(FieldUsagePercent, Number(99.9)); err != nil {
		t.Errorf("unexpected error for valid percent: %v", err)
	}
	if v, ok := s.Float(FieldUsagePercent); !ok || v != 99.9 {
		t.Errorf("expected 99.9, got %v ok=%v", v, ok)
	}
}

func TestSetNonPercentFieldUnbounded(t *testing.T) {
	s := NewSample(CategoryMemory, time.Now())
	if err := s.Set(FieldTotalBytes, Number(16e9)); err != nil {
		t.Errorf("byte fields must not be range-checked: %v", err)
	}
}

func TestValueJSON(t *testing.T) {
	type payload struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
	}
	in := payload{A: Number(42.5), B: String("eth0"), C: Unavailable}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"a":42.5,"b":"eth0","c":null}`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}

	var out payload
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestNilSampleReadsUnavailable(t *testing.T) {
	var s *Sample
	if s.Get("anything").IsAvailable() {
		t.Error("nil sample should read unavailable")
	}
	if _, ok := s.Float("anything"); ok {
		t.Error("nil sample Float should report !ok")
	}
}
