package tensor

import (
	"testing"
)

func TestNewRawZeroFilled(t *testing.T) {
	raw, err := NewRaw(Shape{3, 2}, Int64)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if raw.ByteSize() != 48 {
		t.Errorf("ByteSize = %d, want 48", raw.ByteSize())
	}
	for i, v := range raw.AsInt64() {
		if v != 0 {
			t.Errorf("element %d = %d, want 0", i, v)
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	if _, err := NewRaw(Shape{2, -1}, Float32); err == nil {
		t.Error("expected error for negative dimension")
	}
	if _, err := NewRaw(Shape{0}, Float32); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestRawAsInt64(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 2}, Int64)
	data := raw.AsInt64()

	if len(data) != 6 {
		t.Errorf("AsInt64 length = %d, want 6", len(data))
	}

	// Modify and verify zero-copy
	data[0] = 42
	if raw.AsInt64()[0] != 42 {
		t.Error("AsInt64 should return zero-copy slice")
	}
}

func TestRawAsInt64WrongType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for dtype mismatch")
		}
	}()
	raw, _ := NewRaw(Shape{2}, Float32)
	raw.AsInt64()
}

func TestNewFromValues(t *testing.T) {
	raw, err := New(Shape{4}, []int64{0, 16, 64, -1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got := raw.AsInt64()
	want := []int64{0, 16, 64, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %d, want %d", i, got[i], want[i])
		}
	}
	if raw.DType() != Int64 {
		t.Errorf("DType = %s, want int64", raw.DType())
	}
}

func TestNewLengthMismatch(t *testing.T) {
	if _, err := New(Shape{3}, []int64{1, 2}); err == nil {
		t.Error("expected error for length mismatch")
	}
}

func TestScalar(t *testing.T) {
	raw := Scalar(int64(7))

	if len(raw.Shape()) != 0 {
		t.Errorf("scalar rank = %d, want 0", len(raw.Shape()))
	}
	if raw.NumElements() != 1 {
		t.Errorf("NumElements = %d, want 1", raw.NumElements())
	}
	if raw.AsInt64()[0] != 7 {
		t.Errorf("value = %d, want 7", raw.AsInt64()[0])
	}
}

func TestRawClone(t *testing.T) {
	raw, _ := New(Shape{2}, []int64{1, 2})
	clone := raw.Clone()

	clone.AsInt64()[0] = 99
	if raw.AsInt64()[0] != 1 {
		t.Error("Clone should not share memory with original")
	}
	if !clone.Shape().Equal(raw.Shape()) {
		t.Errorf("Clone shape = %v, want %v", clone.Shape(), raw.Shape())
	}
}

func TestIntsWidening(t *testing.T) {
	i32, _ := New(Shape{3}, []int32{5, 6, 7})
	got, err := i32.Ints()
	if err != nil {
		t.Fatalf("Ints failed: %v", err)
	}
	want := []int64{5, 6, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("element %d = %d, want %d", i, got[i], want[i])
		}
	}

	f32, _ := New(Shape{1}, []float32{1.5})
	if _, err := f32.Ints(); err == nil {
		t.Error("expected error for float tensor")
	}
}
