package tuple

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestTuple_EncodeKnownBytes(t *testing.T) {
	testCases := []struct {
		name  string
		tuple Tuple
		want  []byte
	}{
		{
			name:  "negative three byte integer",
			tuple: New(Int(-5551212)),
			want:  []byte{0x11, 0xAB, 0x4B, 0x93},
		},
		{
			name:  "positive two byte integer",
			tuple: New(Int(1451)),
			want:  []byte{0x16, 0x05, 0xAB},
		},
		{
			name:  "text",
			tuple: New(Text("Test Value")),
			want:  append(append([]byte{0x02}, "Test Value"...), 0x00),
		},
		{
			name:  "bytes with embedded zero",
			tuple: New(Bytes{0x01, 0x00, 0x02}),
			want:  []byte{0x01, 0x01, 0x00, 0xFF, 0x02, 0x00},
		},
		{
			name:  "empty tuple",
			tuple: New(),
			want:  nil,
		},
		{
			name:  "null",
			tuple: New(Null{}),
			want:  []byte{0x00},
		},
		{
			name:  "booleans",
			tuple: New(Bool(false), Bool(true)),
			want:  []byte{0x26, 0x27},
		},
		{
			name:  "zero",
			tuple: New(Int(0)),
			want:  []byte{0x14},
		},
		{
			name:  "minus one",
			tuple: New(Int(-1)),
			want:  []byte{0x13, 0xFE},
		},
		{
			name:  "max int64",
			tuple: New(Int(math.MaxInt64)),
			want:  []byte{0x1C, 0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
		{
			name:  "min int64",
			tuple: New(Int(math.MinInt64)),
			want:  []byte{0x0C, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name:  "float64 one",
			tuple: New(Float64(1)),
			want:  []byte{0x21, 0xBF, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name:  "float32 minus one",
			tuple: New(Float32(-1)),
			want:  []byte{0x20, 0x40, 0x7F, 0xFF, 0xFF},
		},
		{
			name:  "empty nested tuple",
			tuple: New(New()),
			want:  []byte{0x05, 0x00},
		},
		{
			name:  "nested tuple escapes every zero",
			tuple: New(New(Null{}, Text("a\x00b"))),
			want:  []byte{0x05, 0x00, 0xFF, 0x02, 0x61, 0x00, 0xFF, 0xFF, 0x62, 0x00, 0xFF, 0x00},
		},
		{
			name:  "uuid",
			tuple: New(UUID(uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff"))),
			want: []byte{
				0x30, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77,
				0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.tuple.Encode()
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("Encode mismatch: got % x, want % x", got, tc.want)
			}
		})
	}
}

func TestTuple_RoundTrip(t *testing.T) {
	deep := New(Int(7))
	for i := 0; i < 16; i++ {
		deep = New(Text("level"), deep, Null{})
	}

	testCases := []struct {
		name  string
		tuple Tuple
	}{
		{"empty", New()},
		{"zero", New(Int(0))},
		{"min int64 plus one", New(Int(math.MinInt64 + 1))},
		{"min int64", New(Int(math.MinInt64))},
		{"max int64", New(Int(math.MaxInt64))},
		{"empty text", New(Text(""))},
		{"empty bytes", New(Bytes{})},
		{"text with zero", New(Text("a\x00b\x00"))},
		{"bytes of zeros", New(Bytes{0x00, 0x00, 0xFF, 0x00})},
		{"unicode text", New(Text("🔑 unicode émojis"))},
		{"empty nested", New(New())},
		{"nested with zero int", New(New(Int(0)))},
		{"nested with zero in string", New(New(Text("x\x00y")))},
		{"nested nulls", New(New(Null{}, New(Null{})), Null{})},
		{"deeply nested", deep},
		{"floats", New(Float32(3.25), Float64(-2.5e-300), Float64(math.Inf(1)), Float32(float32(math.Inf(-1))))},
		{"negative zero", New(Float64(math.Copysign(0, -1)), Float32(float32(math.Copysign(0, -1))))},
		{"nan", New(Float64(math.NaN()))},
		{"uuid", New(UUID(uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")))},
		{"mixed", New(Text("outer"), New(Text("inner"), Int(1)), Text("end"), Bool(true), Bytes("raw"))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			enc := tc.tuple.Encode()
			decoded, err := Decode(enc)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !decoded.Equal(tc.tuple) {
				t.Errorf("round trip mismatch: got %v, want %v", decoded, tc.tuple)
			}
			if !bytes.Equal(decoded.Encode(), enc) {
				t.Errorf("re-encoding differs: got % x, want % x", decoded.Encode(), enc)
			}
		})
	}
}

func TestTuple_NestedScenario(t *testing.T) {
	enc := New(Text("outer"), New(Text("inner"), Int(1)), Text("end")).Encode()

	decoded, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", decoded.Len())
	}

	middle, ok := decoded.At(1)
	if !ok {
		t.Fatal("expected element at index 1")
	}
	nested, ok := middle.(Tuple)
	if !ok {
		t.Fatalf("expected nested tuple, got %T", middle)
	}
	if nested.Len() != 2 {
		t.Errorf("expected nested length 2, got %d", nested.Len())
	}
	if first, _ := nested.At(0); first != Text("inner") {
		t.Errorf("expected inner text, got %v", first)
	}
}

func TestDecode_Empty(t *testing.T) {
	decoded, err := Decode(New().Encode())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Len() != 0 {
		t.Errorf("expected empty tuple, got %v", decoded)
	}
}

func TestTuple_IntegerOrdering(t *testing.T) {
	values := []int64{
		math.MinInt64,
		math.MinInt64 + 1,
		-(1 << 56) - 1,
		-(1 << 56),
		-(1 << 56) + 1,
		-(1 << 32),
		-65536,
		-65535,
		-256,
		-255,
		-2,
		-1,
		0,
		1,
		2,
		255,
		256,
		65535,
		65536,
		1 << 32,
		1<<56 - 1,
		1 << 56,
		1<<56 + 1,
		math.MaxInt64 - 1,
		math.MaxInt64,
	}

	for i := 1; i < len(values); i++ {
		a := New(Int(values[i-1])).Encode()
		b := New(Int(values[i])).Encode()
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("encode(%d) = % x is not below encode(%d) = % x", values[i-1], a, values[i], b)
		}
	}
}

func TestTuple_FloatOrdering(t *testing.T) {
	values := []float64{
		math.Inf(-1),
		-math.MaxFloat64,
		-1e10,
		-1,
		-math.SmallestNonzeroFloat64,
		math.Copysign(0, -1),
		0,
		math.SmallestNonzeroFloat64,
		1,
		1e10,
		math.MaxFloat64,
		math.Inf(1),
	}

	for i := 1; i < len(values); i++ {
		a := New(Float64(values[i-1])).Encode()
		b := New(Float64(values[i])).Encode()
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("float64 %v does not sort below %v", values[i-1], values[i])
		}

		a32 := New(Float32(float32(values[i-1]))).Encode()
		b32 := New(Float32(float32(values[i]))).Encode()
		if float32(values[i-1]) != float32(values[i]) && bytes.Compare(a32, b32) >= 0 {
			t.Errorf("float32 %v does not sort below %v", float32(values[i-1]), float32(values[i]))
		}
	}
}

func TestTuple_FloatEquality(t *testing.T) {
	if New(Float64(0)).Equal(New(Float64(math.Copysign(0, -1)))) {
		t.Error("expected +0.0 and -0.0 to differ")
	}
	if New(Float32(0)).Hash() == New(Float32(float32(math.Copysign(0, -1)))).Hash() {
		t.Error("expected +0.0 and -0.0 hashes to differ")
	}

	nan := math.NaN()
	if !New(Float64(nan)).Equal(New(Float64(nan))) {
		t.Error("expected bit-identical NaNs to be equal")
	}
	if New(Float64(nan)).Hash() != New(Float64(nan)).Hash() {
		t.Error("expected bit-identical NaNs to hash equally")
	}
}

func TestTuple_TextOrdering(t *testing.T) {
	values := []string{"", "\x00", "\x00\x00", "\x00a", "a", "a\x00", "a\x00\x00", "ab", "b"}
	for i := 1; i < len(values); i++ {
		a := New(Text(values[i-1])).Encode()
		b := New(Text(values[i])).Encode()
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("%q does not sort below %q", values[i-1], values[i])
		}
	}
}

func TestTuple_PrefixProperty(t *testing.T) {
	a := New(Text("users"))
	ab := a.Append(Int(42))

	want := append(a.Encode(), New(Int(42)).Encode()...)
	if !bytes.Equal(ab.Encode(), want) {
		t.Fatalf("encode(a, b) = % x, want % x", ab.Encode(), want)
	}
	if !ab.HasPrefix(a) {
		t.Error("expected (a, b) to have prefix (a)")
	}
	if a.HasPrefix(ab) {
		t.Error("did not expect (a) to have prefix (a, b)")
	}

	begin, end := a.Range()
	extensions := []Tuple{
		a.Append(Null{}),
		a.Append(Int(math.MinInt64)),
		a.Append(Text("")),
		a.Append(UUID(uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff"))),
		a.Append(New(Int(1)), Text("more")),
	}
	for _, ext := range extensions {
		enc := ext.Encode()
		if bytes.Compare(enc, begin) < 0 || bytes.Compare(enc, end) >= 0 {
			t.Errorf("%v not inside child range of %v", ext, a)
		}
	}

	if enc := a.Encode(); bytes.Compare(enc, begin) >= 0 {
		t.Errorf("prefix itself should sort before its child range")
	}
	if enc := New(Text("usert")).Encode(); bytes.Compare(enc, begin) >= 0 && bytes.Compare(enc, end) < 0 {
		t.Errorf("sibling tuple must not fall inside the child range")
	}
}

func TestTuple_At(t *testing.T) {
	tup := New(Int(1), Text("two"))

	if e, ok := tup.At(1); !ok || e != Text("two") {
		t.Errorf("At(1) = %v, %v", e, ok)
	}
	for _, i := range []int{-1, 2, 100} {
		if e, ok := tup.At(i); ok || e != nil {
			t.Errorf("At(%d) = %v, %v; want no element", i, e, ok)
		}
	}
}

func TestTuple_Immutable(t *testing.T) {
	elems := []Element{Int(1), Int(2)}
	tup := New(elems...)
	elems[0] = Int(99)

	if e, _ := tup.At(0); e != Int(1) {
		t.Errorf("tuple changed after source slice mutation: %v", tup)
	}

	out := tup.Elements()
	out[1] = Int(99)
	if e, _ := tup.At(1); e != Int(2) {
		t.Errorf("tuple changed after Elements mutation: %v", tup)
	}
}

func TestTuple_NilElementIsNull(t *testing.T) {
	tup := New(nil, Int(1))
	if e, _ := tup.At(0); e.Kind() != KindNull {
		t.Errorf("expected null, got %v", e.Kind())
	}
}

func TestOf(t *testing.T) {
	id := uuid.New()
	tup, err := Of(nil, "s", []byte{1}, true, 3, int8(-4), uint32(5), uint64(6), float32(1.5), 2.5, id, []any{"x", 1})
	if err != nil {
		t.Fatalf("Of failed: %v", err)
	}
	want := New(Null{}, Text("s"), Bytes{1}, Bool(true), Int(3), Int(-4), Int(5), Int(6),
		Float32(1.5), Float64(2.5), UUID(id), New(Text("x"), Int(1)))
	if !tup.Equal(want) {
		t.Errorf("Of = %v, want %v", tup, want)
	}

	if _, err := Of(uint64(math.MaxUint64)); err == nil {
		t.Error("expected overflow error for MaxUint64")
	}
	if _, err := Of(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
	if _, err := Of("ok", "\xff"); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8 for a non-UTF-8 string, got %v", err)
	}
	if _, err := Of(New(Text("\xc3"))); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8 for a nested non-UTF-8 Text, got %v", err)
	}
}

func TestTuple_Validate(t *testing.T) {
	if err := New(Text("héllo"), New(Text("ok")), Bytes{0xFF}).Validate(); err != nil {
		t.Errorf("valid tuple rejected: %v", err)
	}

	bad := New(Text("ok"), New(Int(1), Text("\xff")))
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
	if !strings.Contains(err.Error(), "element 1") {
		t.Errorf("error should name the element: %v", err)
	}

	// its encoding does not decode
	if _, err := Decode(bad.Encode()); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected decode of invalid text to fail, got %v", err)
	}
}

func TestTuple_String(t *testing.T) {
	tup := New(Text("outer"), New(Text("inner"), Int(-1)), Bytes{0x00, 'a', 0xFF}, Null{},
		Bool(true), Float64(1), Float32(0.5), Float64(math.Inf(-1)),
		UUID(uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")))
	want := `("outer", ("inner", -1), b"\x00a\xff", nil, true, 1.0, f32(0.5), -inf, uuid(123e4567-e89b-12d3-a456-426614174000))`
	if got := tup.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestCompare(t *testing.T) {
	a := New(Text("a"), Int(2))
	b := New(Text("a"), Int(10))
	if Compare(a, b) >= 0 {
		t.Error("expected (a, 2) < (a, 10)")
	}
	if Compare(b, a) <= 0 {
		t.Error("expected (a, 10) > (a, 2)")
	}
	if Compare(a, New(Text("a"), Int(2))) != 0 {
		t.Error("expected equal tuples to compare equal")
	}
}

func TestTuple_ConcurrentUse(t *testing.T) {
	tup := New(Text("shared"), New(Int(1), Bytes{0}), Float64(2))
	want := tup.Encode()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !bytes.Equal(tup.Encode(), want) {
					t.Error("concurrent encode mismatch")
					return
				}
				if _, err := Decode(want); err != nil {
					t.Errorf("concurrent decode failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestTagRange(t *testing.T) {
	samples := []Element{
		Null{}, Bytes{0x00}, Text("a"), New(Int(1)), Int(0), Int(-1), Int(math.MinInt64),
		Int(math.MaxInt64), Float32(-2), Float64(math.Inf(1)), Bool(false), Bool(true), UUID(uuid.New()),
	}
	for _, e := range samples {
		first, last := TagRange(e.Kind())
		tag := New(e).Encode()[0]
		if tag < first || tag > last {
			t.Errorf("%v: tag %#x outside [%#x, %#x]", e, tag, first, last)
		}
	}
}
