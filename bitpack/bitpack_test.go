package bitpack

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestBitsMSBFirst(t *testing.T) {
	w := NewWriter()
	w.Bits(0x5, 3)  // 101
	w.Bits(0x1, 1)  // 1
	w.Bits(0x0, 2)  // 00
	w.Bits(0x3, 2)  // 11
	w.Bits(0x1, 1)  // 1 + 7 bits padding
	got := w.Bytes()
	want := []byte{0xB3, 0x80}
	if !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
	if w.Len() != 9 {
		t.Errorf("Len() = %d, want 9", w.Len())
	}
}

func TestBitsRejectsOverflow(t *testing.T) {
	w := NewWriter()
	if err := w.Bits(8, 3); !errors.Is(err, ErrFieldRange) {
		t.Errorf("Bits(8, 3) error = %v, want ErrFieldRange", err)
	}
}

func TestVaruintBoundaries(t *testing.T) {
	cases := []struct {
		value uint32
		bits  int
	}{
		{0, 2},
		{1, 4},
		{4, 4},
		{5, 7},
		{36, 7},
		{37, 9},
		{163, 9},
		{164, 29},
		{1048575, 29},
	}
	for _, tc := range cases {
		w := NewWriter()
		if err := w.Varuint(tc.value); err != nil {
			t.Fatalf("Varuint(%d): %v", tc.value, err)
		}
		if w.Len() != tc.bits {
			t.Errorf("Varuint(%d) used %d bits, want %d", tc.value, w.Len(), tc.bits)
		}
		r := NewReader(w.Bytes())
		got, err := r.Varuint()
		if err != nil {
			t.Fatalf("read back %d: %v", tc.value, err)
		}
		if got != tc.value {
			t.Errorf("round trip %d = %d", tc.value, got)
		}
	}
}

func TestVaruintRejectsLarge(t *testing.T) {
	w := NewWriter()
	if err := w.Varuint(1048576); !errors.Is(err, ErrVaruintRange) {
		t.Errorf("Varuint(1048576) error = %v, want ErrVaruintRange", err)
	}
}

func TestVaruintSequence(t *testing.T) {
	values := []uint32{0, 3, 17, 100, 200, 5, 0, 999999}
	w := NewWriter()
	for _, v := range values {
		if err := w.Varuint(v); err != nil {
			t.Fatal(err)
		}
	}
	r := NewReader(w.Bytes())
	for i, want := range values {
		got, err := r.Varuint()
		if err != nil {
			t.Fatalf("value %d: %v", i, err)
		}
		if got != want {
			t.Errorf("value %d = %d, want %d", i, got, want)
		}
	}
}

func TestPackStringReference(t *testing.T) {
	w := NewWriter()
	if err := PackString(w, "testString1234567890!"); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0xAC, 0xC9, 0x29, 0xF2, 0x53, 0x8A, 0x1A, 0x6D, 0x1D, 0x2D,
		0x3D, 0x4D, 0x5D, 0x6D, 0x7D, 0x8D, 0x9D, 0x0F, 0x90, 0x80,
	}
	got := w.Bytes()
	if !bytes.Equal(got, want) {
		t.Errorf("packed bytes:\n  got:  %x\n  want: %x", got, want)
	}
	if w.Len() != 153 {
		t.Errorf("packed length = %d bits, want 153", w.Len())
	}

	s, err := UnpackString(NewReader(got))
	if err != nil {
		t.Fatal(err)
	}
	if s != "testString1234567890!" {
		t.Errorf("unpacked %q", s)
	}
}

func TestPackStringRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"length",
		"Object",
		"toLocaleString",
		"ABCdef",
		"URIError",
		"NEGATIVE_INFINITY",
		"\x82Value",
		"\x81Symbol.iterator\xff",
		"{\"_func\":true}",
		"with space and_underscore 42",
		strings.Repeat("x", 30),
		strings.Repeat("y", 31),
		strings.Repeat("Zz", 127),
		"\x00\x01\xfe\xff",
	}
	w := NewWriter()
	for _, s := range cases {
		if err := PackString(w, s); err != nil {
			t.Fatalf("PackString(%q): %v", s, err)
		}
	}
	r := NewReader(w.Bytes())
	for _, want := range cases {
		got, err := UnpackString(r)
		if err != nil {
			t.Fatalf("UnpackString(%q): %v", want, err)
		}
		if got != want {
			t.Errorf("round trip = %q, want %q", got, want)
		}
	}
	if r.Remaining() >= 8 {
		t.Errorf("%d unread bits left", r.Remaining())
	}
}

func TestPackStringSwitchChoice(t *testing.T) {
	// "aBCd": B and C are both uppercase so a persistent switch is used
	// once, then a one-shot switch back for d.
	oneShot, err := PackedSize("aBc")
	if err != nil {
		t.Fatal(err)
	}
	persistent, err := PackedSize("aBCd")
	if err != nil {
		t.Fatal(err)
	}
	// aBc: len(5) + a(5) + switch1(5) + B(5) + c(5)
	if oneShot != 25 {
		t.Errorf("aBc = %d bits, want 25", oneShot)
	}
	// aBCd: len(5) + a(5) + switch(5) + B(5) + C(5) + switch1(5) + d(5)
	if persistent != 35 {
		t.Errorf("aBCd = %d bits, want 35", persistent)
	}
}

func TestPackStringTooLong(t *testing.T) {
	w := NewWriter()
	err := PackString(w, strings.Repeat("a", 256))
	if !errors.Is(err, ErrStringTooLong) {
		t.Errorf("error = %v, want ErrStringTooLong", err)
	}
}
