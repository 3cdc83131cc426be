// SPDX-License-Identifier: MIT
package pixel

import (
	"math"
	"testing"
)

func rowsEqual(a, b []float64) bool {
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

func TestMirror(t *testing.T) {
	b := New(6)
	copy(b[0], []float64{0, 1, 2, 3, 4, 5})
	m := b.Mirror()
	want := []float64{5, 3, 1, 0, 2, 4}
	if !rowsEqual(m[0], want) {
		t.Errorf("Mirror = %v, want %v", m[0], want)
	}
	if m.Len() != 6 {
		t.Errorf("mirrored length %d", m.Len())
	}

	odd := New(5)
	if odd.Mirror().Len() != 5 {
		t.Errorf("odd mirror changed length")
	}
}

func TestFlipLR(t *testing.T) {
	b := New(4)
	copy(b[2], []float64{1, 2, 3, 4})
	b.FlipLR()
	if !rowsEqual(b[2], []float64{4, 3, 2, 1}) {
		t.Errorf("FlipLR = %v", b[2])
	}
}

func TestBytes(t *testing.T) {
	b := New(5)
	copy(b[0], []float64{-3, 12.9, 300, math.NaN(), 200})
	got := b.Bytes(150)
	want := []uint8{0, 12, 150, 0, 150}
	for i := range want {
		if got[0][i] != want[i] {
			t.Errorf("Bytes[%d] = %d, want %d", i, got[0][i], want[i])
		}
	}
	if got := b.Bytes(999)[0][2]; got != 255 {
		t.Errorf("max brightness above 255 not capped: %d", got)
	}
}

func TestMaskBy(t *testing.T) {
	b := New(3).Fill(100, 200, 50)
	b.MaskBy([]float64{255, 127.5, 0})
	if b[0][0] != 100 || b[1][1] != 100 || b[2][2] != 0 {
		t.Errorf("mask result %v", b)
	}
}

func TestGray(t *testing.T) {
	b := New(2).Fill(30, 60, 90)
	for i, g := range b.Gray() {
		if g != 60 {
			t.Errorf("gray[%d] = %v", i, g)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := New(2).Fill(1, 1, 1)
	c := b.Clone()
	c[0][0] = 9
	if b[0][0] != 1 {
		t.Error("Clone shares storage")
	}
}

func TestCopyFromResizes(t *testing.T) {
	dst := New(4).Fill(7, 7, 7)
	src := New(2).Fill(1, 2, 3)
	dst.CopyFrom(src)
	if !rowsEqual(dst[1], []float64{2, 2, 0, 0}) {
		t.Errorf("CopyFrom = %v", dst[1])
	}
}

func TestMirrorHalf(t *testing.T) {
	if got := MirrorHalf([]float64{1, 2, 3}); !rowsEqual(got, []float64{3, 2, 1, 1, 2, 3}) {
		t.Errorf("MirrorHalf = %v", got)
	}
}

func TestBlurKeepsZeros(t *testing.T) {
	b := New(150).Blur(1)
	for ch := range b {
		for i, v := range b[ch] {
			if v != 0 {
				t.Fatalf("blurred zero buffer has %v at [%d][%d]", v, ch, i)
			}
		}
	}
}
