// This file is part of armvm.
//
// armvm is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armvm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armvm.  If not, see <https://www.gnu.org/licenses/>.

package bitpattern_test

import (
	"testing"

	"github.com/dyldarm/armvm/bitpattern"
)

func TestDiscontiguousAndRenamedFields(t *testing.T) {
	p := bitpattern.Compile("aaabbcc b_01_d1f0", map[byte]string{'b': "omg"}, nil)

	const v1 uint32 = 0b1011011100101100
	const v2 uint32 = 0b0101110111101110

	if _, ok := p.Unpack(v2); ok {
		t.Fatalf("expected v2 to fail verification")
	}

	fields, ok := p.Unpack(v1)
	if !ok {
		t.Fatalf("expected v1 to unpack")
	}

	if fields["a"] != 5 {
		t.Errorf("a = %v, want 5", fields["a"])
	}
	if fields["omg"] != 0b101 {
		t.Errorf("omg = %#b, want 0b101", fields["omg"])
	}
	if fields["c"] != 0b11 {
		t.Errorf("c = %#b, want 0b11", fields["c"])
	}
	if fields["d"] != 1 {
		t.Errorf("d = %v, want 1", fields["d"])
	}
	if fields["f"] != 0 {
		t.Errorf("f = %v, want 0", fields["f"])
	}
	if _, present := fields["b"]; present {
		t.Errorf("field %q should not be present after rename", "b")
	}

	if got := p.Pack(fields); got != v1 {
		t.Errorf("Pack roundtrip = %#b, want %#b", got, v1)
	}

	fields["a"] = 3
	if got, want := p.Pack(fields), uint32(0b0111011100101100); got != want {
		t.Errorf("Pack after mutation = %#b, want %#b", got, want)
	}
}

func TestInvalidCharacter(t *testing.T) {
	_, err := bitpattern.TryCompile("abc!", nil, nil)
	if err == nil {
		t.Fatalf("expected an error for an invalid pattern character")
	}
}

func TestCompilePanicsOnInvalidPattern(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Compile to panic on an invalid pattern")
		}
	}()
	bitpattern.Compile("abc!", nil, nil)
}

// TestPackUnpackRoundTrip is the property-based invariant of spec.md §8:
// compile(p).unpack(compile(p).pack(f)) == f, for representative field
// assignments.
func TestPackUnpackRoundTrip(t *testing.T) {
	p := bitpattern.Compile("aaaabbbbccccdddd", nil, nil)

	cases := []bitpattern.Fields{
		{"a": 0, "b": 0, "c": 0, "d": 0},
		{"a": 0xf, "b": 0x3, "c": 0x9, "d": 0x1},
		{"a": 0x5, "b": 0xa, "c": 0x0, "d": 0xf},
	}

	for _, want := range cases {
		packed := p.Pack(want)
		got, ok := p.Unpack(packed)
		if !ok {
			t.Fatalf("Unpack(%#x) failed to verify", packed)
		}
		for k, v := range want {
			if got[k] != v {
				t.Errorf("field %q = %v, want %v (packed=%#x)", k, got[k], v, packed)
			}
		}
	}
}

func TestFixUps(t *testing.T) {
	// an arbitrary invertible fix-up pair (v*4+1 on decode, its inverse on
	// encode) applied to a single field.
	fixUps := map[string]bitpattern.FixUp{
		"t": {
			PostDecode: func(v uint32) uint32 { return v*4 + 1 },
			PreEncode:  func(v uint32) uint32 { return (v - 1) / 4 },
		},
	}
	p := bitpattern.Compile("tttttttt", nil, fixUps)
	fields, ok := p.Unpack(0b00000011)
	if !ok {
		t.Fatalf("unpack failed")
	}
	if fields["t"] != 0b00000011*4+1 {
		t.Errorf("fixed-up t = %v", fields["t"])
	}
	if got := p.Pack(fields); got != 0b00000011 {
		t.Errorf("Pack after fix-up roundtrip = %#b, want %#b", got, 0b00000011)
	}
}

// TestSetFieldPreservesUnnamedBits models the status-register round-trip
// invariant of spec.md §8: reserved ('_') bit positions must survive a
// field write untouched, unlike Pack which only ever reconstructs bits the
// pattern names.
func TestSetFieldPreservesUnnamedBits(t *testing.T) {
	p := bitpattern.Compile("aaaa__bb__cccc__", nil, nil)

	const original uint32 = 0b1111110101011011
	updated := p.SetField(original, "b", 0b11)

	if want := uint32(0b1111111101011011); updated != want {
		t.Fatalf("SetField(b=0b11) = %016b, want %016b", updated, want)
	}

	fields, ok := p.Unpack(updated)
	if !ok {
		t.Fatalf("Unpack failed after SetField")
	}
	if fields["b"] != 0b11 {
		t.Errorf("b = %#b, want 0b11", fields["b"])
	}
	if fields["a"] != 0b1111 || fields["c"] != 0b0110 {
		t.Errorf("SetField disturbed an unrelated field: a=%#b c=%#b", fields["a"], fields["c"])
	}
	// the reserved bits must be whatever they were in original, since
	// SetField never touches a bit no field claims.
	const reservedMask uint32 = 0b0000110011000011
	if updated&reservedMask != original&reservedMask {
		t.Errorf("SetField disturbed reserved bits: got %016b, want %016b", updated&reservedMask, original&reservedMask)
	}
}
