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

package armval_test

import (
	"testing"

	"github.com/dyldarm/armvm/armval"
	"github.com/dyldarm/armvm/vmerrors"
)

func TestAddIntAndToken(t *testing.T) {
	got, err := armval.Add(armval.Stack(4), armval.Int(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if off, ok := got.StackOffset(); !ok || off != 12 {
		t.Fatalf("got %v, want stack+12", got)
	}

	got, err = armval.Add(armval.Int(8), armval.Heap(1, -4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h, off, ok := got.HeapHandle(); !ok || h != 1 || off != 4 {
		t.Fatalf("got %v, want heap#1+4", got)
	}
}

func TestSubStackDistance(t *testing.T) {
	got, err := armval.Sub(armval.Stack(10), armval.Stack(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := got.AsInt(); !ok || v != 6 {
		t.Fatalf("got %v, want int 6", got)
	}
}

func TestSubHeapDifferentHandlesFails(t *testing.T) {
	_, err := armval.Sub(armval.Heap(1, 0), armval.Heap(2, 0))
	if !vmerrors.Has(err, vmerrors.TokenKindMismatch) {
		t.Fatalf("expected TokenKindMismatch, got %v", err)
	}
}

func TestAddTwoTokensFails(t *testing.T) {
	_, err := armval.Add(armval.Stack(0), armval.Heap(1, 0))
	if !vmerrors.Has(err, vmerrors.TokenKindMismatch) {
		t.Fatalf("expected TokenKindMismatch, got %v", err)
	}
}

func TestBitwiseRejectsTokens(t *testing.T) {
	if _, err := armval.And(armval.Stack(0), armval.Int(1)); !vmerrors.Has(err, vmerrors.TokenKindMismatch) {
		t.Fatalf("expected And on a stack token to fail loudly, got %v", err)
	}
	if _, err := armval.Or(armval.Heap(1, 0), armval.Int(1)); !vmerrors.Has(err, vmerrors.TokenKindMismatch) {
		t.Fatalf("expected Or on a heap token to fail loudly, got %v", err)
	}
}

func TestCompareSameKind(t *testing.T) {
	c, err := armval.Compare(armval.Int(3), armval.Int(7))
	if err != nil || c >= 0 {
		t.Fatalf("got (%d, %v), want negative, nil", c, err)
	}

	c, err = armval.Compare(armval.Stack(5), armval.Stack(5))
	if err != nil || c != 0 {
		t.Fatalf("got (%d, %v), want 0, nil", c, err)
	}
}

func TestCompareCrossKindFails(t *testing.T) {
	if _, err := armval.Compare(armval.Int(0), armval.Stack(0)); !vmerrors.Has(err, vmerrors.TokenKindMismatch) {
		t.Fatalf("expected cross-kind compare to fail, got %v", err)
	}
}

func TestReturnSentinel(t *testing.T) {
	if !armval.Ret.IsReturn() {
		t.Fatalf("Ret.IsReturn() = false")
	}
	if !armval.Ret.Equal(armval.Ret) {
		t.Fatalf("Ret should equal itself")
	}
}

func TestShiftRejectsTokens(t *testing.T) {
	if _, err := armval.Lsl(armval.Stack(0), 1); !vmerrors.Has(err, vmerrors.TokenKindMismatch) {
		t.Fatalf("expected Lsl on a token to fail, got %v", err)
	}
}

func TestAsrSignExtends(t *testing.T) {
	got, err := armval.Asr(armval.Int(0x80000000), 31)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := got.AsInt(); v != 0xffffffff {
		t.Fatalf("got %#x, want 0xffffffff", v)
	}
}
