package vmerrors_test

import (
	"fmt"
	"testing"

	"github.com/dyldarm/armvm/vmerrors"
)

const testError = "test error: %s"
const testErrorB = "test error B: %s"

func TestDuplicateErrors(t *testing.T) {
	e := vmerrors.Errorf(testError, "foo")
	if got, want := e.Error(), "test error: foo"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// packing errors of the same type next to each other causes one of
	// them to be dropped
	f := vmerrors.Errorf(testError, e)
	if got, want := f.Error(), "test error: foo"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestIs(t *testing.T) {
	e := vmerrors.Errorf(testError, "foo")
	if !vmerrors.Is(e, testError) {
		t.Fatalf("expected Is(e, testError) to be true")
	}
	if vmerrors.Has(e, testErrorB) {
		t.Fatalf("expected Has(e, testErrorB) to be false")
	}

	f := vmerrors.Errorf(testErrorB, e)
	if vmerrors.Is(f, testError) {
		t.Fatalf("expected Is(f, testError) to be false")
	}
	if !vmerrors.Is(f, testErrorB) {
		t.Fatalf("expected Is(f, testErrorB) to be true")
	}
	if !vmerrors.Has(f, testError) {
		t.Fatalf("expected Has(f, testError) to be true")
	}
	if !vmerrors.Has(f, testErrorB) {
		t.Fatalf("expected Has(f, testErrorB) to be true")
	}

	if !vmerrors.IsAny(e) || !vmerrors.IsAny(f) {
		t.Fatalf("expected both e and f to be curated errors")
	}
}

func TestPlainErrors(t *testing.T) {
	e := fmt.Errorf("plain test error")
	if vmerrors.IsAny(e) {
		t.Fatalf("expected IsAny(e) to be false for a plain error")
	}
	if vmerrors.Has(e, testError) {
		t.Fatalf("expected Has(e, testError) to be false for a plain error")
	}
}
