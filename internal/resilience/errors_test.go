package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("pool exhausted"))
	if !IsTransient(err) {
		t.Error("expected transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("reset"))
	err := fmt.Errorf("fetch population: %w", inner)
	if !IsTransient(err) {
		t.Error("expected transient through wrap")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil must not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	if IsTransient(errors.New("no such table: tract_population")) {
		t.Error("data errors must not be transient")
	}
}

func TestIsTransient_ConnectionErrors(t *testing.T) {
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		err := fmt.Errorf("dial: %w", errno)
		if !IsTransient(err) {
			t.Errorf("expected %v to be transient", errno)
		}
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	cases := []string{
		"read tcp: connection reset by peer",
		"write: broken pipe",
		"lookup db.internal: temporary failure in name resolution",
		"dial tcp: i/o timeout",
		"FATAL: sorry, too many clients already",
		"FATAL: the database system is starting up",
	}
	for _, msg := range cases {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("expected transient for %q", msg)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := NewTransientError(inner)
	if !errors.Is(err, inner) {
		t.Error("Unwrap must expose the inner error")
	}
	if err.Error() != "inner" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
