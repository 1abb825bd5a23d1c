//go:build nohotkey

package hotkey

import (
	"errors"
	"testing"
)

func TestNewUnsupported(t *testing.T) {
	if _, err := New([]string{"f9"}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("New() error = %v, want ErrUnsupported", err)
	}
}
