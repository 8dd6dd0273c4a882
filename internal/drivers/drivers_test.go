package drivers

import (
	"errors"
	"runtime"
	"testing"

	"github.com/allbin/serialterm/internal/transport"
)

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 2 || names[0] != "accessory" || names[1] != "native" {
		t.Errorf("Names() = %v", names)
	}
}

func TestNewDefault(t *testing.T) {
	d, err := New("", Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if d.Name() != Default {
		t.Errorf("Expected default driver %q, got %q", Default, d.Name())
	}
}

func TestNewNamed(t *testing.T) {
	d, err := New("native", Options{})
	if err != nil {
		t.Fatalf("New(native) failed: %v", err)
	}
	if d.Name() != "native" {
		t.Errorf("Name() = %q", d.Name())
	}

	d, err = New("accessory", Options{})
	if runtime.GOOS != "linux" && runtime.GOOS != "android" {
		if !errors.Is(err, transport.ErrUnsupported) {
			t.Errorf("Expected ErrUnsupported off linux, got %v", err)
		}
		return
	}
	if err != nil {
		t.Fatalf("New(accessory) failed: %v", err)
	}
	if d.Name() != "accessory" {
		t.Errorf("Name() = %q", d.Name())
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("bluetooth", Options{}); err == nil {
		t.Error("Expected error for unknown driver")
	}
}
