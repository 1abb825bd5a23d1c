package state

import (
	"errors"
	"testing"

	"github.com/chaz8081/ble-button/internal/ble"
	"github.com/chaz8081/ble-button/internal/ble/bletest"
)

func TestNewPublisherRegistersInitialValue(t *testing.T) {
	stack := bletest.New()
	p, err := NewPublisher(stack, false, DefaultOptions())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	if stack.AttributeCount() != 1 {
		t.Fatalf("registered %d attributes, want 1", stack.AttributeCount())
	}
	attr := stack.Attributes[0]
	if attr.ServiceUUID != ble.ButtonServiceUUID || attr.CharacteristicUUID != ble.ButtonStateCharUUID {
		t.Errorf("attribute = %04X/%04X, want %04X/%04X",
			attr.ServiceUUID, attr.CharacteristicUUID, ble.ButtonServiceUUID, ble.ButtonStateCharUUID)
	}
	if len(attr.Initial) != 1 || attr.Initial[0] != 0x00 {
		t.Errorf("initial value = %v, want [0]", attr.Initial)
	}
	if p.Value() {
		t.Error("Value() = true, want false")
	}
	if stack.NotificationCount() != 0 {
		t.Errorf("construction notified %d times, want 0", stack.NotificationCount())
	}
}

func TestNewPublisherRegisterError(t *testing.T) {
	stack := bletest.New()
	stack.RegisterErr = errors.New("table full")

	_, err := NewPublisher(stack, false, DefaultOptions())
	if err == nil {
		t.Fatal("NewPublisher() should fail when registration fails")
	}
	if !errors.Is(err, stack.RegisterErr) {
		t.Errorf("error = %v, want wrapped %v", err, stack.RegisterErr)
	}
}

func TestUpdateDoesNotCoalesce(t *testing.T) {
	stack := bletest.New()
	p, err := NewPublisher(stack, false, DefaultOptions())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	p.Update(true)
	p.Update(true)

	if stack.NotificationCount() != 2 {
		t.Fatalf("notifications = %d, want 2", stack.NotificationCount())
	}
	for i, n := range stack.Notifications {
		if n.Handle != p.Handle() {
			t.Errorf("notification %d handle = %d, want %d", i, n.Handle, p.Handle())
		}
		if len(n.Value) != 1 || n.Value[0] != 0x01 {
			t.Errorf("notification %d value = %v, want [1]", i, n.Value)
		}
	}
	if p.Notifications() != 2 {
		t.Errorf("Notifications() = %d, want 2", p.Notifications())
	}
}

func TestUpdateAbsorbsNotifyError(t *testing.T) {
	stack := bletest.New()
	p, err := NewPublisher(stack, false, DefaultOptions())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	stack.NotifyErr = errors.New("no subscribers")

	p.Update(true)

	if !p.Value() {
		t.Error("Value() = false after Update(true) with failing notify")
	}
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		value   []byte
		want    bool
		wantErr bool
	}{
		{name: "released", value: []byte{0x00}, want: false},
		{name: "pressed", value: []byte{0x01}, want: true},
		{name: "non-zero is pressed", value: []byte{0x7f}, want: true},
		{name: "empty", value: nil, wantErr: true},
		{name: "too long", value: []byte{0x01, 0x00}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Decode(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}

	if got := Encode(true); len(got) != 1 || got[0] != 0x01 {
		t.Errorf("Encode(true) = %v, want [1]", got)
	}
	if got := Encode(false); len(got) != 1 || got[0] != 0x00 {
		t.Errorf("Encode(false) = %v, want [0]", got)
	}
}
