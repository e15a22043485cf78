package control

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		key    string
		action Action
		speed  int
		ok     bool
	}{
		{"w", MoveForward, 0, true},
		{"s", MoveBackward, 0, true},
		{"a", TurnLeft, 0, true},
		{"d", TurnRight, 0, true},
		{"c", ToggleCamera, 0, true},
		{"m", ToggleSupervision, 0, true},
		{"t", ToggleBehavior, 0, true},
		{"p", TakePicture, 0, true},
		{"1", SetSpeed, 10, true},
		{"5", SetSpeed, 50, true},
		{"9", SetSpeed, 90, true},
		{"0", SetSpeed, 100, true},
		{"W", NoAction, 0, false},
		{"x", NoAction, 0, false},
		{"10", NoAction, 0, false},
		{"", NoAction, 0, false},
		{"up", NoAction, 0, false},
	}

	for _, tt := range tests {
		ev, ok := ParseKey(tt.key)
		if ok != tt.ok || ev.Action != tt.action || ev.Speed != tt.speed {
			t.Errorf("ParseKey(%q) = %+v, %v, want {%s %d}, %v", tt.key, ev, ok, tt.action, tt.speed, tt.ok)
		}
	}
}

func TestChanInput_Next(t *testing.T) {
	in := NewChanInput(2)
	ctx := context.Background()

	if !in.Send("w") || !in.Send("s") {
		t.Fatal("Send failed with room in the buffer")
	}
	if in.Send("d") {
		t.Error("Send succeeded on a full buffer")
	}

	for _, want := range []string{"w", "s"} {
		got, err := in.Next(ctx, 0)
		if err != nil || got != want {
			t.Errorf("Next() = %q, %v, want %q", got, err, want)
		}
	}

	if _, err := in.Next(ctx, time.Millisecond); !errors.Is(err, ErrNoEvent) {
		t.Errorf("Next() with timeout = %v, want ErrNoEvent", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := in.Next(cancelled, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() on cancelled ctx = %v, want context.Canceled", err)
	}
}
