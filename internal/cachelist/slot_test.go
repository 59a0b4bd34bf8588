package cachelist

import "testing"

func TestSlotStates(t *testing.T) {
	tests := []struct {
		name      string
		slot      Slot[string]
		wantState State
		wantKnown bool
		wantStr   string
	}{
		{name: "zero value", slot: Slot[string]{}, wantState: StateUnknown, wantKnown: false, wantStr: "unknown"},
		{name: "unknown", slot: Unknown[string](), wantState: StateUnknown, wantKnown: false, wantStr: "unknown"},
		{name: "empty", slot: Empty[string](), wantState: StateEmpty, wantKnown: true, wantStr: "empty"},
		{name: "value", slot: Value("a"), wantState: StateValue, wantKnown: true, wantStr: "value(a)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.slot.State(); got != tt.wantState {
				t.Errorf("Expected state %v, got %v", tt.wantState, got)
			}
			if got := tt.slot.Known(); got != tt.wantKnown {
				t.Errorf("Expected known=%v, got %v", tt.wantKnown, got)
			}
			if got := tt.slot.String(); got != tt.wantStr {
				t.Errorf("Expected %q, got %q", tt.wantStr, got)
			}
		})
	}
}

func TestMap(t *testing.T) {
	double := func(v int) Slot[int] { return Value(v * 2) }

	if v, ok := Map(Value(3), double).Get(); !ok || v != 6 {
		t.Errorf("Expected value 6, got %v (ok=%v)", v, ok)
	}
	if s := Map(Empty[int](), double); s.State() != StateEmpty {
		t.Errorf("Expected empty to stay empty, got %v", s)
	}
	if s := Map(Unknown[int](), double); s.State() != StateUnknown {
		t.Errorf("Expected unknown to stay unknown, got %v", s)
	}

	dropOdd := func(v int) Slot[int] {
		if v%2 == 1 {
			return Empty[int]()
		}
		return Value(v)
	}
	if s := Map(Value(3), dropOdd); s.State() != StateEmpty {
		t.Errorf("Expected filtered value to become empty, got %v", s)
	}
}
