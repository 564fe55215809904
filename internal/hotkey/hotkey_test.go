package hotkey

import "testing"

func TestDescribe(t *testing.T) {
	tests := []struct {
		keys []string
		want string
	}{
		{keys: QuitKeys, want: "ctrl+shift+q"},
		{keys: []string{"esc"}, want: "esc"},
		{keys: nil, want: ""},
	}

	for _, tt := range tests {
		if got := Describe(tt.keys); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.keys, got, tt.want)
		}
	}
}

func TestDescribe_DoesNotModifyInput(t *testing.T) {
	keys := []string{"q", "ctrl", "shift"}
	Describe(keys)

	if keys[0] != "q" || keys[2] != "shift" {
		t.Errorf("input slice was modified: %v", keys)
	}
}
