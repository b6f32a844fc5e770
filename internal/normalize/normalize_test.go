package normalize

import "testing"

func TestIsLowValue(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"gm", true},
		{"GM!", true},
		{"ok", true},
		{"wkwk", true},
		{"selamat pagi", true},
		{"good morning", true},
		{"!!!", true},
		{"gm everyone, the bridge audit report is out", false},
		{"new governance proposal is live", false},
		{"token launch delayed", false},
	}

	for _, tt := range tests {
		if got := IsLowValue(tt.text); got != tt.want {
			t.Errorf("IsLowValue(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestClean_StripsURLs(t *testing.T) {
	got := Clean("check https://example.com/phishing now")
	want := "check now"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClean_StripsMarkup(t *testing.T) {
	got := Clean("<b>alert</b>: wallet &amp; keys")
	want := "alert : wallet & keys"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClean_CollapsesWhitespace(t *testing.T) {
	got := Clean("too   many\n\nlines\there")
	want := "too many lines here"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClean_StripsEmoji(t *testing.T) {
	got := Clean("launch \U0001F680 confirmed ✅")
	want := "launch confirmed"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClean_EmptyResult(t *testing.T) {
	if got := Clean("\U0001F680\U0001F680"); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
