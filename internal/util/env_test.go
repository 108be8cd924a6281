package util

import "testing"

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		want  int
	}{
		{"Unset", "", false, 10},
		{"Valid", "5", true, 5},
		{"Padded", " 7 ", true, 7},
		{"Malformed", "ten", true, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("RELEX_TEST_INT", tt.value)
			}
			if got := GetEnvInt("RELEX_TEST_INT", 10); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"no", false},
		{"maybe", true},
	}
	for _, tt := range tests {
		t.Setenv("RELEX_TEST_BOOL", tt.value)
		if got := GetEnvBool("RELEX_TEST_BOOL", true); got != tt.want {
			t.Fatalf("GetEnvBool(%q): expected %v, got %v", tt.value, tt.want, got)
		}
	}
}

func TestGetEnvString(t *testing.T) {
	t.Setenv("RELEX_TEST_STRING", "")
	if got := GetEnvString("RELEX_TEST_STRING", "predicted_sentences.txt"); got != "predicted_sentences.txt" {
		t.Fatalf("expected default for empty value, got %q", got)
	}
	t.Setenv("RELEX_TEST_STRING", "out.txt")
	if got := GetEnvString("RELEX_TEST_STRING", "predicted_sentences.txt"); got != "out.txt" {
		t.Fatalf("expected out.txt, got %q", got)
	}
}
