package detect

import "testing"

func TestValidateBSN(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"valid nine digits", "123456782", true},
		{"valid with separators", "1234.56.782", true},
		{"valid with spaces", "1234 56 782", true},
		{"valid eight digits padded", "12345672", true},
		{"checksum failure", "123456789", false},
		{"too short", "1234", false},
		{"too long", "12345678901", false},
		{"letters rejected", "abc123456", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateBSN(tt.candidate); got != tt.want {
				t.Errorf("ValidateBSN(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}
