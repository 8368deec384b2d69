package validation

import (
	"strings"
	"testing"
)

func TestValidateDomainName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "example", false},
		{"valid with tld", "example.dns", false},
		{"valid with hyphen", "my-site.dns", false},
		{"valid single char", "x", false},
		{"valid digits", "404", false},
		{"empty", "", true},
		{"uppercase", "Example", true},
		{"leading hyphen", "-example", true},
		{"trailing hyphen", "example-", true},
		{"underscore", "my_site", true},
		{"empty label", "example..dns", true},
		{"trailing dot", "example.", true},
		{"path traversal", "../etc", true},
		{"label too long", strings.Repeat("a", 64), true},
		{"name too long", strings.Repeat("abc.", 64) + "dns", true},
		{"space", "my site", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDomainName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDomainName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeDomainName(t *testing.T) {
	if got := NormalizeDomainName("  MySite.DNS "); got != "mysite.dns" {
		t.Errorf("NormalizeDomainName() = %q, want %q", got, "mysite.dns")
	}
}

func TestValidateSuiAddress(t *testing.T) {
	valid := "0x" + strings.Repeat("a1", 32)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid lowercase", valid, false},
		{"uppercase prefix", "0X" + strings.Repeat("A1", 32), true},
		{"valid mixed case hex", "0x" + strings.Repeat("aB", 32), false},
		{"missing prefix", strings.Repeat("a1", 33), true},
		{"too short", "0x1234", true},
		{"ethereum address", "0x" + strings.Repeat("a", 40), true},
		{"non-hex", "0x" + strings.Repeat("zz", 32), true},
		{"placeholder", "0x1234...5678", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSuiAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSuiAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDuration(t *testing.T) {
	for _, years := range []int{1, 2, 3, 5} {
		if err := ValidateDuration(years); err != nil {
			t.Errorf("ValidateDuration(%d) error = %v", years, err)
		}
	}
	for _, years := range []int{-1, 0, 4, 10, 11} {
		if err := ValidateDuration(years); err == nil {
			t.Errorf("ValidateDuration(%d) expected error", years)
		}
	}
}
