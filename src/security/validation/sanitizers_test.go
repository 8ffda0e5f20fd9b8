package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Groceries at the market", "Groceries at the market"},
		{"script stripped", `<script>alert("x")</script>Rent`, "Rent"},
		{"tags stripped, text kept", "<b>Salary</b> payment", "Salary payment"},
		{"whitespace trimmed", "  Coffee  ", "Coffee"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.input))
		})
	}
}

func TestStripUnprintable(t *testing.T) {
	assert.Equal(t, "abc", StripUnprintable("a\x00b\x1bc"))
	assert.Equal(t, "line1\nline2\t.", StripUnprintable("line1\nline2\t."))
}
