package logistics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSheetName(t *testing.T) {
	used := usedSheetNames()
	long := strings.Repeat("Shree Janata Secondary School ", 2)

	tests := []struct {
		in, want string
	}{
		{"Sheet1", "Sheet1 (2)"},
		{"sheet1", "sheet1 (3)"},
		{"Shree School PK-0001", "Shree School PK-0001"},
		{"Shree School PK-0001", "Shree School PK-0001 (2)"},
		{"A/B: [C]?", "A B  (C)"},
		{" * ", "Sheet"},
		{long, "Shree Janata Secondary School S"},
		{long, "Shree Janata Secondary Scho (2)"},
	}
	for _, tt := range tests {
		got := sheetName(tt.in, used)
		assert.Equal(t, tt.want, got, tt.in)
		assert.LessOrEqual(t, len([]rune(got)), maxSheetName)
	}
}
