package coupon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE20", NormalizeCode("  save20\t"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"SAVE20", true},
		{"ABC-DEFG", true},
		{"AB", false},
		{"save20", false},
		{"SAVE 20", false},
		{"SAVE_20", false},
		{strings.Repeat("A", 50), true},
		{strings.Repeat("A", 51), false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCode(tt.code))
		})
	}
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		code, err := GenerateCode("")
		require.NoError(t, err)
		require.Len(t, code, 8)
		assert.Equal(t, byte('-'), code[3])
		for _, r := range strings.ReplaceAll(code, "-", "") {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)

	code, err := GenerateCode(" ankara ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "ANKARA-"))
	assert.True(t, IsValidCode(code))

	_, err = GenerateCode("bad prefix!")
	require.Error(t, err)
}
