package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffiliateCodePrefix(t *testing.T) {
	tests := []struct {
		name      string
		inputName string
		email     string
		want      string
	}{
		{"plain name", "Budi Santoso", "budi@example.com", "BUDI"},
		{"short name padded", "Al", "al@example.com", "ALXX"},
		{"name with digits stripped", "Agent007", "a7@example.com", "AGEN"},
		{"unusable name falls back to email", "1234", "sari.w@example.com", "SARI"},
		{"everything unusable falls back to default", "...", "12@34.com", "AGEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AffiliateCodePrefix(tt.inputName, tt.email))
		})
	}
}

func TestGenerateAffiliateCode(t *testing.T) {
	code, err := GenerateAffiliateCode("Budi Santoso", "budi@example.com")
	require.NoError(t, err)

	require.Len(t, code, 8)
	assert.Equal(t, "BUDI", code[:4])
	for _, r := range code[4:] {
		assert.True(t, r >= '0' && r <= '9', "suffix must be digits, got %q", code)
	}
}

func TestGenerateAffiliateCodeVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateAffiliateCode("Budi", "budi@example.com")
		require.NoError(t, err)
		seen[code] = true
	}
	// 50 draws from 10000 suffixes collide sometimes, but not into one value.
	assert.Greater(t, len(seen), 1)
}
