package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "valid substring rule",
			rule: Rule{Pattern: "uber", AccountNumber: "6100", Priority: 5, Confidence: 0.8},
		},
		{
			name: "valid regex rule",
			rule: Rule{Pattern: `^uber\s+eats`, AccountNumber: "6100", Confidence: 0.9, IsRegex: true},
		},
		{
			name:    "missing pattern",
			rule:    Rule{Pattern: "  ", AccountNumber: "6100", Confidence: 0.8},
			wantErr: true,
		},
		{
			name:    "missing account",
			rule:    Rule{Pattern: "uber", Confidence: 0.8},
			wantErr: true,
		},
		{
			name:    "confidence too high",
			rule:    Rule{Pattern: "uber", AccountNumber: "6100", Confidence: 1.2},
			wantErr: true,
		},
		{
			name:    "confidence negative",
			rule:    Rule{Pattern: "uber", AccountNumber: "6100", Confidence: -0.1},
			wantErr: true,
		},
		{
			name:    "confidence NaN",
			rule:    Rule{Pattern: "uber", AccountNumber: "6100", Confidence: math.NaN()},
			wantErr: true,
		},
		{
			name:    "broken regex",
			rule:    Rule{Pattern: "uber(", AccountNumber: "6100", Confidence: 0.8, IsRegex: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRule)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidConfidence(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1} {
		assert.True(t, ValidConfidence(v), "%v", v)
	}
	for _, v := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.False(t, ValidConfidence(v), "%v", v)
	}
}

func TestMapping(t *testing.T) {
	assert.Equal(t, "staples inc", NormalizeDescription("  STAPLES Inc \n"))
	assert.Equal(t, "strasse", NormalizeDescription("STRASSE"))

	m := NewMapping(map[string]string{
		"Staples Inc":  "6000",
		"STAPLES INC ": "6100",
		"Uber":         " 6100 ",
		"   ":          "1000",
	})

	require.Len(t, m, 2)
	number, ok := m.Get("staples inc")
	require.True(t, ok)
	assert.Equal(t, "6100", number, "lexically smallest raw key wins")

	number, ok = m.Get("UBER")
	require.True(t, ok)
	assert.Equal(t, "6100", number)

	_, ok = m.Get("lyft")
	assert.False(t, ok)
}
