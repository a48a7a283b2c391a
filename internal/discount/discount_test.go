package discount

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := map[string]int{
		"":        0,
		"abc":     0,
		"25":      25,
		" 40":     40,
		"50abc":   50,
		"12.9":    12,
		"-10":     0,
		"100":     100,
		"250":     100,
		"9999999": 100,
		"+15":     15,
	}

	for in, want := range tests {
		assert.Equal(t, want, Parse(in), "input %q", in)
	}
}

func TestPercentageUnmarshal(t *testing.T) {
	var body struct {
		A Percentage `json:"a"`
		B Percentage `json:"b"`
		C Percentage `json:"c"`
		D Percentage `json:"d"`
		E Percentage `json:"e"`
	}

	err := json.Unmarshal([]byte(`{"a":"30","b":45,"c":"oops","d":150.7,"e":null}`), &body)
	require.NoError(t, err)

	assert.Equal(t, 30, body.A.Int())
	assert.Equal(t, 45, body.B.Int())
	assert.Equal(t, 0, body.C.Int())
	assert.Equal(t, 100, body.D.Int())
	assert.Equal(t, 0, body.E.Int())
}

func TestIsFree(t *testing.T) {
	assert.True(t, IsFree(100, false))
	assert.True(t, IsFree(0, true))
	assert.False(t, IsFree(99, false))
}

func TestCodesResolve(t *testing.T) {
	codes := NewCodes(map[string]int{"FREE100": 100, "half": 50, "silly": 400, " ": 10})

	pct, ok := codes.Resolve("free100")
	require.True(t, ok)
	assert.Equal(t, 100, pct)

	pct, ok = codes.Resolve(" HALF ")
	require.True(t, ok)
	assert.Equal(t, 50, pct)

	pct, ok = codes.Resolve("SILLY")
	require.True(t, ok)
	assert.Equal(t, 100, pct)

	_, ok = codes.Resolve("NOPE")
	assert.False(t, ok)

	var nilCodes *Codes
	_, ok = nilCodes.Resolve("FREE100")
	assert.False(t, ok)
}
