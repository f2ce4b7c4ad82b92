package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_Valid(t *testing.T) {
	resp, err := parseResponse(`{"facts":[{"name":"water demand","type":"quantity","value":"1200","unit":"m3/d","confidence":0.8}]}`)
	require.NoError(t, err)
	require.Len(t, resp.Facts, 1)
	assert.Equal(t, "water demand", resp.Facts[0].Name)
	assert.Equal(t, "m3/d", resp.Facts[0].Unit)
	assert.InDelta(t, 0.8, resp.Facts[0].Confidence, 1e-9)
}

func TestParseResponse_CodeFenced(t *testing.T) {
	fenced := "```json\n{\"facts\":[{\"name\":\"fuel type\",\"type\":\"categorical\",\"value\":\"diesel\"}]}\n```"
	resp, err := parseResponse(fenced)
	require.NoError(t, err)
	require.Len(t, resp.Facts, 1)
	assert.Equal(t, "diesel", resp.Facts[0].Value)
}

func TestParseResponse_EmptyFacts(t *testing.T) {
	resp, err := parseResponse(`{"facts":[]}`)
	require.NoError(t, err)
	assert.Empty(t, resp.Facts)
}

func TestParseResponse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"prose", "Here are the facts I found in the document."},
		{"missing facts key", `{"results":[]}`},
		{"missing required field", `{"facts":[{"name":"x","type":"quantity"}]}`},
		{"bad type enum", `{"facts":[{"name":"x","type":"numeric","value":"1"}]}`},
		{"empty name", `{"facts":[{"name":"","type":"quantity","value":"1"}]}`},
		{"confidence out of range", `{"facts":[{"name":"x","type":"quantity","value":"1","confidence":1.5}]}`},
		{"numeric value not string", `{"facts":[{"name":"x","type":"quantity","value":120}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResponse(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
