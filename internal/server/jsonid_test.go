package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONIDAcceptsStringAndNumber(t *testing.T) {
	cases := []struct {
		raw  string
		want jsonID
	}{
		{`"abc-123"`, "abc-123"},
		{`4242`, "4242"},
		{`12345678901234567890`, "12345678901234567890"}, // beyond int64
		{`null`, ""},
	}
	for _, tc := range cases {
		var id jsonID
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &id))
		assert.Equal(t, tc.want, id)
	}
}

func TestJSONIDRejectsObjects(t *testing.T) {
	var id jsonID
	assert.Error(t, json.Unmarshal([]byte(`{"nested":1}`), &id))
}
