package server

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// jsonID decodes a JSON field that providers send either as a string or as a
// bare number.
type jsonID string

func (id *jsonID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = jsonID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = jsonID(n.String())
	return nil
}
