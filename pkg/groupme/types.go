package groupme

import (
	"encoding/json"
	"fmt"
)

// Fields holds server fields that have no typed counterpart on a resource.
// The API adds fields over time; anything a resource's struct does not
// recognize lands here instead of being dropped.
type Fields map[string]json.RawMessage

// Field returns the raw JSON value of an extension field. It fails with
// ErrUnknownField for names the server did not send.
func (f Fields) Field(name string) (json.RawMessage, error) {
	v, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("groupme: field %q: %w", name, ErrUnknownField)
	}
	return v, nil
}

// splitExtra returns the keys of data that are not in known, as a Fields
// bag. Returns nil when every key is recognized.
func splitExtra(data []byte, known []string) (Fields, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}
