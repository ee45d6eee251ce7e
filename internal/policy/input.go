package policy

import (
	"encoding/json"
	"fmt"
)

// FilterInput decodes a JSON object and keeps only the allowed keys, re-encoded so the
// caller can deserialize the result into its request type. Keys outside allowed are
// dropped silently, so a self-service caller sending "customer" gets it ignored.
func FilterInput(body []byte, allowed FieldSet) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("request body must be a JSON object")
	}

	kept := make(map[string]json.RawMessage, len(raw))
	for key, value := range raw {
		if allowed.Has(key) {
			kept[key] = value
		}
	}
	return json.Marshal(kept)
}
