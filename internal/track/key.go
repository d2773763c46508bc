package track

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigKey derives the stable identity of a (category, variable-selection)
// pair: the category id joined with the canonical JSON of the variable-id to
// value-id map. json.Marshal emits map keys in sorted order, so the encoding
// is canonical regardless of selection order. The key is unique within one
// game (full-game scope) or one level (IL scope).
func ConfigKey(categoryID string, variables map[string]VariableValue) string {
	ids := make(map[string]string, len(variables))
	for varID, v := range variables {
		ids[varID] = v.ValueID
	}

	encoded, err := json.Marshal(ids)
	if err != nil {
		// A map[string]string cannot fail to marshal.
		panic(fmt.Sprintf("track: encoding config key: %v", err))
	}

	return categoryID + "-" + string(encoded)
}

// ParseKey splits a config key back into the category id and the variable-id
// to value-id map, for building leaderboard lookup URLs from a CheckTask.
func ParseKey(key string) (categoryID string, variables map[string]string, err error) {
	categoryID, encoded, found := strings.Cut(key, "-")
	if categoryID == "" {
		return "", nil, fmt.Errorf("track: config key %q has no category id", key)
	}

	variables = map[string]string{}
	if !found || encoded == "" {
		return categoryID, variables, nil
	}

	if err := json.Unmarshal([]byte(encoded), &variables); err != nil {
		return "", nil, fmt.Errorf("track: config key %q has malformed variables: %w", key, err)
	}

	return categoryID, variables, nil
}
