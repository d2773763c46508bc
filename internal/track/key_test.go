package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigKeyCanonical(t *testing.T) {
	vars := map[string]VariableValue{
		"zvar": {ValueID: "v2", Label: "Glitchless"},
		"avar": {ValueID: "v1", Label: "NTSC"},
	}

	key := ConfigKey("cat1", vars)
	assert.Equal(t, `cat1-{"avar":"v1","zvar":"v2"}`, key)

	// Labels do not participate in identity.
	vars["avar"] = VariableValue{ValueID: "v1", Label: "PAL"}
	assert.Equal(t, key, ConfigKey("cat1", vars))
}

func TestConfigKeyNoVariables(t *testing.T) {
	assert.Equal(t, "cat1-{}", ConfigKey("cat1", nil))
}

func TestParseKeyRoundTrip(t *testing.T) {
	key := ConfigKey("cat1", map[string]VariableValue{
		"avar": {ValueID: "v1"},
	})

	categoryID, variables, err := ParseKey(key)
	require.NoError(t, err)
	assert.Equal(t, "cat1", categoryID)
	assert.Equal(t, map[string]string{"avar": "v1"}, variables)
}

func TestParseKeyMalformed(t *testing.T) {
	_, _, err := ParseKey("cat1-{broken")
	require.Error(t, err)

	_, _, err = ParseKey("-{}")
	require.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	run := &CategoryRun{
		Name: "Any%",
		Variables: map[string]VariableValue{
			"v1": {ValueID: "a", Label: "NTSC"},
			"v2": {ValueID: "b", Label: "Glitchless"},
		},
	}

	assert.Equal(t, "Any% (Glitchless, NTSC)", run.DisplayName(""))
	assert.Equal(t, "First Level: Any% (Glitchless, NTSC)", run.DisplayName("First Level"))

	bare := &CategoryRun{Name: "100%"}
	assert.Equal(t, "100%", bare.DisplayName(""))
}
