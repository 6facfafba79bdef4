package pluginupdater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	versions := map[string]string{
		"1.2.3":        "1.2.3",
		"v1.2":         "1.2.0",
		"7":            "7.0.0",
		" 2.0.1 ":      "2.0.1",
		"1.2-beta.1":   "1.2.0-beta.1",
		"v3+build.5":   "3.0.0+build.5",
		"1.0.0-rc.1+x": "1.0.0-rc.1+x",
	}
	for in, expected := range versions {
		v, err := ParseVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, v.String(), in)
	}

	_, err := ParseVersion("latest")
	assert.Error(t, err)
}

func TestIsNewerVersion(t *testing.T) {
	newer, err := IsNewer("1.4.0", "v1.10")
	require.NoError(t, err)
	assert.True(t, newer)

	newer, err = IsNewer("2.0.0", "2.0.0-rc.1")
	require.NoError(t, err)
	assert.False(t, newer)

	_, err = IsNewer("1.0.0", "")
	assert.Error(t, err)
}
