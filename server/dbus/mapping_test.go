package dbus

import (
	"testing"

	"github.com/dereulenspiegel/pluginupdater"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func testManifest() pluginupdater.Manifest {
	return pluginupdater.Manifest{
		PluginFile: "widget/widget.php",
		Name:       "Widget",
		PluginURI:  "https://acme.example.com/widget",
		UpdateURI:  "https://github.com/acme/widget",
		Version:    "1.8.1",
	}
}

func TestMapFromUpdate(t *testing.T) {
	m := mapFromUpdate(&pluginupdater.ResolvedUpdate{
		Name:         "Widget",
		Slug:         "acme-widget",
		Version:      "1.8.2",
		DownloadLink: "https://api.github.com/repos/acme/widget/zipball/1.8.2",
		Sections:     &pluginupdater.Sections{Description: "<p>A widget</p>", Changelog: "<h4>Penguin</h4>"},
		Icons:        map[string]string{"2x": "https://acme.example.com/icon-256x256.png"},
	})

	assert.Equal(t, "Widget", m["name"])
	assert.Equal(t, "acme-widget", m["slug"])
	assert.Equal(t, "1.8.2", m["version"])
	assert.Equal(t, "https://api.github.com/repos/acme/widget/zipball/1.8.2", m["download_link"])
	assert.Equal(t, "<p>A widget</p>", m["description"])
	assert.Equal(t, "<h4>Penguin</h4>", m["changelog"])
	assert.Equal(t, "https://acme.example.com/icon-256x256.png", m["icon_2x"])

	m = mapFromUpdate(&pluginupdater.ResolvedUpdate{Version: "1.8.2"})
	_, hasChangelog := m["changelog"]
	assert.False(t, hasChangelog)
}

func TestInstallResultMapping(t *testing.T) {
	result := pluginupdater.InstallResult{
		Destination:       "/srv/plugins/widget",
		DestinationName:   "widget",
		LocalDestination:  "/srv/plugins",
		RemoteDestination: "/srv/plugins/widget",
	}
	assert.Equal(t, result, installResultFromMap(mapFromInstallResult(result)))
	assert.Equal(t, pluginupdater.InstallResult{}, installResultFromMap(map[string]string{}))
}

func TestNewWithConfigDisabled(t *testing.T) {
	_, err := NewWithConfig(nil, viper.New())
	assert.Error(t, err)
}
