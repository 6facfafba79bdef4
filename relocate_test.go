package pluginupdater

import (
	"path/filepath"
	"testing"

	"github.com/dereulenspiegel/pluginupdater/mocks"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelocateInstalledArtifact(t *testing.T) {
	root := t.TempDir()
	fs := afero.NewOsFs()
	extracted := filepath.Join(root, "acme-widget-2a1b3c4")
	require.NoError(t, fs.MkdirAll(extracted, 0755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(extracted, "widget.php"), []byte(widgetHeader), 0644))

	u, err := NewUpdateCoordinator(testManifest(), WithSource(mocks.NewSource(t)), WithFs(fs))
	require.NoError(t, err)

	result, err := u.RelocateInstalledArtifact(InstallResult{
		Destination:      extracted,
		DestinationName:  "acme-widget-2a1b3c4",
		LocalDestination: root,
	}, "widget/widget.php")
	require.NoError(t, err)

	expected := filepath.Join(root, "widget")
	assert.Equal(t, expected, result.Destination)
	assert.Equal(t, "widget", result.DestinationName)
	assert.Equal(t, expected, result.RemoteDestination)

	exists, err := afero.Exists(fs, filepath.Join(expected, "widget.php"))
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = afero.DirExists(fs, extracted)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRelocateUsesPluginRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/tmp/upgrade/acme-widget-main", 0755))

	u, err := NewUpdateCoordinator(testManifest(),
		WithSource(mocks.NewSource(t)),
		WithFs(fs),
		WithPluginRoot("/srv/plugins"),
	)
	require.NoError(t, err)

	result, err := u.RelocateInstalledArtifact(InstallResult{Destination: "/tmp/upgrade/acme-widget-main"}, "widget/widget.php")
	require.NoError(t, err)
	assert.Equal(t, "/srv/plugins/widget", result.Destination)

	exists, err := afero.DirExists(fs, "/srv/plugins/widget")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRelocateIgnoresOtherPlugins(t *testing.T) {
	fs := afero.NewMemMapFs()
	u, err := NewUpdateCoordinator(testManifest(), WithSource(mocks.NewSource(t)), WithFs(fs))
	require.NoError(t, err)

	in := InstallResult{Destination: "/srv/plugins/other-main", DestinationName: "other-main"}
	result, err := u.RelocateInstalledArtifact(in, "other/other.php")
	require.NoError(t, err)
	assert.Equal(t, in, result)
}

func TestRelocateKeepsExistingDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/srv/plugins/acme-widget-main", 0755))
	require.NoError(t, fs.MkdirAll("/srv/plugins/widget", 0755))

	u, err := NewUpdateCoordinator(testManifest(), WithSource(mocks.NewSource(t)), WithFs(fs))
	require.NoError(t, err)

	in := InstallResult{Destination: "/srv/plugins/acme-widget-main", LocalDestination: "/srv/plugins"}
	result, err := u.RelocateInstalledArtifact(in, "widget/widget.php")
	assert.Error(t, err)
	assert.Equal(t, in, result)

	exists, err := afero.DirExists(fs, "/srv/plugins/acme-widget-main")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRelocateInPlace(t *testing.T) {
	fs := afero.NewMemMapFs()
	u, err := NewUpdateCoordinator(testManifest(), WithSource(mocks.NewSource(t)), WithFs(fs))
	require.NoError(t, err)

	result, err := u.RelocateInstalledArtifact(InstallResult{
		Destination:      "/srv/plugins/widget/",
		LocalDestination: "/srv/plugins",
	}, "widget/widget.php")
	require.NoError(t, err)
	assert.Equal(t, "/srv/plugins/widget", result.Destination)
}
