package pluginupdater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dereulenspiegel/pluginupdater/mocks"
	"github.com/dereulenspiegel/pluginupdater/repository"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const branchHeader = `<?php
/**
 * Plugin Name: Widget
 * Version:     1.5.0
 */
`

func testManifest() Manifest {
	return Manifest{
		PluginFile:  "widget/widget.php",
		Name:        "Widget",
		PluginURI:   "https://acme.example.com/widget",
		UpdateURI:   "https://github.com/acme/widget",
		Version:     "1.4.0",
		Author:      "Acme",
		AuthorURI:   "https://acme.example.com",
		Description: "A **small** widget",
	}
}

func testReleases() []repository.Release {
	return []repository.Release{
		{
			TagName:     "2.0.0",
			ZipballURL:  "https://api.github.com/repos/acme/widget/zipball/2.0.0",
			Name:        "Penguin",
			PublishedAt: time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC),
			Body:        "- faster\n",
		},
	}
}

func withBranch(branch string) interface{} {
	return mock.MatchedBy(func(addr repository.Address) bool {
		return addr.Branch == branch
	})
}

func TestMissingHeaderFields(t *testing.T) {
	src := mocks.NewSource(t)
	manifest := testManifest()
	manifest.UpdateURI = ""
	manifest.Version = ""

	_, err := NewUpdateCoordinator(manifest, WithSource(src))
	require.Error(t, err)
	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "widget/widget.php", confErr.PluginFile)
	assert.Equal(t, []string{"Version", "Update URI"}, confErr.Missing)
}

func TestInvalidUpdateURI(t *testing.T) {
	src := mocks.NewSource(t)
	manifest := testManifest()
	manifest.UpdateURI = "https://github.com/acme"

	_, err := NewUpdateCoordinator(manifest, WithSource(src))
	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.ErrorIs(t, err, repository.ErrInvalidAddress)
}

func TestUnknownUpdateMethod(t *testing.T) {
	src := mocks.NewSource(t)
	manifest := testManifest()
	manifest.UpdateMethod = "nightly"

	_, err := NewUpdateCoordinator(manifest, WithSource(src))
	var confErr *ConfigurationError
	assert.True(t, errors.As(err, &confErr))
}

func TestSlugAndDefaults(t *testing.T) {
	u, err := NewUpdateCoordinator(testManifest(), WithSource(mocks.NewSource(t)))
	require.NoError(t, err)

	assert.Equal(t, "acme-widget", u.Slug())
	assert.Equal(t, repository.DefaultBranch, u.Address().Branch)
	assert.Equal(t, DefaultRequiresPlatform, u.Manifest().RequiresPlatform)
	assert.Equal(t, DefaultRequiresRuntime, u.Manifest().RequiresRuntime)
	assert.True(t, u.Handles("widget/widget.php"))
	assert.False(t, u.Handles("other/other.php"))
}

func TestCheckForUpdateFromReleases(t *testing.T) {
	src := mocks.NewSource(t)
	src.EXPECT().Releases(mock.Anything, mock.Anything).Return(testReleases(), nil).Once()

	u, err := NewUpdateCoordinator(testManifest(), WithSource(src))
	require.NoError(t, err)

	update, err := u.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Widget", update.Name)
	assert.Equal(t, "acme-widget", update.Slug)
	assert.Equal(t, "2.0.0", update.Version)
	assert.Equal(t, "https://api.github.com/repos/acme/widget/zipball/2.0.0", update.DownloadLink)
	assert.Equal(t, "widget/widget.php", update.Plugin)
	assert.Equal(t, "https://acme.example.com/widget", update.Homepage)
	assert.Equal(t, "https://acme.example.com", update.AuthorProfile)
	assert.Equal(t, "6.0", update.Requires)
	assert.Nil(t, update.Sections)
	assert.Nil(t, update.Icons)
	assert.Nil(t, update.Banners)
	assert.True(t, u.IsNewer(update))
}

func TestCheckForUpdateFallsBackToBranch(t *testing.T) {
	src := mocks.NewSource(t)
	manifest := testManifest()
	manifest.Branch = "develop"
	src.EXPECT().Releases(mock.Anything, mock.Anything).Return(nil, nil).Once()
	src.EXPECT().FileContents(mock.Anything, withBranch("develop"), "widget.php").Return(branchHeader, nil).Once()

	u, err := NewUpdateCoordinator(manifest, WithSource(src))
	require.NoError(t, err)

	update, err := u.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", update.Version)
	assert.Equal(t, "https://github.com/acme/widget/archive/refs/heads/develop.zip", update.DownloadLink)
}

func TestCheckForUpdateWithoutVersion(t *testing.T) {
	src := mocks.NewSource(t)
	manifest := testManifest()
	manifest.UpdateMethod = "versions"
	src.EXPECT().Releases(mock.Anything, mock.Anything).Return(nil, errors.New("rate limited")).Once()

	u, err := NewUpdateCoordinator(manifest, WithSource(src))
	require.NoError(t, err)

	_, err = u.CheckForUpdate(context.Background())
	assert.ErrorIs(t, err, ErrNoUpdateAvailable)
	_, err = u.DescribePlugin(context.Background())
	assert.ErrorIs(t, err, ErrNoUpdateAvailable)
}

func TestDescribePlugin(t *testing.T) {
	src := mocks.NewSource(t)
	src.EXPECT().Releases(mock.Anything, mock.Anything).Return(testReleases(), nil).Once()

	u, err := NewUpdateCoordinator(testManifest(), WithSource(src))
	require.NoError(t, err)

	info, err := u.DescribePlugin(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info.Sections)
	assert.Equal(t, "<p>A <strong>small</strong> widget</p>\r\n", info.Sections.Description)
	assert.Contains(t, info.Sections.Changelog, "<h4>Penguin (")
	assert.Contains(t, info.Sections.Changelog, "<ul><li>faster</li></ul>")
	assert.Equal(t, "A **small** widget", info.ShortDescription)
	assert.Equal(t, "2.0.0", info.Version)
}

func TestBranchMethodOverride(t *testing.T) {
	src := mocks.NewSource(t)
	manifest := testManifest()
	manifest.Branch = "develop"
	manifest.TestedUpTo = "6.4"
	src.EXPECT().FileContents(mock.Anything, withBranch("release"), "widget.php").Return(branchHeader, nil).Once()

	u, err := NewUpdateCoordinator(manifest,
		WithSource(src),
		WithBranch("release"),
		WithUpdateMethod("branch"),
		WithTestedVersion("6.5"),
	)
	require.NoError(t, err)

	update, err := u.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", update.Version)
	assert.Equal(t, "6.5", update.Tested)
	assert.Equal(t, "https://github.com/acme/widget/archive/refs/heads/release.zip", update.DownloadLink)
}

func TestPrivateDownloadLink(t *testing.T) {
	src := mocks.NewSource(t)
	src.EXPECT().Releases(mock.Anything, mock.Anything).Return(testReleases(), nil).Once()

	u, err := NewUpdateCoordinator(testManifest(), WithSource(src), WithAccessToken("s3cret"))
	require.NoError(t, err)

	update, err := u.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/repos/acme/widget/zipball/2.0.0?access_token=s3cret", update.DownloadLink)
}

func TestAccessTokenNotLogged(t *testing.T) {
	src := mocks.NewSource(t)
	src.EXPECT().Releases(mock.Anything, mock.Anything).Return(testReleases(), nil).Once()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	u, err := NewUpdateCoordinator(testManifest(), WithSource(src), WithAccessToken("s3cret"), WithLogger(logger))
	require.NoError(t, err)

	update, err := u.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.Contains(t, update.DownloadLink, "access_token=s3cret")
	_, err = u.DescribePlugin(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, hook.AllEntries())
	for _, entry := range hook.AllEntries() {
		line, err := entry.String()
		require.NoError(t, err)
		assert.NotContains(t, line, "s3cret")
	}
}

func TestRedactedURL(t *testing.T) {
	assert.Equal(t, "https://api.github.com/repos/acme/widget/zipball/2.0.0?access_token=xxxxx",
		redactedURL("https://api.github.com/repos/acme/widget/zipball/2.0.0?access_token=s3cret"))
	assert.Equal(t, "https://github.com/acme/widget/archive/refs/heads/main.zip",
		redactedURL("https://github.com/acme/widget/archive/refs/heads/main.zip"))
}

func TestMissingPluginFile(t *testing.T) {
	src := mocks.NewSource(t)
	manifest := testManifest()
	manifest.PluginFile = ""

	_, err := NewUpdateCoordinator(manifest, WithSource(src))
	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, []string{"Plugin File"}, confErr.Missing)
}

func TestAssets(t *testing.T) {
	src := mocks.NewSource(t)
	src.EXPECT().Releases(mock.Anything, mock.Anything).Return(testReleases(), nil).Once()
	manifest := testManifest()
	manifest.Icon1xURI = "assets/icon-128x128.png"
	manifest.Banner2xURI = "https://cdn.example.com/banner-1544x500.png"

	u, err := NewUpdateCoordinator(manifest, WithSource(src), WithAssetsBaseURL("https://acme.example.com/widget/"))
	require.NoError(t, err)

	update, err := u.CheckForUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1x": "https://acme.example.com/widget/assets/icon-128x128.png"}, update.Icons)
	assert.Equal(t, map[string]string{"high": "https://cdn.example.com/banner-1544x500.png"}, update.Banners)
}

func TestIsNewer(t *testing.T) {
	u, err := NewUpdateCoordinator(testManifest(), WithSource(mocks.NewSource(t)))
	require.NoError(t, err)

	assert.True(t, u.IsNewer(&ResolvedUpdate{Version: "1.4.1"}))
	assert.False(t, u.IsNewer(&ResolvedUpdate{Version: "1.4.0"}))
	assert.False(t, u.IsNewer(&ResolvedUpdate{Version: "1.3"}))
	assert.False(t, u.IsNewer(&ResolvedUpdate{Version: "not-a-version"}))
	assert.False(t, u.IsNewer(nil))
}

func TestNewUpdateCoordinatorFromConfig(t *testing.T) {
	src := mocks.NewSource(t)
	conf := viper.New()
	conf.Set("branch", "develop")
	conf.Set("updateMethod", "versions")
	conf.Set("disableReleases", true)

	u, err := NewUpdateCoordinatorFromConfig(testManifest(), src, conf)
	require.NoError(t, err)

	assert.Equal(t, "develop", u.Address().Branch)
	assert.Empty(t, u.ResolveVersion(context.Background()))
	assert.Empty(t, u.ResolveDownloadURL(context.Background()))
}
