package pluginupdater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dereulenspiegel/pluginupdater/markdown"
	"github.com/dereulenspiegel/pluginupdater/repository"
	"github.com/dereulenspiegel/pluginupdater/repository/github"
	"github.com/dereulenspiegel/pluginupdater/resolver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

var (
	ErrNoUpdateAvailable = errors.New("no update available")
)

// ConfigurationError is returned when a plugin can not be updated from its
// repository because of missing or invalid header fields.
type ConfigurationError struct {
	PluginFile string
	Missing    []string
	Err        error
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("plugin %s is missing one or more required header fields: %s",
			e.PluginFile, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("plugin %s is misconfigured: %v", e.PluginFile, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UpdateSource is what the host calls during its update workflow.
type UpdateSource interface {
	ResolveVersion(ctx context.Context) string
	ResolveDownloadURL(ctx context.Context) string
	ResolveChangelog(ctx context.Context) string
	AugmentOutboundRequest(req *http.Request)
	RelocateInstalledArtifact(result InstallResult, pluginFile string) (InstallResult, error)
}

var _ UpdateSource = (*UpdateCoordinator)(nil)

type Sections struct {
	Description string `json:"Description"`
	Changelog   string `json:"Changelog"`
}

// ResolvedUpdate is the plugin information handed to the host.
type ResolvedUpdate struct {
	Name             string            `json:"name"`
	Slug             string            `json:"slug"`
	Requires         string            `json:"requires"`
	Tested           string            `json:"tested"`
	Version          string            `json:"version"`
	Author           string            `json:"author"`
	AuthorProfile    string            `json:"author_profile"`
	Homepage         string            `json:"homepage"`
	Plugin           string            `json:"plugin"`
	ShortDescription string            `json:"short_description"`
	Sections         *Sections         `json:"sections,omitempty"`
	DownloadLink     string            `json:"download_link"`
	Icons            map[string]string `json:"icons,omitempty"`
	Banners          map[string]string `json:"banners,omitempty"`
}

type UpdateCoordinatorOption func(*UpdateCoordinator) *UpdateCoordinator

func WithSource(source repository.Source) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.source = source
		return u
	}
}

func WithLogger(logger logrus.FieldLogger) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.logger = logger
		return u
	}
}

// WithAccessToken switches the coordinator to private mode.
func WithAccessToken(token string) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.accessToken = token
		return u
	}
}

// WithBranch overrides the Branch Name header.
func WithBranch(branch string) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.branch = branch
		return u
	}
}

// WithUpdateMethod overrides the Update Method header.
func WithUpdateMethod(method string) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.updateMethod = method
		return u
	}
}

// WithTestedVersion overrides the Tested up to header.
func WithTestedVersion(version string) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.testedVersion = version
		return u
	}
}

func WithHosts(hosts repository.Hosts) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.hosts = hosts
		return u
	}
}

func WithDateFormat(layout string) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.dateFormat = layout
		return u
	}
}

// WithAssetsBaseURL sets the URL relative icon and banner paths are resolved against.
func WithAssetsBaseURL(baseURL string) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.assetsBaseURL = baseURL
		return u
	}
}

// WithPluginRoot sets the directory plugins are installed in.
func WithPluginRoot(dir string) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.pluginRoot = dir
		return u
	}
}

func WithFs(fs afero.Fs) UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.fs = fs
		return u
	}
}

// WithReleasesDisabled never queries the release list.
func WithReleasesDisabled() UpdateCoordinatorOption {
	return func(u *UpdateCoordinator) *UpdateCoordinator {
		u.releasesDisabled = true
		return u
	}
}

// UpdateCoordinator answers the host's update questions for a single plugin.
type UpdateCoordinator struct {
	manifest Manifest
	addr     repository.Address
	method   repository.UpdateMethod
	source   repository.Source
	cache    *repository.ReleaseCache
	resolver *resolver.Resolver
	logger   logrus.FieldLogger
	fs       afero.Fs

	accessToken      string
	branch           string
	updateMethod     string
	testedVersion    string
	hosts            repository.Hosts
	dateFormat       string
	assetsBaseURL    string
	pluginRoot       string
	releasesDisabled bool

	pluginDir      string
	pluginFilename string
}

func NewUpdateCoordinatorFromConfig(manifest Manifest, source repository.Source, conf *viper.Viper,
	options ...UpdateCoordinatorOption) (*UpdateCoordinator, error) {
	opts := []UpdateCoordinatorOption{
		WithSource(source),
		WithBranch(conf.GetString("branch")),
		WithUpdateMethod(conf.GetString("updateMethod")),
		WithTestedVersion(conf.GetString("testedVersion")),
		WithDateFormat(conf.GetString("dateFormat")),
		WithAssetsBaseURL(conf.GetString("assetsBaseURL")),
		WithPluginRoot(conf.GetString("pluginRoot")),
	}
	if conf.GetBool("disableReleases") {
		opts = append(opts, WithReleasesDisabled())
	}
	return NewUpdateCoordinator(manifest, append(opts, options...)...)
}

// NewUpdateCoordinator validates the manifest and wires the release cache
// and resolver for its repository. No requests are made here.
func NewUpdateCoordinator(manifest Manifest, options ...UpdateCoordinatorOption) (*UpdateCoordinator, error) {
	u := &UpdateCoordinator{
		manifest: manifest.withDefaults(),
	}
	for _, opt := range options {
		u = opt(u)
	}
	if u.logger == nil {
		u.logger = logrus.WithField("component", "UpdateCoordinator")
	}
	u.logger = u.logger.WithField("plugin", manifest.PluginFile)
	if u.fs == nil {
		u.fs = afero.NewOsFs()
	}
	u.hosts = u.hosts.Normalize()
	u.pluginDir, u.pluginFilename = u.manifest.pluginDirAndFilename()

	if missing := manifest.Missing(); len(missing) > 0 {
		err := &ConfigurationError{PluginFile: manifest.PluginFile, Missing: missing}
		u.logger.WithError(err).Error("plugin can not be updated")
		return nil, err
	}

	addr, err := repository.ParseAddress(manifest.UpdateURI)
	if err != nil {
		return nil, &ConfigurationError{PluginFile: manifest.PluginFile, Err: err}
	}
	if u.branch == "" {
		u.branch = manifest.Branch
	}
	u.addr = addr.WithBranch(u.branch)

	if u.updateMethod == "" {
		u.updateMethod = manifest.UpdateMethod
	}
	u.method, err = repository.ParseUpdateMethod(u.updateMethod)
	if err != nil {
		return nil, &ConfigurationError{PluginFile: manifest.PluginFile, Err: err}
	}

	if u.testedVersion != "" {
		u.manifest.TestedUpTo = u.testedVersion
	}

	if u.source == nil {
		u.source, err = github.NewRepo(github.WithAccessToken(u.accessToken), github.WithHosts(u.hosts))
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub repository: %w", err)
		}
	}

	u.cache = repository.NewReleaseCache(u.source, u.addr)
	if u.releasesDisabled {
		u.cache.Disable()
	}
	u.resolver = resolver.New(u.method, u.addr, u.pluginFilename, u.cache, u.source,
		resolver.WithAccessToken(u.accessToken),
		resolver.WithHosts(u.hosts),
		resolver.WithHomepage(u.manifest.PluginURI),
		resolver.WithDateFormat(u.dateFormat),
		resolver.WithLogger(u.logger),
	)
	u.logger = u.logger.WithFields(logrus.Fields{
		"repo":    u.addr.Path,
		"branch":  u.addr.Branch,
		"method":  u.method,
		"private": u.private(),
	})
	return u, nil
}

func (u *UpdateCoordinator) private() bool {
	return u.accessToken != ""
}

// Slug identifies the plugin towards the host, e.g. acme-widget.
func (u *UpdateCoordinator) Slug() string {
	return u.addr.Slug()
}

func (u *UpdateCoordinator) Address() repository.Address {
	return u.addr
}

func (u *UpdateCoordinator) Manifest() Manifest {
	return u.manifest
}

// Handles reports whether pluginFile is the plugin managed by u.
func (u *UpdateCoordinator) Handles(pluginFile string) bool {
	return pluginFile == u.manifest.PluginFile
}

func (u *UpdateCoordinator) ResolveVersion(ctx context.Context) string {
	return u.resolver.ResolveVersion(ctx)
}

func (u *UpdateCoordinator) ResolveDownloadURL(ctx context.Context) string {
	return u.resolver.ResolveDownloadURL(ctx)
}

func (u *UpdateCoordinator) ResolveChangelog(ctx context.Context) string {
	return u.resolver.ResolveChangelog(ctx)
}

// CheckForUpdate resolves the remote version and download link. It returns
// ErrNoUpdateAvailable if no remote version could be determined.
func (u *UpdateCoordinator) CheckForUpdate(ctx context.Context) (*ResolvedUpdate, error) {
	logger := u.logger.WithField("operation", "CheckForUpdate")
	logger.Debug("Checking for update")

	version := u.ResolveVersion(ctx)
	if version == "" {
		logger.Debug("no remote version found")
		return nil, ErrNoUpdateAvailable
	}
	update := u.resolvedUpdate(version)
	update.DownloadLink = u.ResolveDownloadURL(ctx)

	logger.WithFields(logrus.Fields{
		"remoteVersion": update.Version,
		"downloadLink":  redactedURL(update.DownloadLink),
	}).Info("resolved remote version")
	return update, nil
}

// DescribePlugin resolves the same information as CheckForUpdate and adds
// the rendered description and changelog.
func (u *UpdateCoordinator) DescribePlugin(ctx context.Context) (*ResolvedUpdate, error) {
	logger := u.logger.WithField("operation", "DescribePlugin")
	logger.Debug("Describing plugin")

	version := u.ResolveVersion(ctx)
	if version == "" {
		logger.Debug("no remote version found")
		return nil, ErrNoUpdateAvailable
	}
	update := u.resolvedUpdate(version)
	update.Sections = &Sections{
		Description: markdown.Render(u.manifest.Description),
		Changelog:   u.ResolveChangelog(ctx),
	}
	update.DownloadLink = u.ResolveDownloadURL(ctx)
	return update, nil
}

// IsNewer reports whether update is newer than the installed plugin version.
// Versions that can not be compared are treated as not newer.
func (u *UpdateCoordinator) IsNewer(update *ResolvedUpdate) bool {
	if update == nil {
		return false
	}
	newer, err := IsNewer(u.manifest.Version, update.Version)
	if err != nil {
		u.logger.WithError(err).WithFields(logrus.Fields{
			"installedVersion": u.manifest.Version,
			"remoteVersion":    update.Version,
		}).Warn("failed to compare versions")
		return false
	}
	return newer
}

func (u *UpdateCoordinator) resolvedUpdate(version string) *ResolvedUpdate {
	return &ResolvedUpdate{
		Name:             u.manifest.Name,
		Slug:             u.Slug(),
		Requires:         u.manifest.RequiresPlatform,
		Tested:           u.manifest.TestedUpTo,
		Version:          version,
		Author:           u.manifest.Author,
		AuthorProfile:    u.manifest.AuthorURI,
		Homepage:         u.manifest.PluginURI,
		Plugin:           u.manifest.PluginFile,
		ShortDescription: u.manifest.Description,
		Icons:            u.manifest.Icons(u.assetsBaseURL),
		Banners:          u.manifest.Banners(u.assetsBaseURL),
	}
}
