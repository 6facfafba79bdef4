package resolver

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dereulenspiegel/pluginupdater/markdown"
	"github.com/dereulenspiegel/pluginupdater/repository"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDateFormat = "January 2, 2006"

	ChangelogNotAvailable = "<em>Changelog not currently available.</em>"
)

var headerVersionRegex = regexp.MustCompile(`\s+\*\s+Version:\s+(\d+(\.\d+){0,2})`)

// ExtractHeaderVersion returns the first Version token of a plugin header
// comment block, or an empty string.
func ExtractHeaderVersion(contents string) string {
	submatches := headerVersionRegex.FindStringSubmatch(contents)
	if len(submatches) > 1 {
		return submatches[1]
	}
	return ""
}

type step int

const (
	stepReleases step = iota
	stepBranch
)

func (s step) String() string {
	if s == stepBranch {
		return "branch"
	}
	return "releases"
}

// plans lists the steps each update method tries, in order. The first step
// that produces a result wins. The branch step always produces a result,
// even an empty one.
var plans = map[repository.UpdateMethod][]step{
	repository.MethodDefault:  {stepReleases, stepBranch},
	repository.MethodVersions: {stepReleases},
	repository.MethodBranch:   {stepBranch},
}

type Option func(*Resolver) *Resolver

func WithAccessToken(token string) Option {
	return func(r *Resolver) *Resolver {
		r.accessToken = token
		return r
	}
}

func WithHosts(hosts repository.Hosts) Option {
	return func(r *Resolver) *Resolver {
		r.hosts = hosts
		return r
	}
}

// WithHomepage sets the page used as changelog when there are no releases.
func WithHomepage(homepage string) Option {
	return func(r *Resolver) *Resolver {
		r.homepage = homepage
		return r
	}
}

func WithDateFormat(layout string) Option {
	return func(r *Resolver) *Resolver {
		r.dateFormat = layout
		return r
	}
}

func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) *Resolver {
		r.location = loc
		return r
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Resolver) *Resolver {
		r.logger = logger
		return r
	}
}

// Resolver determines version, archive and changelog of the latest remote
// release of a plugin according to its update method.
type Resolver struct {
	method         repository.UpdateMethod
	addr           repository.Address
	pluginFilename string
	cache          *repository.ReleaseCache
	fetcher        repository.ContentFetcher

	hosts       repository.Hosts
	accessToken string
	homepage    string
	dateFormat  string
	location    *time.Location
	logger      logrus.FieldLogger
}

func New(method repository.UpdateMethod, addr repository.Address, pluginFilename string,
	cache *repository.ReleaseCache, fetcher repository.ContentFetcher, opts ...Option) *Resolver {
	r := &Resolver{
		method:         method,
		addr:           addr,
		pluginFilename: pluginFilename,
		cache:          cache,
		fetcher:        fetcher,
	}
	for _, opt := range opts {
		r = opt(r)
	}
	r.hosts = r.hosts.Normalize()
	if r.dateFormat == "" {
		r.dateFormat = DefaultDateFormat
	}
	if r.location == nil {
		r.location = time.Local
	}
	if r.logger == nil {
		r.logger = logrus.WithField("component", "Resolver")
	}
	r.logger = r.logger.WithFields(logrus.Fields{"repo": addr.Path, "branch": addr.Branch, "method": method})
	return r
}

func (r *Resolver) private() bool {
	return r.accessToken != ""
}

func (r *Resolver) ResolveVersion(ctx context.Context) string {
	for _, s := range plans[r.method] {
		r.logger.WithField("step", s).Debug("resolving version")
		switch s {
		case stepReleases:
			if version, found := r.VersionFromReleases(ctx); found {
				r.logger.WithField("version", version).Debug("resolved version from latest release")
				return version
			}
		case stepBranch:
			version := r.VersionFromBranch(ctx)
			r.logger.WithField("version", version).Debug("resolved version from branch header")
			return version
		}
	}
	r.logger.Debug("no version available")
	return ""
}

// VersionFromReleases returns the tag of the latest release.
func (r *Resolver) VersionFromReleases(ctx context.Context) (string, bool) {
	r.cache.EnsureLoaded(ctx)
	latest, found := r.cache.Latest()
	if !found {
		return "", false
	}
	return latest.TagName, true
}

// VersionFromBranch reads the version from the header of the plugin file on
// the configured branch.
func (r *Resolver) VersionFromBranch(ctx context.Context) string {
	contents, err := r.fetcher.FileContents(ctx, r.addr, r.pluginFilename)
	if err != nil {
		r.logger.WithError(err).WithField("file", r.pluginFilename).Warn("failed to read plugin file from branch")
		return ""
	}
	return ExtractHeaderVersion(contents)
}

func (r *Resolver) ResolveDownloadURL(ctx context.Context) string {
	for _, s := range plans[r.method] {
		switch s {
		case stepReleases:
			if downloadURL, found := r.DownloadURLFromReleases(ctx); found {
				return downloadURL
			}
		case stepBranch:
			return r.BranchArchiveURL()
		}
	}
	return ""
}

// DownloadURLFromReleases returns the archive of the latest release. In
// private mode the access token is added as query parameter, as the request
// downloading it may not be able to carry an Authorization header.
func (r *Resolver) DownloadURLFromReleases(ctx context.Context) (string, bool) {
	r.cache.EnsureLoaded(ctx)
	latest, found := r.cache.Latest()
	if !found {
		return "", false
	}
	if !r.private() {
		return latest.ZipballURL, true
	}
	return withAccessToken(latest.ZipballURL, r.accessToken), true
}

func (r *Resolver) BranchArchiveURL() string {
	if r.private() {
		return r.hosts.PrivateArchiveURL(r.addr)
	}
	return r.hosts.PublicArchiveURL(r.addr)
}

func withAccessToken(rawURL, token string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := u.Query()
	query.Set("access_token", token)
	u.RawQuery = query.Encode()
	return u.String()
}

// ResolveChangelog renders the notes of all releases, newest first. Without
// releases the homepage is used as is, and without a homepage a notice.
func (r *Resolver) ResolveChangelog(ctx context.Context) string {
	var releases []repository.Release
	if r.method != repository.MethodBranch {
		r.cache.EnsureLoaded(ctx)
		releases = r.cache.Releases()
	}

	if len(releases) > 0 {
		b := &strings.Builder{}
		for _, release := range releases {
			b.WriteString("<h4>")
			b.WriteString(release.Name)
			b.WriteString(" (")
			b.WriteString(release.PublishedAt.In(r.location).Format(r.dateFormat))
			b.WriteString(")</h4>\n")
			b.WriteString(markdown.Render(release.Body))
			b.WriteString("\n<br />\n")
		}
		return b.String()
	}

	if r.homepage != "" {
		body, err := r.fetcher.Fetch(ctx, r.homepage)
		if err != nil {
			r.logger.WithError(err).WithField("homepage", r.homepage).Warn("failed to fetch homepage as changelog")
			return ""
		}
		return body
	}
	return ChangelogNotAvailable
}
