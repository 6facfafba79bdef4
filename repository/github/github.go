package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dereulenspiegel/pluginupdater/repository"
	"github.com/google/go-github/v49/github"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DefaultTimeout      = 5 * time.Second
	DefaultMaxRedirects = 5

	mediaTypeJSON = "application/vnd.github+json"
	mediaTypeRaw  = "application/vnd.github.raw+json"
)

// GithubRepo talks to GitHub on behalf of one credential. Without an access
// token every request uses the public endpoints.
type GithubRepo struct {
	client      *github.Client
	hosts       repository.Hosts
	accessToken string
	logger      logrus.FieldLogger

	timeout      time.Duration
	maxRedirects int
	httpClient   *http.Client
}

type Option func(*GithubRepo) *GithubRepo

func WithAccessToken(token string) Option {
	return func(g *GithubRepo) *GithubRepo {
		g.accessToken = token
		return g
	}
}

func WithHosts(hosts repository.Hosts) Option {
	return func(g *GithubRepo) *GithubRepo {
		g.hosts = hosts
		return g
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(g *GithubRepo) *GithubRepo {
		g.timeout = timeout
		return g
	}
}

func WithMaxRedirects(max int) Option {
	return func(g *GithubRepo) *GithubRepo {
		g.maxRedirects = max
		return g
	}
}

// WithHTTPClient replaces the HTTP client. Timeout and redirect settings are
// not applied to a client passed in here.
func WithHTTPClient(client *http.Client) Option {
	return func(g *GithubRepo) *GithubRepo {
		g.httpClient = client
		return g
	}
}

func New(conf *viper.Viper) (repository.Source, error) {
	conf.SetDefault("timeout", DefaultTimeout)
	conf.SetDefault("maxRedirects", DefaultMaxRedirects)
	return NewRepo(
		WithAccessToken(conf.GetString("accessToken")),
		WithHosts(repository.Hosts{
			Web: conf.GetString("webURL"),
			API: conf.GetString("apiURL"),
			Raw: conf.GetString("rawURL"),
		}),
		WithTimeout(conf.GetDuration("timeout")),
		WithMaxRedirects(conf.GetInt("maxRedirects")),
	)
}

func NewRepo(opts ...Option) (*GithubRepo, error) {
	g := &GithubRepo{
		timeout:      DefaultTimeout,
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		g = opt(g)
	}
	g.hosts = g.hosts.Normalize()

	if g.httpClient == nil {
		maxRedirects := g.maxRedirects
		g.httpClient = &http.Client{
			Timeout: g.timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}

	g.client = github.NewClient(g.httpClient)
	baseURL, err := url.Parse(g.hosts.API + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %s: %w", g.hosts.API, err)
	}
	g.client.BaseURL = baseURL
	g.logger = logrus.WithFields(logrus.Fields{"repotype": "github", "private": g.Private()})
	return g, nil
}

// Private reports whether requests are authenticated.
func (g *GithubRepo) Private() bool {
	return g.accessToken != ""
}

func (g *GithubRepo) Hosts() repository.Hosts {
	return g.hosts
}

func (g *GithubRepo) Releases(ctx context.Context, addr repository.Address) ([]repository.Release, error) {
	logger := g.logger.WithFields(logrus.Fields{"owner": addr.Organization, "repo": addr.Name})
	releasesURL := g.hosts.ReleasesURL(addr)

	req, err := g.client.NewRequest(http.MethodGet, releasesURL, nil)
	if err != nil {
		return nil, &repository.TransportError{URL: releasesURL, Err: err}
	}
	req.Header.Set("Accept", mediaTypeJSON)
	g.authorize(req)

	var ghReleases []*github.RepositoryRelease
	if _, err := g.client.Do(ctx, req, &ghReleases); err != nil {
		return nil, classify(releasesURL, err)
	}

	releases := make([]repository.Release, 0, len(ghReleases))
	for _, release := range ghReleases {
		if release == nil {
			continue
		}
		releases = append(releases, repository.Release{
			TagName:     release.GetTagName(),
			ZipballURL:  release.GetZipballURL(),
			Name:        release.GetName(),
			PublishedAt: release.GetPublishedAt().Time,
			Body:        release.GetBody(),
		})
	}
	logger.WithField("releases", len(releases)).Debug("queried releases")
	return releases, nil
}

// FileContents reads filename from the configured branch, through the raw
// content host in public mode and the contents API in private mode.
func (g *GithubRepo) FileContents(ctx context.Context, addr repository.Address, filename string) (string, error) {
	if !g.Private() {
		return g.get(ctx, g.hosts.RawFileURL(addr, filename), nil)
	}
	return g.get(ctx, g.hosts.ContentsURL(addr, filename), func(req *http.Request) {
		req.Header.Set("Accept", mediaTypeRaw)
		g.authorize(req)
	})
}

// Fetch returns the body of an arbitrary URL without credentials.
func (g *GithubRepo) Fetch(ctx context.Context, rawURL string) (string, error) {
	return g.get(ctx, rawURL, nil)
}

func (g *GithubRepo) get(ctx context.Context, target string, prepare func(*http.Request)) (string, error) {
	req, err := g.client.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return "", &repository.TransportError{URL: target, Err: err}
	}
	if prepare != nil {
		prepare(req)
	}
	buf := &bytes.Buffer{}
	if _, err := g.client.Do(ctx, req, buf); err != nil {
		return "", classify(target, err)
	}
	return buf.String(), nil
}

func (g *GithubRepo) authorize(req *http.Request) {
	if g.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.accessToken)
	}
}

func classify(target string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &repository.ParseError{URL: target, Err: err}
	}
	return &repository.TransportError{URL: target, Err: err}
}
