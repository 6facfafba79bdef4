package pluginupdater

import (
	"net/http"
	"net/url"
	"strings"
)

// AugmentOutboundRequest adds the access token to host requests for the
// repository, e.g. the download of a private release archive. Requests to
// other hosts stay untouched unless they already carry an access_token
// query parameter.
func (u *UpdateCoordinator) AugmentOutboundRequest(req *http.Request) {
	if req == nil || req.URL == nil || !u.private() {
		return
	}
	if !u.targetsRepository(req.URL) && !req.URL.Query().Has("access_token") {
		u.logger.WithField("url", redactedURL(req.URL.String())).Debug("Not adding authorization header")
		return
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	req.Header.Set("Authorization", "Bearer "+u.accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	u.logger.WithField("host", req.URL.Host).Debug("Adding authorization header")
}

func (u *UpdateCoordinator) targetsRepository(target *url.URL) bool {
	web, err := url.Parse(u.hosts.Web)
	if err != nil || web.Hostname() == "" {
		return false
	}
	return strings.Contains(target.Hostname(), web.Hostname())
}

// redactedURL hides the access_token query parameter and any user info of
// rawURL so it can be logged.
func redactedURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	query := u.Query()
	if query.Has("access_token") {
		query.Set("access_token", "xxxxx")
		u.RawQuery = query.Encode()
	}
	return u.Redacted()
}

// Transport wraps base so every request passes AugmentOutboundRequest.
// A nil base uses http.DefaultTransport.
func (u *UpdateCoordinator) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{coordinator: u, base: base}
}

type authTransport struct {
	coordinator *UpdateCoordinator
	base        http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the request they were given
	clone := req.Clone(req.Context())
	t.coordinator.AugmentOutboundRequest(clone)
	return t.base.RoundTrip(clone)
}
