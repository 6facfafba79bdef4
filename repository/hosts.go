package repository

import (
	"fmt"
	"strings"
)

// Hosts holds the base URLs of the GitHub web, API and raw content hosts.
type Hosts struct {
	Web string
	API string
	Raw string
}

var GitHubHosts = Hosts{
	Web: "https://github.com",
	API: "https://api.github.com",
	Raw: "https://raw.githubusercontent.com",
}

// Normalize fills empty hosts from GitHubHosts and strips trailing slashes.
func (h Hosts) Normalize() Hosts {
	if h.Web == "" {
		h.Web = GitHubHosts.Web
	}
	if h.API == "" {
		h.API = GitHubHosts.API
	}
	if h.Raw == "" {
		h.Raw = GitHubHosts.Raw
	}
	h.Web = strings.TrimRight(h.Web, "/")
	h.API = strings.TrimRight(h.API, "/")
	h.Raw = strings.TrimRight(h.Raw, "/")
	return h
}

func (h Hosts) ReleasesURL(a Address) string {
	return fmt.Sprintf("%s/repos/%s/%s/releases", h.API, a.Organization, a.Name)
}

func (h Hosts) RawFileURL(a Address, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s", h.Raw, a.Path, a.Branch, filename)
}

func (h Hosts) ContentsURL(a Address, filename string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s", h.API, a.Path, filename, a.Branch)
}

func (h Hosts) PublicArchiveURL(a Address) string {
	return fmt.Sprintf("%s/%s/archive/refs/heads/%s.zip", h.Web, a.Path, a.Branch)
}

func (h Hosts) PrivateArchiveURL(a Address) string {
	return fmt.Sprintf("%s/repos/%s/zipball/%s", h.API, a.Path, a.Branch)
}
