package repository

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const DefaultBranch = "main"

var (
	ErrInvalidAddress = errors.New("invalid repository address")
)

// Address identifies a repository and the branch updates are read from.
// Path is always Organization + "/" + Name.
type Address struct {
	Path         string
	Organization string
	Name         string
	Branch       string
}

// ParseAddress derives the organization and repository name from a
// repository URL like https://github.com/acme/widget.
func ParseAddress(rawURL string) (Address, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, rawURL, err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return Address{}, fmt.Errorf("%w: %s needs an organization and a repository", ErrInvalidAddress, rawURL)
	}
	return Address{
		Path:         segments[0] + "/" + segments[1],
		Organization: segments[0],
		Name:         segments[1],
		Branch:       DefaultBranch,
	}, nil
}

// WithBranch returns a copy of the address pointing at branch. An empty
// branch keeps the current one.
func (a Address) WithBranch(branch string) Address {
	if branch != "" {
		a.Branch = branch
	}
	return a
}

// Slug is the identifier the host uses for the plugin, e.g. acme-widget.
func (a Address) Slug() string {
	return a.Organization + "-" + a.Name
}

func (a Address) String() string {
	return a.Path + "@" + a.Branch
}
