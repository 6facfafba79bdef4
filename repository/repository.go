package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Release is a single published release as reported by the remote repository.
type Release struct {
	TagName     string
	ZipballURL  string
	Name        string
	PublishedAt time.Time
	Body        string
}

type UpdateMethod string

const (
	// MethodDefault uses the latest release and falls back to the branch header.
	MethodDefault UpdateMethod = "default"
	// MethodVersions only uses releases.
	MethodVersions UpdateMethod = "versions"
	// MethodBranch only reads the version from the branch header.
	MethodBranch UpdateMethod = "branch"
)

func ParseUpdateMethod(s string) (UpdateMethod, error) {
	switch m := UpdateMethod(s); m {
	case "":
		return MethodDefault, nil
	case MethodDefault, MethodVersions, MethodBranch:
		return m, nil
	default:
		return "", fmt.Errorf("unknown update method %q", s)
	}
}

// ReleaseLister loads the release list of a repository, newest first.
type ReleaseLister interface {
	Releases(ctx context.Context, addr Address) ([]Release, error)
}

// ContentFetcher retrieves single files from a repository branch and
// arbitrary documents like a plugin homepage.
type ContentFetcher interface {
	FileContents(ctx context.Context, addr Address, filename string) (string, error)
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type Source interface {
	ReleaseLister
	ContentFetcher
}

type NewSource func(*viper.Viper) (Source, error)
