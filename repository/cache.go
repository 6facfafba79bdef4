package repository

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type cacheState int

const (
	stateUnattempted cacheState = iota
	stateLoaded
	stateDisabled
)

func (s cacheState) String() string {
	switch s {
	case stateLoaded:
		return "loaded"
	case stateDisabled:
		return "disabled"
	default:
		return "unattempted"
	}
}

// ReleaseCache holds the release list of one repository. The list is
// fetched at most once; an empty result is kept like any other result.
type ReleaseCache struct {
	lister ReleaseLister
	addr   Address
	logger logrus.FieldLogger

	lock     sync.Mutex
	state    cacheState
	releases []Release
}

func NewReleaseCache(lister ReleaseLister, addr Address) *ReleaseCache {
	return &ReleaseCache{
		lister: lister,
		addr:   addr,
		logger: logrus.WithFields(logrus.Fields{"component": "ReleaseCache", "repo": addr.Path}),
	}
}

// Disable stops the cache from ever fetching. Releases stay empty.
func (c *ReleaseCache) Disable() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.state = stateDisabled
	c.releases = nil
}

// EnsureLoaded fetches the release list if that has not been attempted yet.
// Failures are logged and leave an empty list behind.
func (c *ReleaseCache) EnsureLoaded(ctx context.Context) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.state != stateUnattempted {
		c.logger.WithField("state", c.state).Debug("release list already resolved")
		return
	}

	releases, err := c.lister.Releases(ctx, c.addr)
	if err != nil {
		c.logger.WithError(err).Warn("failed to load releases, continuing without releases")
		releases = []Release{}
	}
	c.releases = releases
	c.state = stateLoaded
	c.logger.WithField("releases", len(releases)).Debug("loaded release list")
}

// Releases returns a copy of the cached list, newest first.
func (c *ReleaseCache) Releases() []Release {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]Release, len(c.releases))
	copy(out, c.releases)
	return out
}

func (c *ReleaseCache) Latest() (Release, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if len(c.releases) == 0 {
		return Release{}, false
	}
	return c.releases[0], true
}

func (c *ReleaseCache) Loaded() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state == stateLoaded
}
