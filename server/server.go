package server

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/dereulenspiegel/pluginupdater"
	"github.com/spf13/viper"
)

var (
	registryLock = &sync.Mutex{}
	registry     = make(map[string]Builder)
)

func RegisterBuilder(name string, b Builder) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[name] = b
}

// Builders returns the registered builders ordered by name.
func Builders() (builders []Builder) {
	registryLock.Lock()
	defer registryLock.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		builders = append(builders, registry[name])
	}
	return
}

type Server interface {
	io.Closer
	Start(context.Context) error
}

type Builder interface {
	ConfigKey() string
	Name() string
	New(*pluginupdater.UpdateCoordinator, *viper.Viper) (Server, error)
}
