package server

import (
	"github.com/dereulenspiegel/pluginupdater"
	"github.com/dereulenspiegel/pluginupdater/server/unix"
	"github.com/spf13/viper"
)

func init() {
	RegisterBuilder("unix", UnixBuilder{})
}

type UnixBuilder struct{}

func (u UnixBuilder) Name() string {
	return "Unix Socket Server"
}

func (u UnixBuilder) ConfigKey() string {
	return "unix"
}

func (u UnixBuilder) New(coordinator *pluginupdater.UpdateCoordinator, conf *viper.Viper) (Server, error) {
	return unix.New(coordinator, conf)
}
