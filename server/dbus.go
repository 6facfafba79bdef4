//go:build dbus

package server

import (
	"github.com/dereulenspiegel/pluginupdater"
	"github.com/dereulenspiegel/pluginupdater/server/dbus"
	"github.com/spf13/viper"
)

func init() {
	RegisterBuilder("dbus", DBusBuilder{})
}

type DBusBuilder struct{}

func (b DBusBuilder) Name() string {
	return "DBus"
}

func (b DBusBuilder) ConfigKey() string {
	return "dbus"
}

func (b DBusBuilder) New(coordinator *pluginupdater.UpdateCoordinator, conf *viper.Viper) (Server, error) {
	return dbus.NewWithConfig(coordinator, conf)
}
