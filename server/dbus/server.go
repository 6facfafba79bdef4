package dbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/dereulenspiegel/pluginupdater"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	objectPath    = "/com/github/dereulenspiegel/pluginupdater"
	interfaceName = "com.github.dereulenspiegel.pluginupdater"
)

const intro = `
<node>
	<interface name="` + interfaceName + `">
		<method name="CheckForUpdate">
			<arg direction="out" type="a{ss}"/>
		</method>
		<method name="DescribePlugin">
			<arg direction="out" type="a{ss}"/>
		</method>
		<method name="Changelog">
			<arg direction="out" type="s"/>
		</method>
		<method name="DownloadURL">
			<arg direction="out" type="s"/>
		</method>
		<method name="RelocateInstalledArtifact">
			<arg name="result" direction="in" type="a{ss}"/>
			<arg name="plugin" direction="in" type="s"/>
			<arg direction="out" type="a{ss}"/>
		</method>
		<signal name="UpdateAvailable">
			<arg name="update" type="a{ss}"/>
		</signal>
	</interface>` + introspect.IntrospectDataString + `</node> `

type Coordinator interface {
	CheckForUpdate(ctx context.Context) (*pluginupdater.ResolvedUpdate, error)
	DescribePlugin(ctx context.Context) (*pluginupdater.ResolvedUpdate, error)
	ResolveChangelog(ctx context.Context) string
	ResolveDownloadURL(ctx context.Context) string
	IsNewer(update *pluginupdater.ResolvedUpdate) bool
	RelocateInstalledArtifact(result pluginupdater.InstallResult, pluginFile string) (pluginupdater.InstallResult, error)
}

type Server struct {
	conn        *dbus.Conn
	coordinator Coordinator
	dbusCancel  context.CancelFunc
	ctx         context.Context
	logger      logrus.FieldLogger

	useSessionBus bool
}

type Option func(*Server) *Server

// UseSessionBus exports the service on the session bus instead of the system bus.
func UseSessionBus() Option {
	return func(s *Server) *Server {
		s.useSessionBus = true
		return s
	}
}

func NewWithConfig(coordinator Coordinator, conf *viper.Viper) (*Server, error) {
	enabled := conf.GetBool("enabled")
	if !enabled {
		return nil, errors.New("dbus server not enabled")
	}
	var opts []Option
	if conf.GetBool("useSessionBus") {
		opts = append(opts, UseSessionBus())
	}
	return New(coordinator, opts...)
}

func New(coordinator Coordinator, opts ...Option) (*Server, error) {
	s := &Server{
		coordinator: coordinator,
		logger:      logrus.WithField("component", "dbusServer"),
	}
	for _, opt := range opts {
		s = opt(s)
	}
	return s, nil
}

func (s *Server) Start(ctx context.Context) (err error) {
	dbusContext, dbusCancel := context.WithCancel(ctx)
	s.dbusCancel = dbusCancel

	var conn *dbus.Conn
	if s.useSessionBus {
		conn, err = dbus.ConnectSessionBus(dbus.WithContext(dbusContext))
	} else {
		conn, err = dbus.ConnectSystemBus(dbus.WithContext(dbusContext))
	}
	if err != nil {
		dbusCancel()
		return fmt.Errorf("failed to connect to DBus: %w", err)
	}

	if err := export(s, conn); err != nil {
		conn.Close()
		dbusCancel()
		return err
	}
	s.conn = conn
	s.ctx = ctx
	return nil
}

func export(s *Server, conn *dbus.Conn) error {
	if err := conn.Export(s, objectPath, interfaceName); err != nil {
		return fmt.Errorf("failed to register DBus service: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(intro), objectPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to register DBus introspection: %w", err)
	}

	reply, err := conn.RequestName(interfaceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name on DBus: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name on DBus already taken")
	}
	return nil
}

func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	s.dbusCancel()
	return s.conn.Close()
}

func (s *Server) updateAvailable(update *pluginupdater.ResolvedUpdate) {
	if err := s.conn.Emit(objectPath, interfaceName+".UpdateAvailable", mapFromUpdate(update)); err != nil {
		s.logger.WithError(err).Error("failed to emit DBus signal on new update")
	}
}

func mapFromUpdate(update *pluginupdater.ResolvedUpdate) map[string]string {
	m := map[string]string{
		"name":              update.Name,
		"slug":              update.Slug,
		"version":           update.Version,
		"requires":          update.Requires,
		"tested":            update.Tested,
		"author":            update.Author,
		"author_profile":    update.AuthorProfile,
		"homepage":          update.Homepage,
		"plugin":            update.Plugin,
		"short_description": update.ShortDescription,
		"download_link":     update.DownloadLink,
	}
	if update.Sections != nil {
		m["description"] = update.Sections.Description
		m["changelog"] = update.Sections.Changelog
	}
	for size, icon := range update.Icons {
		m["icon_"+size] = icon
	}
	for size, banner := range update.Banners {
		m["banner_"+size] = banner
	}
	return m
}

func installResultFromMap(m map[string]string) pluginupdater.InstallResult {
	return pluginupdater.InstallResult{
		Destination:       m["destination"],
		DestinationName:   m["destination_name"],
		LocalDestination:  m["local_destination"],
		RemoteDestination: m["remote_destination"],
	}
}

func mapFromInstallResult(result pluginupdater.InstallResult) map[string]string {
	return map[string]string{
		"destination":        result.Destination,
		"destination_name":   result.DestinationName,
		"local_destination":  result.LocalDestination,
		"remote_destination": result.RemoteDestination,
	}
}

// CheckForUpdate returns the resolved update and emits UpdateAvailable if it
// is newer than the installed plugin. Without a remote version an empty map
// is returned.
func (s *Server) CheckForUpdate() (map[string]string, *dbus.Error) {
	update, err := s.coordinator.CheckForUpdate(s.ctx)
	if errors.Is(err, pluginupdater.ErrNoUpdateAvailable) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}
	if s.coordinator.IsNewer(update) {
		s.updateAvailable(update)
	}
	return mapFromUpdate(update), nil
}

func (s *Server) DescribePlugin() (map[string]string, *dbus.Error) {
	info, err := s.coordinator.DescribePlugin(s.ctx)
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}
	return mapFromUpdate(info), nil
}

func (s *Server) Changelog() (string, *dbus.Error) {
	return s.coordinator.ResolveChangelog(s.ctx), nil
}

func (s *Server) DownloadURL() (string, *dbus.Error) {
	return s.coordinator.ResolveDownloadURL(s.ctx), nil
}

func (s *Server) RelocateInstalledArtifact(result map[string]string, pluginFile string) (map[string]string, *dbus.Error) {
	relocated, err := s.coordinator.RelocateInstalledArtifact(installResultFromMap(result), pluginFile)
	if err != nil {
		return nil, dbus.MakeFailedError(err)
	}
	return mapFromInstallResult(relocated), nil
}
