package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dereulenspiegel/pluginupdater"
	"github.com/dereulenspiegel/pluginupdater/repository"
	"github.com/dereulenspiegel/pluginupdater/repository/github"
	"github.com/dereulenspiegel/pluginupdater/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func setDefaults() {
	viper.SetDefault("server.unix.enabled", false)
	viper.SetDefault("server.unix.socketPath", "/run/pluginupdater.sock")
	viper.SetDefault("server.dbus.enabled", false)
}

func newRootCmd(logger logrus.FieldLogger) *cobra.Command {
	var configFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "pluginupdater",
		Short:        "Resolve plugin updates from GitHub releases",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			viper.SetEnvPrefix("PLUGINUPDATER")
			viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			viper.AutomaticEnv()
			setDefaults()
			if configFile != "" {
				viper.SetConfigFile(configFile)
			} else {
				viper.SetConfigName("pluginupdater")
				viper.AddConfigPath("/etc")
				viper.AddConfigPath(".")
			}
			if err := viper.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				logger.Debug("no configuration file found, using flags and environment")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("header", "", "Plugin main file to read the plugin header from")
	rootCmd.PersistentFlags().String("plugin-file", "", "Plugin main file relative to the plugins root, e.g. widget/widget.php")
	rootCmd.PersistentFlags().String("token", "", "GitHub access token for private repositories")
	rootCmd.PersistentFlags().String("branch", "", "Branch to read the plugin header from")
	rootCmd.PersistentFlags().String("method", "", "Update method: default, versions or branch")
	_ = viper.BindPFlag("plugin.header", rootCmd.PersistentFlags().Lookup("header"))
	_ = viper.BindPFlag("plugin.file", rootCmd.PersistentFlags().Lookup("plugin-file"))
	_ = viper.BindPFlag("repo.github.accessToken", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("manager.branch", rootCmd.PersistentFlags().Lookup("branch"))
	_ = viper.BindPFlag("manager.updateMethod", rootCmd.PersistentFlags().Lookup("method"))

	rootCmd.AddCommand(newCheckCmd(logger))
	rootCmd.AddCommand(newInfoCmd(logger))
	rootCmd.AddCommand(newChangelogCmd(logger))
	rootCmd.AddCommand(newServeCmd(logger))
	return rootCmd
}

func newCheckCmd(logger logrus.FieldLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether a newer version of the plugin is available",
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := coordinatorFromConfig(logger)
			if err != nil {
				return err
			}
			update, err := coordinator.CheckForUpdate(cmd.Context())
			if errors.Is(err, pluginupdater.ErrNoUpdateAvailable) {
				fmt.Fprintln(cmd.OutOrStdout(), "no update available")
				return nil
			}
			if err != nil {
				return err
			}
			if !coordinator.IsNewer(update) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date (installed %s, remote %s)\n",
					update.Name, coordinator.Manifest().Version, update.Version)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), update)
		},
	}
}

func newInfoCmd(logger logrus.FieldLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the plugin information including description and changelog",
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := coordinatorFromConfig(logger)
			if err != nil {
				return err
			}
			info, err := coordinator.DescribePlugin(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}
}

func newChangelogCmd(logger logrus.FieldLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "changelog",
		Short: "Print the rendered changelog",
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := coordinatorFromConfig(logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), coordinator.ResolveChangelog(cmd.Context()))
			return nil
		},
	}
}

func newServeCmd(logger logrus.FieldLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve update information to the host on the enabled transports",
		RunE: func(cmd *cobra.Command, args []string) error {
			coordinator, err := coordinatorFromConfig(logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			var closers []io.Closer
			defer func() {
				for _, closer := range closers {
					closer.Close()
				}
			}()

			for _, builder := range server.Builders() {
				conf := subConfig("server."+builder.ConfigKey(), "enabled", "socketPath", "useSessionBus")
				builderLogger := logger.WithField("server", builder.Name())
				if !conf.GetBool("enabled") {
					builderLogger.Debug("server disabled")
					continue
				}
				srv, err := builder.New(coordinator, conf)
				if err != nil {
					builderLogger.WithError(err).Error("failed to create server")
					continue
				}
				if err := srv.Start(ctx); err != nil {
					builderLogger.WithError(err).Error("failed to start server")
					continue
				}
				closers = append(closers, srv)
			}
			if len(closers) == 0 {
				return errors.New("no server could be started")
			}
			logger.Info("Started successfully, waiting...")

			sigchnl := make(chan os.Signal, 1)
			signal.Notify(sigchnl, syscall.SIGTERM, syscall.SIGINT)
			<-sigchnl
			logger.Info("Shutting down pluginupdater")
			return nil
		},
	}
}

func coordinatorFromConfig(logger logrus.FieldLogger) (*pluginupdater.UpdateCoordinator, error) {
	manifest, err := loadManifest(afero.NewOsFs(), viper.GetString("plugin.header"), viper.GetString("plugin.file"))
	if err != nil {
		return nil, err
	}

	githubConf := subConfig("repo.github", "accessToken", "apiURL", "rawURL", "webURL", "timeout", "maxRedirects")
	source, err := github.New(githubConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	return pluginupdater.NewUpdateCoordinatorFromConfig(manifest, source,
		subConfig("manager", "branch", "updateMethod", "testedVersion", "disableReleases",
			"dateFormat", "pluginRoot", "assetsBaseURL"),
		pluginupdater.WithAccessToken(githubConf.GetString("accessToken")),
		pluginupdater.WithHosts(repository.Hosts{
			Web: githubConf.GetString("webURL"),
			API: githubConf.GetString("apiURL"),
			Raw: githubConf.GetString("rawURL"),
		}),
		pluginupdater.WithLogger(logger.WithField("component", "UpdateCoordinator")),
	)
}

// loadManifest parses the plugin header of headerPath. Without an explicit
// pluginFile the last directory and the file name of headerPath are used.
func loadManifest(fs afero.Fs, headerPath, pluginFile string) (pluginupdater.Manifest, error) {
	if headerPath == "" {
		return pluginupdater.Manifest{}, errors.New("no plugin header configured, use --header or plugin.header")
	}
	f, err := fs.Open(headerPath)
	if err != nil {
		return pluginupdater.Manifest{}, fmt.Errorf("failed to open plugin header %s: %w", headerPath, err)
	}
	defer f.Close()

	manifest, err := pluginupdater.ParseManifestHeader(f)
	if err != nil {
		return pluginupdater.Manifest{}, err
	}
	if pluginFile == "" {
		pluginFile = filepath.ToSlash(filepath.Join(filepath.Base(filepath.Dir(headerPath)), filepath.Base(headerPath)))
	}
	manifest.PluginFile = pluginFile
	return manifest, nil
}

// subConfig returns the configuration below key. viper.Sub only sees the
// configuration file, so the listed keys are copied over to keep values from
// flags and the environment.
func subConfig(key string, keys ...string) *viper.Viper {
	conf := viper.Sub(key)
	if conf == nil {
		conf = viper.New()
	}
	for _, k := range keys {
		if value := viper.Get(key + "." + k); value != nil {
			conf.Set(k, value)
		}
	}
	return conf
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
