package pluginupdater

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// InstallResult describes where the host extracted a downloaded archive.
type InstallResult struct {
	Destination       string `json:"destination"`
	DestinationName   string `json:"destination_name"`
	LocalDestination  string `json:"local_destination"`
	RemoteDestination string `json:"remote_destination"`
}

// RelocateInstalledArtifact moves the extracted archive, which is named
// after the repository and branch or tag, into the directory the plugin was
// installed in before. Results for other plugins are returned unchanged.
func (u *UpdateCoordinator) RelocateInstalledArtifact(result InstallResult, pluginFile string) (InstallResult, error) {
	if !u.Handles(pluginFile) {
		return result, nil
	}
	logger := u.logger.WithField("operation", "RelocateInstalledArtifact")

	newPluginPath := result.Destination
	if newPluginPath == "" {
		logger.Debug("install result has no destination")
		return result, nil
	}

	pluginRoot := result.LocalDestination
	if pluginRoot == "" {
		pluginRoot = u.pluginRoot
	}
	oldPluginPath := filepath.Join(pluginRoot, u.pluginDir)
	logger = logger.WithFields(logrus.Fields{"from": newPluginPath, "to": oldPluginPath})

	if filepath.Clean(newPluginPath) != filepath.Clean(oldPluginPath) {
		if err := moveDir(u.fs, newPluginPath, oldPluginPath); err != nil {
			logger.WithError(err).Error("failed to move updated plugin")
			return result, err
		}
	}

	result.Destination = oldPluginPath
	result.DestinationName = u.pluginDir
	result.RemoteDestination = oldPluginPath
	logger.Info("moved updated plugin")
	return result, nil
}

func moveDir(fs afero.Fs, from, to string) error {
	if _, err := fs.Stat(from); err != nil {
		return fmt.Errorf("extracted plugin %s not accessible: %w", from, err)
	}
	exists, err := afero.DirExists(fs, to)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", to, err)
	}
	if exists {
		return fmt.Errorf("destination %s already exists", to)
	}
	if err := fs.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(to), err)
	}
	if err := fs.Rename(from, to); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", from, to, err)
	}
	return nil
}
