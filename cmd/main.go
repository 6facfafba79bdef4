package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	version    string
	commit     string
	commitDate string
	builtBy    = "local"
)

func main() {
	logger := logrus.WithFields(logrus.Fields{
		"version":    version,
		"commit":     commit,
		"commitDate": commitDate,
		"builtBy":    builtBy,
	})
	if err := newRootCmd(logger).Execute(); err != nil {
		logger.WithError(err).Error("pluginupdater failed")
		os.Exit(1)
	}
}
