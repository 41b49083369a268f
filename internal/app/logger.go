package app

import "github.com/charlesng35/authcore/pkg/logger"

const serviceName = "authcore"

// ConfigureLogging installs the global logger for the server. An empty level means info
// and an empty format means JSON.
func ConfigureLogging(level, format string) error {
	return logger.Init(logger.Config{Level: level, Format: format, Service: serviceName})
}
