// validate.go: validation of loaded settings
package conf

import (
	"fmt"
	"strconv"
)

// ValidateSettings checks the loaded settings for inconsistencies that would
// prevent the application from starting.
func ValidateSettings(settings *Settings) error {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return fmt.Errorf("only one database backend may be enabled at a time")
	}
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return fmt.Errorf("no database backend enabled")
	}

	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must not be empty")
	}

	if settings.WebServer.Enabled {
		port, err := strconv.Atoi(settings.WebServer.Port)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("webserver.port must be a valid port number, got %q", settings.WebServer.Port)
		}
	}

	if settings.Oracle.TimeoutSeconds <= 0 {
		return fmt.Errorf("oracle.timeoutseconds must be positive")
	}

	if settings.Analysis.MaxUploadBytes <= 0 {
		return fmt.Errorf("analysis.maxuploadbytes must be positive")
	}

	return nil
}
