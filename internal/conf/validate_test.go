package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestSettings() *Settings {
	return &Settings{
		WebServer: WebServerSettings{Enabled: true, Host: "0.0.0.0", Port: "8080"},
		Output: OutputSettings{
			SQLite: SQLiteSettings{Enabled: true, Path: "speechcoach.db"},
		},
		Oracle:   OracleSettings{TimeoutSeconds: 120},
		Analysis: AnalysisSettings{HotCacheTTLSeconds: 300, MaxUploadBytes: 25 * 1024 * 1024},
	}
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	require.NoError(t, ValidateSettings(validTestSettings()))
}

func TestValidateSettingsRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{
			name: "both backends enabled",
			mutate: func(s *Settings) {
				s.Output.MySQL.Enabled = true
			},
			wantErr: "only one database backend",
		},
		{
			name: "no backend enabled",
			mutate: func(s *Settings) {
				s.Output.SQLite.Enabled = false
			},
			wantErr: "no database backend",
		},
		{
			name: "empty sqlite path",
			mutate: func(s *Settings) {
				s.Output.SQLite.Path = ""
			},
			wantErr: "output.sqlite.path",
		},
		{
			name: "non-numeric port",
			mutate: func(s *Settings) {
				s.WebServer.Port = "http"
			},
			wantErr: "webserver.port",
		},
		{
			name: "port out of range",
			mutate: func(s *Settings) {
				s.WebServer.Port = "70000"
			},
			wantErr: "webserver.port",
		},
		{
			name: "zero oracle timeout",
			mutate: func(s *Settings) {
				s.Oracle.TimeoutSeconds = 0
			},
			wantErr: "oracle.timeoutseconds",
		},
		{
			name: "zero upload limit",
			mutate: func(s *Settings) {
				s.Analysis.MaxUploadBytes = 0
			},
			wantErr: "analysis.maxuploadbytes",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := validTestSettings()
			tc.mutate(settings)

			err := ValidateSettings(settings)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateSettingsPortIgnoredWhenServerDisabled(t *testing.T) {
	settings := validTestSettings()
	settings.WebServer.Enabled = false
	settings.WebServer.Port = "not-a-port"

	assert.NoError(t, ValidateSettings(settings))
}
