// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "SpeechCoach")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "speechcoach.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.host", "0.0.0.0")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "speechcoach.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "speechcoach")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "speechcoach")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("oracle.apikey", "")
	viper.SetDefault("oracle.model", "gemini-2.0-flash")
	viper.SetDefault("oracle.baseurl", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("oracle.timeoutseconds", 120)
	viper.SetDefault("oracle.debug", false)

	viper.SetDefault("analysis.hotcachettlseconds", 300)
	viper.SetDefault("analysis.maxuploadbytes", 25*1024*1024)
}
