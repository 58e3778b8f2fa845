package flags

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// Env vars
	EnvVarConfigFile = "MIRAGE_CONFIG_FILE"
	EnvVarLogPath    = "MIRAGE_LOG_PATH"
	EnvVarLogLevel   = "MIRAGE_LOG_LEVEL"
	EnvVarAPIKey     = "MIRAGE_API_KEY"

	// Defaults
	DefaultConfigFile = ".mirage.toml"
	DefaultLogPath    = ""
	DefaultLogLevel   = "info"

	// Flag names
	FlagNameConfigFile = "config-file"
	FlagNameLogPath    = "log-path"
	FlagNameLogLevel   = "log-level"
	FlagNameAPIKey     = "api-key"
)

var (
	ConfigFile string
	LogPath    string
	LogLevel   string
	APIKey     string
)

func InitFlags(fs *pflag.FlagSet) {
	initConfigFile(fs)
	initLogger(fs)
	initAPIKey(fs)
}

func initConfigFile(fs *pflag.FlagSet) {
	if ConfigFile == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarConfigFile)); env != "" {
			ConfigFile = env
		} else {
			ConfigFile = DefaultConfigFile
		}
	}
	fs.StringVar(&ConfigFile, FlagNameConfigFile, ConfigFile, "path to config file")
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogPath)); env != "" {
			LogPath = env
		} else {
			LogPath = DefaultLogPath
		}
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "path to generated log file")

	if LogLevel == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogLevel)); env != "" {
			LogLevel = strings.ToLower(env)
		} else {
			LogLevel = DefaultLogLevel
		}
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level for mirage logs")
}

// initAPIKey registers the shared secret flag.
// The environment value is applied after registration so it never shows up as a default in help output.
func initAPIKey(fs *pflag.FlagSet) {
	key := APIKey
	if key == "" {
		key = strings.TrimSpace(os.Getenv(EnvVarAPIKey))
	}
	fs.StringVar(&APIKey, FlagNameAPIKey, "", "shared API key for the directory (defaults to $"+EnvVarAPIKey+")")
	APIKey = key
}
