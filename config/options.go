package config

const (
	defaultLogFile           = "bookvault.log"
	defaultLogLevel          = "info"
	defaultLogFileMaxSize    = 20
	defaultLogFileMaxBackups = 3
	defaultLogFileMaxAge     = 28
	defaultLogCompress       = false
	defaultData              = ".bookvault"
	defaultDatabaseFile      = "bookvault.db"
)

// Options holds runtime configuration. Field tags are mapstructure, not
// json, because viper unmarshals through mapstructure.
type Options struct {
	// LogFile is the file to write logs to
	LogFile string `mapstructure:"log_file"`
	// LogLevel is the level of logging to show
	LogLevel string `mapstructure:"log_level"`
	// LogFileMaxSize is the maximum size of the log file before it is rotated, in MiB
	LogFileMaxSize int `mapstructure:"log_file_max_size"`
	// LogFileMaxBackups is the maximum number of rotated log files to keep
	LogFileMaxBackups int `mapstructure:"log_file_max_backups"`
	// LogFileMaxAge is the maximum number of days to keep a log file
	LogFileMaxAge int `mapstructure:"log_file_max_age"`
	// LogCompress is whether or not to compress rotated log files
	LogCompress bool `mapstructure:"log_compress"`
	// Data is the directory holding the database and logs
	Data string `mapstructure:"data"`
	// DSN is the path of the sqlite database file
	DSN string `mapstructure:"dsn"`
}

func GetDefaultOptions() *Options {
	Opts = &Options{
		LogFile:           defaultLogFile,
		LogLevel:          defaultLogLevel,
		LogFileMaxSize:    defaultLogFileMaxSize,
		LogFileMaxBackups: defaultLogFileMaxBackups,
		LogFileMaxAge:     defaultLogFileMaxAge,
		LogCompress:       defaultLogCompress,
		Data:              defaultData,
	}
	return Opts
}
