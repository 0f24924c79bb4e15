package di

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/tellows-fastagi/internal/config"
	"github.com/mikey/tellows-fastagi/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// tellows flags
	APIKeyMD5 string
	BaseURL   string

	// Phone number flags
	Region string

	// Cache flags
	CacheType  string
	RedisHost  string
	RedisPort  int
	SQLitePath string
	MySQLDSN   string

	// Input flags
	Numbers    []string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line arguments into a CLIFlags struct. Remaining
// arguments are the caller ids to check.
func ParseFlags(name string, args []string) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	// tellows flags
	fs.StringVar(&flags.APIKeyMD5, "api-key", os.Getenv("APIKEYMD5"), "MD5 hash of the tellows API key")
	fs.StringVar(&flags.BaseURL, "base-url", "https://www.tellows.de", "tellows API base URL")

	// Phone number flags
	fs.StringVar(&flags.Region, "region", "DE", "Default region for national numbers")

	// Cache flags
	fs.StringVar(&flags.CacheType, "cache", "redis", "Cache type (redis, sqlite, mysql, memory)")
	fs.StringVar(&flags.RedisHost, "redis-host", os.Getenv("REDIS_HOST"), "Redis host")
	fs.IntVar(&flags.RedisPort, "redis-port", envInt("REDIS_PORT"), "Redis port")
	fs.StringVar(&flags.SQLitePath, "sqlite-path", "", "Path to the SQLite whitelist database")
	fs.StringVar(&flags.MySQLDSN, "mysql-dsn", "", "MySQL whitelist DSN")

	// Input flags
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	flags.Numbers = fs.Args()
	return flags, nil
}

// envInt reads an integer flag default from the environment, 0 when unset
// or not a number
func envInt(name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return 0
	}
	return n
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		var cfg *config.Config
		if flags.ConfigFile != "" {
			var err error
			cfg, err = config.NewWithFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
		} else {
			// Create config from command line flags
			cfg = createConfigFromFlags(flags)
		}

		// The cli never listens
		cfg.GetViper().Set("server.filter_type", "cli")
		cfg.GetViper().Set("cli.verbose", flags.Verbose)

		if err := cfg.ValidateLookup(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	v.Set("tellows.api_key_md5", flags.APIKeyMD5)
	v.Set("tellows.base_url", flags.BaseURL)
	v.Set("phone.default_region", flags.Region)

	v.Set("cache.type", flags.CacheType)
	switch flags.CacheType {
	case "redis":
		v.Set("cache.redis.host", flags.RedisHost)
		v.Set("cache.redis.port", flags.RedisPort)
	case "sqlite":
		v.Set("cache.sqlite_path", flags.SQLitePath)
	case "mysql":
		v.Set("cache.mysql_dsn", flags.MySQLDSN)
	}

	return config.NewFromViper(v)
}
