package app

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/certprep/qbank/pkg/constants"
	"github.com/certprep/qbank/pkg/errors"
)

// Store backends selectable with QBANK_STORE.
const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds the application configuration loaded from config files,
// environment variables, .env files and flags.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Store selection and credentials
	Credentials Credentials

	// Procedure tuning
	BatchSize   int
	Retries     int
	RetryDelay  time.Duration
	Throttle    time.Duration
	PageSize    int
	HTTPTimeout time.Duration
	RPCFunction string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// Credentials are read from the environment only, never from the config file.
type Credentials struct {
	Store          string `env:"QBANK_STORE" envDefault:"supabase"`
	SupabaseURL    string `env:"SUPABASE_URL"`
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	Key            string `env:"SUPABASE_KEY"`
	DatabaseURL    string `env:"DATABASE_URL"`
	SQLitePath     string `env:"QBANK_SQLITE_PATH"`
}

// SupabaseKey prefers the service role key over the plain key.
func (c Credentials) SupabaseKey() string {
	if c.ServiceRoleKey != "" {
		return c.ServiceRoleKey
	}
	return c.Key
}

// Validate checks the selected backend has what it needs.
func (c Credentials) Validate() error {
	switch strings.ToLower(c.Store) {
	case StoreSupabase, "":
		var missing []string
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.SupabaseKey() == "" {
			missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY (or SUPABASE_KEY)")
		}
		if len(missing) > 0 {
			return errors.NewConfigError(StoreSupabase, "missing "+strings.Join(missing, " and "), nil)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.NewConfigError(StorePostgres, "missing DATABASE_URL", nil)
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.NewConfigError(StoreSQLite, "missing QBANK_SQLITE_PATH", nil)
		}
	default:
		return errors.NewConfigError("store", "QBANK_STORE must be supabase, postgres or sqlite, got "+c.Store, nil)
	}
	return nil
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied later by UpdateFromFlags and command flags)
// 2. Environment variables (QBANK_ prefix for tuning)
// 3. .env files
// 4. Config file (.qbank.yaml in the working or home directory, or configFile)
// 5. Defaults
//
// Credentials are parsed but not validated here: commands that never touch
// the store must still run without them.
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("QBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "read "+configFile, err)
		}
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(".qbank")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		// A missing config file is fine.
		_ = v.ReadInConfig()
	}

	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return nil, errors.NewConfigError("environment", "parse credentials", err)
	}

	return &Config{
		Format:     v.GetString("format"),
		ConfigFile: v.ConfigFileUsed(),

		Credentials: creds,

		BatchSize:   v.GetInt("batch_size"),
		Retries:     v.GetInt("retries"),
		RetryDelay:  v.GetDuration("retry_delay"),
		Throttle:    v.GetDuration("throttle"),
		PageSize:    v.GetInt("page_size"),
		HTTPTimeout: v.GetDuration("http_timeout"),
		RPCFunction: v.GetString("rpc_function"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", v.GetString("log.level")),
		LogFormat: getEnvOrDefault("LOG_FORMAT", v.GetString("log.format")),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", v.GetString("log.output")),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("batch_size", constants.DefaultBatchSize)
	v.SetDefault("retries", constants.DefaultRetries)
	v.SetDefault("retry_delay", constants.DefaultRetryDelay)
	v.SetDefault("throttle", constants.DefaultThrottle)
	v.SetDefault("page_size", constants.DefaultPageSize)
	v.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("rpc_function", constants.ExecSQLFunction)
	v.SetDefault("log.format", "auto")
	v.SetDefault("log.output", "stderr")
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags so flag values take
// precedence over the config file and environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env.local then .env. godotenv.Load never overrides a
// variable that is already set, so the process environment wins, then
// .env.local, then .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
