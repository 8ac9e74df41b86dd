package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nemanja-m/linecount/internal/shared/logging"
	"github.com/nemanja-m/linecount/pkg/core"
	"github.com/nemanja-m/linecount/pkg/storage"
)

// LineCountConfig contains all configuration for the linecount and
// viewresults commands.
type LineCountConfig struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Storage StorageConfig `mapstructure:"storage"`
	Results ResultsConfig `mapstructure:"results"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig contains local map-reduce engine configuration.
type EngineConfig struct {
	Mappers    int    `mapstructure:"mappers"`
	Reducers   int    `mapstructure:"reducers"`
	Combine    bool   `mapstructure:"combine"`
	ShuffleDir string `mapstructure:"shuffle_dir"`
}

// StorageConfig contains object store credentials for s3:// and gs://
// locations.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ResultsConfig locates earlier runs for the viewer.
type ResultsConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	BucketSuffix string `mapstructure:"bucket_suffix"`

	// Root overrides the bucket derived from ProjectID.
	Root string `mapstructure:"root"`
}

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadLineCount loads configuration from the given path.
// If configPath is empty, it looks for linecount.yaml in the config/ directory.
// A .env file in the working directory is loaded into the environment first,
// and environment variables with LINECOUNT_ prefix override config file values.
func LoadLineCount(configPath string) (*LineCountConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: error reading .env file: %w", core.ErrConfiguration, err)
	}

	v := viper.New()

	v.SetDefault("engine.mappers", 4)
	v.SetDefault("engine.reducers", 1)
	v.SetDefault("engine.combine", true)
	v.SetDefault("engine.shuffle_dir", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("results.project_id", "")
	v.SetDefault("results.bucket_suffix", "-hadoop-output")
	v.SetDefault("results.root", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("linecount")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("%w: error reading config file: %w", core.ErrConfiguration, err)
		}
	}

	v.SetEnvPrefix("LINECOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variables act as fallbacks after the prefixed ones.
	_ = v.BindEnv("results.project_id", "LINECOUNT_RESULTS_PROJECT_ID", "GCP_PROJECT_ID")
	_ = v.BindEnv("storage.access_key", "LINECOUNT_STORAGE_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("storage.secret_key", "LINECOUNT_STORAGE_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")

	var cfg LineCountConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling config: %w", core.ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *LineCountConfig) Validate() error {
	if c.Engine.Mappers <= 0 {
		return fmt.Errorf("%w: engine.mappers must be > 0, got %d", core.ErrConfiguration, c.Engine.Mappers)
	}
	if c.Engine.Reducers <= 0 {
		return fmt.Errorf("%w: engine.reducers must be > 0, got %d", core.ErrConfiguration, c.Engine.Reducers)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", core.ErrConfiguration, err)
	}
	return nil
}

func (c StorageConfig) S3() storage.S3Config {
	return storage.S3Config{
		Endpoint:  c.Endpoint,
		Region:    c.Region,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		UseSSL:    c.UseSSL,
	}
}

// RootLocation returns the output root holding results/, or "" when neither
// a root nor a project id is configured.
func (c ResultsConfig) RootLocation() string {
	if root := strings.TrimSpace(c.Root); root != "" {
		return root
	}
	if project := strings.TrimSpace(c.ProjectID); project != "" {
		return "gs://" + project + c.BucketSuffix
	}
	return ""
}

// NewLogger builds the configured logger writing to w. The level must have
// passed Validate.
func (c LoggingConfig) NewLogger(w io.Writer) logging.Logger {
	level, _ := logging.ParseLevel(c.Level)
	return logging.NewSlogLogger(level, c.Format, w)
}
