package config

import (
	"reflect"
	"strings"

	"manhole-tracker/core/database"
	"manhole-tracker/core/dataset"
	"manhole-tracker/core/fetch"
	"manhole-tracker/core/geocode"
	"manhole-tracker/core/logger"
	"manhole-tracker/core/scan"
	"manhole-tracker/core/server"
	"manhole-tracker/core/storage"
	"manhole-tracker/feature/gmanhole"
	"manhole-tracker/feature/pokefuta"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Scan holds the ID window and discovery limit of a pass.
	Scan scan.Config `mapstructure:"scan"`
	// Fetch holds HTTP politeness and retry settings.
	Fetch fetch.Config `mapstructure:"fetch"`
	// Dataset holds the output file and mirror settings.
	Dataset dataset.Config `mapstructure:"dataset"`
	// Geocode holds address enrichment settings.
	Geocode geocode.Config `mapstructure:"geocode"`
	// Sources holds per-site adapter settings.
	Sources Sources `mapstructure:"sources"`
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the run history database.
	Database database.Config `mapstructure:"database"`
}

// Sources groups the source adapter settings.
type Sources struct {
	Pokefuta pokefuta.Config `mapstructure:"pokefuta"`
	Gmanhole gmanhole.Config `mapstructure:"gmanhole"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SCAN_MAX -> scan.max)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
