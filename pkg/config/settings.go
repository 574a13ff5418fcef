package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Settings struct {
	Database      DbSettings     `mapstructure:"database"`
	Mailer        MailerSettings `mapstructure:"mailer"`
	Server        ServerSettings `mapstructure:"server"`
	PollInterval  time.Duration  `mapstructure:"poll_interval"`
	BatchSize     int            `mapstructure:"batch_size" validate:"gt=0"`
	FailureLimit  int            `mapstructure:"failure_limit" validate:"gt=0"`
	Observability Observability  `mapstructure:"observability"` // Observability settings
}

func (c *Settings) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func LoadFromFile(filePath string) (*Settings, error) {

	env := getEnvWithDefaultLookup("ENVIRONMENT", "development")

	cfg := &Settings{}
	viper.SetConfigType("yaml") // Set the config type to YAML
	viper.SetConfigName("capsule")
	viper.AddConfigPath(filePath) // path to config
	viper.AddConfigPath(".")      // current directory
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("No config file found or read error: %v (will rely on env)", err)
	}

	err := mergeConfig(filePath, "capsule."+env)
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error merging dev config: %s\n", err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load from env: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg, nil
}

func (c *Settings) LoadFromEnv() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CAPSULE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // env vars like CAPSULE_DATABASE_TYPE
	setDefaults()

	// Bind environment variables explicitly to ensure they map correctly
	viper.BindEnv("database.type")
	viper.BindEnv("database.dsn")
	viper.BindEnv("database.uri")
	viper.BindEnv("database.db_name")
	viper.BindEnv("database.collection")
	viper.BindEnv("mailer.driver")
	viper.BindEnv("mailer.host")
	viper.BindEnv("mailer.port")
	viper.BindEnv("mailer.user")
	viper.BindEnv("mailer.password")
	viper.BindEnv("mailer.from")
	viper.BindEnv("mailer.from_name")
	viper.BindEnv("mailer.url")
	viper.BindEnv("mailer.exchange")
	viper.BindEnv("mailer.routing_key")
	viper.BindEnv("server.addr")
	viper.BindEnv("poll_interval")
	viper.BindEnv("batch_size")
	viper.BindEnv("failure_limit")
	viper.BindEnv("observability.service_name")
	viper.BindEnv("observability.tracing_url")
	viper.BindEnv("observability.metrics_url")

	if err := viper.Unmarshal(&c); err != nil {
		return err
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("poll_interval", time.Minute)
	viper.SetDefault("batch_size", 20)
	viper.SetDefault("failure_limit", 5)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("mailer.driver", "console")
	viper.SetDefault("database.collection", "capsules")
}

func mergeConfig(path string, name string) error {
	viper.SetConfigName(name)
	viper.AddConfigPath(path)
	err := viper.MergeInConfig()
	if err != nil {
		return err
	}
	return nil
}

func getEnvWithDefaultLookup(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
