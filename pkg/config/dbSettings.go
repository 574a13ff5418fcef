package config

// DbSettings holds configuration for connecting to the capsule store.
type DbSettings struct {
	Type       string `mapstructure:"type" validate:"required,oneof=postgres mongo"`
	DSN        string `mapstructure:"dsn"`        // Postgres connection string
	URI        string `mapstructure:"uri"`        // Mongo connection URI
	DBName     string `mapstructure:"db_name"`    // Mongo database name
	Collection string `mapstructure:"collection"` // Mongo collection name
}
