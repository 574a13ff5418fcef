package config

// ServerSettings holds configuration for the HTTP API server.
type ServerSettings struct {
	Addr string `mapstructure:"addr" validate:"required"`
}
