package config

// MailerSettings holds configuration for the mail delivery backend.
type MailerSettings struct {
	Driver             string `mapstructure:"driver" validate:"required,oneof=console smtp rabbitmq"`
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	From               string `mapstructure:"from"`
	FromName           string `mapstructure:"from_name"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	URL                string `mapstructure:"url"`         // AMQP connection URL
	Exchange           string `mapstructure:"exchange"`    // AMQP exchange for the relay driver
	RoutingKey         string `mapstructure:"routing_key"` // AMQP routing key for the relay driver
}
