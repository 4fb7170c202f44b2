// Package config loads service configuration with Viper.
//
// Values come from a YAML file, then a .env file, then the process
// environment; later sources win. Environment keys are mapped onto nested
// keys by trying every underscore split, so TRANSPORT_BASE_URL reaches
// transport.base_url.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Transport transport.HTTPConfig `yaml:"transport" mapstructure:"transport"`
//	}
//
//	var cfg Config
//	err := config.LoadConfig("billing", &cfg, config.WithEnvPrefix("BILLING"))
package config
