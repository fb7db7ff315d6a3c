// Package conf loads the process configuration from file and environment.
package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/inkhub/inkhub/internal/log"
	"github.com/inkhub/inkhub/internal/schema"
	"github.com/inkhub/inkhub/internal/server"
	"github.com/inkhub/inkhub/internal/server/db"
)

type Config struct {
	Server server.Config `conf:"server" yaml:"server" json:"server"`
	DB     db.Config     `conf:"db" yaml:"db" json:"db"`
	Log    log.Config    `conf:"log" yaml:"log" json:"log"`
	Schema schema.Config `conf:"schema" yaml:"schema" json:"schema"`
}

// defaults seeds viper so environment overrides resolve even without a
// config file.
func defaults(v *viper.Viper) {
	v.SetDefault("server.name", "inkhub")
	v.SetDefault("db.dialect", "sqlite")
	v.SetDefault("db.dsn", "file:inkhub.db?cache=shared&_pragma=busy_timeout(5000)")
	v.SetDefault("log.name", "inkhub")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads inkhub.yml from the working directory, /etc/inkhub or
// $HOME/.inkhub, then applies INKHUB_* environment overrides.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("inkhub")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/inkhub")
	v.AddConfigPath("$HOME/.inkhub")

	v.SetEnvPrefix("INKHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("conf: read config: %w", err)
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "conf"
	})
	if err != nil {
		return Config{}, fmt.Errorf("conf: decode config: %w", err)
	}

	return cfg, nil
}
