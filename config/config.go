package config

import (
	"io/ioutil"
	"os"

	"github.com/aau-network-security/certscore/generic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const (
	DbPass      = "CERTSCORE_DB_PASS"
	SentryDsn   = "CERTSCORE_SENTRY_DSN"
	InfluxToken = "CERTSCORE_INFLUX_TOKEN"
)

type Sentry struct {
	Enabled bool   `yaml:"enabled"`
	Dsn     string `yaml:"dsn"`
}

func (s *Sentry) IsValid() error {
	if !s.Enabled {
		return nil
	}
	ce := generic.NewConfigErr()
	if s.Dsn == "" {
		ce.Add("dsn cannot be empty")
	}
	if ce.IsError() {
		return &ce
	}
	return nil
}

// ReadYaml unmarshals the YAML file at path into v
func ReadYaml(path string, v interface{}) error {
	f, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(f, v); err != nil {
		return errors.Wrap(err, "unmarshal config file")
	}
	return nil
}

// Secret returns the value of the given environment variable and clears it, so it is not
// inherited by child processes. An empty variable leaves the fallback untouched.
func Secret(env string, fallback string) string {
	v := os.Getenv(env)
	os.Setenv(env, "")
	if v == "" {
		return fallback
	}
	return v
}

// ParseLevel parses a zerolog level, defaulting to info for an empty string
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, errors.Wrap(err, "parse log level")
	}
	return lvl, nil
}
