package main

import (
	"github.com/aau-network-security/certscore/config"
	"github.com/aau-network-security/certscore/dnscheck"
	"github.com/aau-network-security/certscore/generic"
	"github.com/aau-network-security/certscore/score"
	"github.com/aau-network-security/certscore/store"
)

const defaultPageSize = 1000

type Meta struct {
	Description string `yaml:"description"`
	Host        string `yaml:"host"`
}

type analyzeConfig struct {
	Store    store.Config    `yaml:"store"`
	Sentry   config.Sentry   `yaml:"sentry"`
	Score    score.Config    `yaml:"score"`
	DnsCheck dnscheck.Config `yaml:"dnscheck"`
	Sink     store.SinkOpts  `yaml:"sink"`
	Meta     Meta            `yaml:"meta"`
	Workers  int             `yaml:"workers"`
	PageSize int             `yaml:"page-size"`
	LogLevel string          `yaml:"log-level"`
}

func (c *analyzeConfig) IsValid() error {
	ce := generic.NewConfigErr()
	ce.Merge("store", c.Store.IsValid())
	ce.Merge("sentry", c.Sentry.IsValid())
	ce.Merge("score", c.Score.IsValid())
	ce.Merge("dnscheck", c.DnsCheck.IsValid())
	if c.Workers < 0 {
		ce.Add("workers cannot be negative")
	}
	if c.PageSize < 0 {
		ce.Add("page-size cannot be negative")
	}
	if _, err := config.ParseLevel(c.LogLevel); err != nil {
		ce.Add(err.Error())
	}
	if ce.IsError() {
		return &ce
	}
	return nil
}

func readConfig(path string) (analyzeConfig, error) {
	var c analyzeConfig
	if err := config.ReadYaml(path, &c); err != nil {
		return c, err
	}

	c.Store.Password = config.Secret(config.DbPass, c.Store.Password)
	c.Store.InfluxOpts.AuthToken = config.Secret(config.InfluxToken, c.Store.InfluxOpts.AuthToken)
	c.Sentry.Dsn = config.Secret(config.SentryDsn, c.Sentry.Dsn)

	c.Score = c.Score.WithDefaults()
	if c.PageSize == 0 {
		c.PageSize = defaultPageSize
	}
	if c.Sink == (store.SinkOpts{}) {
		c.Sink = store.DefaultSinkOpts
	}

	return c, nil
}
