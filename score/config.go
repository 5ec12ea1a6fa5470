package score

import (
	"fmt"
	"math"

	"github.com/aau-network-security/certscore/generic"
	"github.com/mohae/deepcopy"
)

type Weights struct {
	TLS    float64 `yaml:"tls"`
	Key    float64 `yaml:"key"`
	Issuer float64 `yaml:"issuer"`
	Domain float64 `yaml:"domain"`
	Cipher float64 `yaml:"cipher"`
}

func (w Weights) sum() float64 {
	return w.TLS + w.Key + w.Issuer + w.Domain + w.Cipher
}

type Config struct {
	Weights         Weights            `yaml:"weights"`
	ProtocolScores  map[string]float64 `yaml:"protocol_scores"`
	MinKeySize      int                `yaml:"min_key_size"`
	HighRiskIssuers []string           `yaml:"high_risk_issuers"`
	TrustedCAs      []string           `yaml:"trusted_cas"`
}

var defaultConfig = Config{
	Weights: Weights{
		TLS:    0.25,
		Key:    0.25,
		Issuer: 0.20,
		Domain: 0.15,
		Cipher: 0.15,
	},
	ProtocolScores: map[string]float64{
		"TLSv1.3": 1.0,
		"TLSv1.2": 0.7,
		"TLSv1.1": 0.3,
		"TLSv1.0": 0.1,
	},
	MinKeySize:      2048,
	HighRiskIssuers: []string{"R10", "R11"},
	TrustedCAs:      []string{"DigiCert", "Let's Encrypt", "Sectigo", "GlobalSign"},
}

// DefaultConfig returns a fresh copy of the default scoring configuration, safe to modify.
func DefaultConfig() Config {
	return deepcopy.Copy(defaultConfig).(Config)
}

// WithDefaults fills in every unset field of the configuration from the defaults.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Weights == (Weights{}) {
		c.Weights = def.Weights
	}
	if c.ProtocolScores == nil {
		c.ProtocolScores = def.ProtocolScores
	}
	if c.MinKeySize == 0 {
		c.MinKeySize = def.MinKeySize
	}
	if c.HighRiskIssuers == nil {
		c.HighRiskIssuers = def.HighRiskIssuers
	}
	if c.TrustedCAs == nil {
		c.TrustedCAs = def.TrustedCAs
	}
	return c
}

func (c *Config) IsValid() error {
	ce := generic.NewConfigErr()

	w := map[string]float64{
		"tls":    c.Weights.TLS,
		"key":    c.Weights.Key,
		"issuer": c.Weights.Issuer,
		"domain": c.Weights.Domain,
		"cipher": c.Weights.Cipher,
	}
	for _, name := range []string{"tls", "key", "issuer", "domain", "cipher"} {
		if w[name] < 0 || math.IsNaN(w[name]) {
			ce.Add(fmt.Sprintf("weight '%s' must be non-negative", name))
		}
	}
	if s := c.Weights.sum(); math.Abs(s-1) > 1e-6 {
		ce.Add(fmt.Sprintf("weights must sum to 1, but sum to %f", s))
	}
	if c.MinKeySize <= 0 {
		ce.Add("min key size must be positive")
	}
	for p, s := range c.ProtocolScores {
		if s < 0 || s > 1 {
			ce.Add(fmt.Sprintf("protocol score for '%s' must be within [0, 1]", p))
		}
	}

	if ce.IsError() {
		return &ce
	}
	return nil
}
