package dnscheck

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aau-network-security/certscore/generic"
	lru "github.com/hashicorp/golang-lru"
	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

const (
	defaultTimeout   = 2000
	defaultCacheSize = 10000
)

type RcodeErr struct {
	Name  string
	Rcode int
}

func (err RcodeErr) Error() string {
	return fmt.Sprintf("query for %s failed: %s", err.Name, dns.RcodeToString[err.Rcode])
}

type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Server    string `yaml:"server"`
	Timeout   int    `yaml:"timeout"` // in milliseconds
	Retries   int    `yaml:"retries"`
	CacheSize int    `yaml:"cache-size"`
}

func (c *Config) IsValid() error {
	if !c.Enabled {
		return nil
	}
	ce := generic.NewConfigErr()
	if c.Server == "" {
		ce.Add("server cannot be empty")
	} else if _, _, err := net.SplitHostPort(c.Server); err != nil {
		ce.Add(fmt.Sprintf("server must be of the form host:port: %s", err))
	}
	if c.Timeout < 0 {
		ce.Add("timeout cannot be negative")
	}
	if c.Retries < 0 {
		ce.Add("retries cannot be negative")
	}
	if ce.IsError() {
		return &ce
	}
	return nil
}

// Resolver answers whether CAA records apply to a domain, climbing towards the
// top-level domain like a certificate authority does
type Resolver struct {
	server  string
	retries int
	client  *dns.Client
	cache   *lru.Cache // map[string]bool
}

func New(conf Config) (*Resolver, error) {
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	cacheSize := conf.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create cache")
	}

	r := Resolver{
		server:  conf.Server,
		retries: conf.Retries,
		client:  &dns.Client{Timeout: time.Duration(timeout) * time.Millisecond},
		cache:   c,
	}
	return &r, nil
}

func (r *Resolver) query(ctx context.Context, name string) (bool, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeCAA)
	m.RecursionDesired = true

	var resp *dns.Msg
	exchange := func() error {
		var err error
		resp, _, err = r.client.ExchangeContext(ctx, m, r.server)
		if err != nil {
			return err
		}
		if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
			return RcodeErr{name, resp.Rcode}
		}
		return nil
	}
	if err := generic.RetryWithDelay(exchange, r.retries, 50*time.Millisecond); err != nil {
		return false, errors.Wrapf(err, "caa query %s", name)
	}

	for _, ans := range resp.Answer {
		if _, ok := ans.(*dns.CAA); ok {
			return true, nil
		}
	}
	return false, nil
}

// HasCAA reports whether the name, or any of its parents below the top-level domain, publishes a CAA record
func (r *Resolver) HasCAA(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if name == "" {
		return false, nil
	}
	if v, ok := r.cache.Get(name); ok {
		return v.(bool), nil
	}

	labels := dns.SplitDomainName(name)
	// a bare top-level domain is still queried once
	last := len(labels) - 1
	if last == 0 {
		last = 1
	}
	for i := 0; i < last; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		candidate := strings.Join(labels[i:], ".")
		if v, ok := r.cache.Get(candidate); ok && v.(bool) {
			r.cache.Add(name, true)
			return true, nil
		}
		found, err := r.query(ctx, candidate)
		if err != nil {
			return false, err
		}
		if found {
			r.cache.Add(candidate, true)
			r.cache.Add(name, true)
			return true, nil
		}
	}

	r.cache.Add(name, false)
	return false, nil
}
