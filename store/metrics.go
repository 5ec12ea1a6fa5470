package store

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/aau-network-security/certscore/generic"
	lru "github.com/hashicorp/golang-lru"
	"github.com/influxdata/influxdb-client-go/v2"
	influxapi "github.com/influxdata/influxdb-client-go/v2/api"
)

type Metrics interface {
	RowAnalyzed(siteType string, failed bool, score float64)
	RowsStored(count int)
	CacheSize(cacheName string, c *lru.Cache, total int)
	io.Closer
}

type influxService struct {
	client    influxdb2.Client
	api       influxapi.WriteAPI
	done      chan bool
	ticker    *time.Ticker
	rows      map[rowTuple]*rowInfo
	stored    int
	cacheSize map[string]cacheInfo
	m         *sync.Mutex
}

type rowTuple struct {
	siteType string
	failed   bool
}

type rowInfo struct {
	count    int
	scoreSum float64
}

func (ifs *influxService) RowAnalyzed(siteType string, failed bool, score float64) {
	ifs.m.Lock()
	defer ifs.m.Unlock()

	t := rowTuple{siteType, failed}
	info, ok := ifs.rows[t]
	if !ok {
		info = &rowInfo{}
		ifs.rows[t] = info
	}
	info.count++
	info.scoreSum += score
}

func (ifs *influxService) RowsStored(count int) {
	ifs.m.Lock()
	defer ifs.m.Unlock()

	ifs.stored += count
}

type cacheInfo struct {
	cur   int
	total int
}

func (ifs *influxService) CacheSize(cacheName string, c *lru.Cache, total int) {
	ifs.m.Lock()
	defer ifs.m.Unlock()

	ifs.cacheSize[cacheName] = cacheInfo{c.Len(), total}
}

func (ifs *influxService) Close() error {
	ifs.done <- true
	ifs.ticker.Stop()

	// write what was collected since the last tick
	ifs.write()
	ifs.api.Flush()
	ifs.client.Close()

	return nil
}

func (ifs *influxService) write() {
	ifs.m.Lock()
	defer ifs.m.Unlock()

	now := time.Now()

	// write analyzed rows
	for tuple, info := range ifs.rows {
		tags := map[string]string{
			"site_type": tuple.siteType,
			"failed":    strconv.FormatBool(tuple.failed),
		}
		fields := map[string]interface{}{
			"count":     info.count,
			"score_sum": info.scoreSum,
		}
		p := influxdb2.NewPoint("rows", tags, fields, now)
		ifs.api.WritePoint(p)
	}

	if ifs.stored > 0 {
		fields := map[string]interface{}{
			"count": ifs.stored,
		}
		p := influxdb2.NewPoint("stored", map[string]string{}, fields, now)
		ifs.api.WritePoint(p)
	}

	// write cache sizes
	for cacheName, info := range ifs.cacheSize {
		tags := map[string]string{
			"cacheName": cacheName,
		}
		perc := float64(info.cur) / float64(info.total) * float64(100)
		fields := map[string]interface{}{
			"perc":  perc,
			"cur":   info.cur,
			"total": info.total,
		}
		p := influxdb2.NewPoint("cache", tags, fields, now)
		ifs.api.WritePoint(p)
	}

	ifs.rows = map[rowTuple]*rowInfo{}
	ifs.stored = 0
	ifs.cacheSize = map[string]cacheInfo{}
}

const defaultInterval = 10

type InfluxOpts struct {
	Enabled      bool   `yaml:"enabled"`
	ServUrl      string `yaml:"server-url"`
	AuthToken    string `yaml:"auth-token"`
	Organisation string `yaml:"organisation"`
	Bucket       string `yaml:"bucket"`
	Interval     int    `yaml:"interval"` // in seconds
}

func (opts *InfluxOpts) IsValid() error {
	if !opts.Enabled {
		return nil
	}
	ce := generic.NewConfigErr()
	if opts.ServUrl == "" {
		ce.Add("server url cannot be empty")
	}
	if opts.Bucket == "" {
		ce.Add("bucket cannot be empty")
	}
	if opts.Interval <= 0 {
		ce.Add("interval must be positive")
	}
	if ce.IsError() {
		return &ce
	}
	return nil
}

// service that is being used when influxdb is disabled
type disabledService struct{}

func (ds *disabledService) RowAnalyzed(siteType string, failed bool, score float64) {
	return
}

func (ds *disabledService) RowsStored(count int) {
	return
}

func (ds *disabledService) CacheSize(cacheName string, cache2 *lru.Cache, total int) {
	return
}

func (ds *disabledService) Close() error {
	return nil
}

func NewMetrics(opts InfluxOpts) Metrics {
	if !opts.Enabled {
		return &disabledService{}
	}

	client := influxdb2.NewClient(opts.ServUrl, opts.AuthToken)
	api := client.WriteAPI(opts.Organisation, opts.Bucket)

	return NewMetricsWithClient(client, api, opts.Interval)
}

func NewMetricsWithClient(client influxdb2.Client, api influxapi.WriteAPI, interval int) Metrics {
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	done := make(chan bool)

	is := influxService{
		client:    client,
		api:       api,
		done:      done,
		rows:      map[rowTuple]*rowInfo{},
		cacheSize: map[string]cacheInfo{},
		ticker:    ticker,
		m:         &sync.Mutex{},
	}

	go func() {
		// write to influxdb at interval
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				is.write()
			}
		}
	}()

	return &is
}
