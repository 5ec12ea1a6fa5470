package main

import (
	"context"
	"encoding/json"
	"flag"
	"io/ioutil"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aau-network-security/certscore/config"
	"github.com/aau-network-security/certscore/dnscheck"
	"github.com/aau-network-security/certscore/pipeline"
	"github.com/aau-network-security/certscore/score"
	"github.com/aau-network-security/certscore/stats"
	"github.com/aau-network-security/certscore/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
)

type analysis struct {
	src      *store.Source
	sink     *store.Sink
	metrics  store.Metrics
	analyzer *pipeline.Analyzer
	opts     pipeline.Options
	pageSize int
}

// process pages through the source, analyzing and storing every row, and returns the aggregated statistics
func (a *analysis) process(ctx context.Context, bar *mpb.Bar, count int) (stats.Summary, error) {
	agg := stats.NewAggregator(time.Now())

	var sinkErr error
	fn := func(res pipeline.Result) {
		bar.Increment()
		a.metrics.RowAnalyzed(res.SiteType, res.Err != nil, res.Score.Security)
		agg.Add(res)
		if sinkErr != nil {
			return
		}
		sinkErr = a.sink.Add(res)
	}

	for offset := 0; offset < count; offset += a.pageSize {
		rows, err := a.src.Page(offset, a.pageSize)
		if err != nil {
			return stats.Summary{}, err
		}
		if len(rows) == 0 {
			break
		}
		if _, err := a.analyzer.Run(ctx, rows, a.opts, fn); err != nil {
			return stats.Summary{}, err
		}
		if sinkErr != nil {
			return stats.Summary{}, errors.Wrap(sinkErr, "store results")
		}
	}
	if err := a.sink.Flush(); err != nil {
		return stats.Summary{}, errors.Wrap(err, "store results")
	}

	return agg.Summary(), nil
}

func writeSummary(s stats.Summary, path string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}
	if path == "" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	return ioutil.WriteFile(path, b, 0644)
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	confFile := flag.String("config", "config/config.yml", "location of configuration file")
	output := flag.String("output", "", "location of the summary file, written to stdout when empty")
	flag.Parse()

	conf, err := readConfig(*confFile)
	if err != nil {
		log.Fatal().Msgf("error while reading configuration: %s", err)
	}
	if err := conf.IsValid(); err != nil {
		log.Fatal().Msgf("invalid configuration: %s", err)
	}
	lvl, _ := config.ParseLevel(conf.LogLevel)
	zerolog.SetGlobalLevel(lvl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Warn().Msg("interrupted, stopping after the current rows")
		cancel()
	}()

	tags := map[string]string{
		"app": "analyze",
	}
	el := config.NewErrLogChain(config.NewZeroLoggerFrom(log.Logger))
	if conf.Sentry.Enabled {
		h, err := config.NewSentryHub(conf.Sentry)
		if err != nil {
			log.Fatal().Msgf("error while creating sentry hub: %s", err)
		}
		el.Add(h.GetLogger(tags))
	}

	g, err := conf.Store.Open()
	if err != nil {
		log.Fatal().Msgf("failed to open database: %s", err)
	}
	defer g.Close()
	if err := store.Migrate(g); err != nil {
		log.Fatal().Msgf("failed to migrate database: %s", err)
	}

	db := conf.Store.Connect()
	defer db.Close()

	metrics := store.NewMetrics(conf.Store.InfluxOpts)
	defer metrics.Close()

	sink, err := store.NewSink(db, conf.Sink, metrics)
	if err != nil {
		log.Fatal().Msgf("failed to create sink: %s", err)
	}

	var caa pipeline.CAALookup
	if conf.DnsCheck.Enabled {
		r, err := dnscheck.New(conf.DnsCheck)
		if err != nil {
			log.Fatal().Msgf("failed to create resolver: %s", err)
		}
		caa = r
	}

	src := store.NewSource(g)
	count, err := src.Count()
	if err != nil {
		log.Fatal().Msgf("failed to count rows: %s", err)
	}
	log.Info().Msgf("analyzing %d rows", count)

	ruid, err := sink.StartRun(conf.Meta.Description, conf.Meta.Host)
	if err != nil {
		log.Fatal().Msgf("failed to start run: %s", err)
	}
	log.Debug().Str("run", ruid).Msg("started run")

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(count),
		mpb.PrependDecorators(
			decor.Name("Analyzed rows", decor.WC{W: len("Analyzed rows") + 1, C: decor.DidentRight}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done",
			),
		),
		mpb.AppendDecorators(decor.Percentage()))

	a := analysis{
		src:      src,
		sink:     sink,
		metrics:  metrics,
		analyzer: pipeline.NewAnalyzer(score.New(conf.Score), caa, el),
		opts:     pipeline.Options{WorkerCount: conf.Workers},
		pageSize: conf.PageSize,
	}
	summary, processErr := a.process(ctx, bar, count)
	if processErr != nil {
		bar.Abort(false)
	} else {
		bar.SetTotal(int64(summary.Total.Rows), true)
	}
	p.Wait()

	if err := sink.StopRun(); err != nil {
		el.Log(err, config.LogOptions{Msg: "failed to stop run"})
	}
	if processErr != nil {
		log.Fatal().Msgf("error while analyzing rows: %s", processErr)
	}

	if err := writeSummary(summary, *output); err != nil {
		log.Fatal().Msgf("failed to write summary: %s", err)
	}
	log.Info().Str("run", ruid).Msgf("analyzed %d rows, %d failed", summary.Total.Rows, summary.Total.Failed)
}
