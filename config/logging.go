package config

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// LogOptions carries the message and tags, such as the row id and site type, attached to a logged error.
type LogOptions struct {
	Tags map[string]string
	Msg  string
}

// ErrLogger receives the errors that must not stop an analysis run, e.g. a row that failed
// to analyze or a failed CAA lookup.
type ErrLogger interface {
	Log(error, LogOptions)
}

// SentryHub shares one Sentry client between the loggers of an analysis run.
type SentryHub struct {
	client *sentry.Client
}

func NewSentryHub(conf Sentry) (*SentryHub, error) {
	opts := sentry.ClientOptions{
		Dsn: conf.Dsn,
	}
	c, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	sh := SentryHub{
		client: c,
	}

	return &sh, nil
}

// GetLogger returns a logger reporting to Sentry with the given tags on every event.
func (hub *SentryHub) GetLogger(tags map[string]string) ErrLogger {
	scope := sentry.NewScope()
	for k, v := range tags {
		scope.SetTag(k, v)
	}
	h := sentry.NewHub(hub.client, scope)
	return &sentryLogger{
		h: h,
	}
}

type sentryLogger struct {
	h *sentry.Hub
}

func (l *sentryLogger) Log(err error, opts LogOptions) {
	scope := l.h.PushScope()
	defer l.h.PopScope()
	for k, v := range opts.Tags {
		scope.SetTag(k, v)
	}
	if opts.Msg != "" {
		scope.SetExtra("msg", opts.Msg)
	}
	l.h.CaptureException(err)
	l.h.Flush(100 * time.Millisecond)
}

type zeroLogger struct {
	l zerolog.Logger
}

func (l *zeroLogger) Log(err error, opts LogOptions) {
	ev := l.l.Err(err)
	for k, v := range opts.Tags {
		ev = ev.Str(k, v)
	}
	ev.Msg(opts.Msg)
}

// NewZeroLogger writes errors as JSON lines to stderr, dropping everything below the level.
func NewZeroLogger(tags map[string]string, level zerolog.Level) ErrLogger {
	ctx := zerolog.New(os.Stderr).With().Timestamp()
	for k, v := range tags {
		ctx = ctx.Str(k, v)
	}
	l := ctx.Logger().Level(level)
	return &zeroLogger{
		l: l,
	}
}

// NewZeroLoggerFrom wraps an existing zerolog logger, e.g. the global one with its console writer
func NewZeroLoggerFrom(l zerolog.Logger) ErrLogger {
	return &zeroLogger{
		l: l,
	}
}

type errLogChain struct {
	loggers []ErrLogger
}

func (chain *errLogChain) Log(err error, opts LogOptions) {
	for _, l := range chain.loggers {
		l.Log(err, opts)
	}
}

func (chain *errLogChain) Add(el ErrLogger) {
	chain.loggers = append(chain.loggers, el)
}

// NewErrLogChain fans every error out to all of its loggers, in order.
func NewErrLogChain(loggers ...ErrLogger) *errLogChain {
	return &errLogChain{
		loggers: loggers,
	}
}
