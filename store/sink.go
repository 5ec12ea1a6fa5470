package store

import (
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aau-network-security/certscore/generic"
	"github.com/aau-network-security/certscore/models"
	"github.com/aau-network-security/certscore/pipeline"
	"github.com/go-pg/pg"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	errs "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ActiveRunErr   = errors.New("run already active, must be stopped first")
	NoActiveRunErr = errors.New("no run active")
)

var DefaultSinkOpts = SinkOpts{
	BatchSize:  1000,
	IssuerSize: 10000,
	Retries:    3,
}

type SinkOpts struct {
	BatchSize  int `yaml:"batch-size"`
	IssuerSize int `yaml:"issuer-cache-size"`
	Retries    int `yaml:"retries"`
}

// Sink writes analysis results to the feature table in batches
type Sink struct {
	db      *pg.DB
	m       *sync.Mutex
	opts    SinkOpts
	metrics Metrics

	run     *models.Run
	inserts []models.Features

	issuerByName *lru.Cache // map[string]*models.Issuer
	issuerIDs    int
}

func newLRUCache(cacheSize int) *lru.Cache {
	c, err := lru.New(cacheSize)
	if err != nil {
		log.Error().Msgf("Error Creating LRU Cache: %s", err)
		return &lru.Cache{}
	}
	return c
}

func NewSink(db *pg.DB, opts SinkOpts, metrics Metrics) (*Sink, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultSinkOpts.BatchSize
	}
	if opts.IssuerSize <= 0 {
		opts.IssuerSize = DefaultSinkOpts.IssuerSize
	}
	if metrics == nil {
		metrics = &disabledService{}
	}

	s := Sink{
		db:           db,
		m:            &sync.Mutex{},
		opts:         opts,
		metrics:      metrics,
		inserts:      []models.Features{},
		issuerByName: newLRUCache(opts.IssuerSize),
		issuerIDs:    1,
	}

	var issuers []*models.Issuer
	if err := db.Model(&issuers).Order("id DESC").Limit(1).Select(); err != nil {
		return nil, errs.Wrap(err, "select last issuer")
	}
	if len(issuers) > 0 {
		s.issuerIDs = issuers[0].ID + 1
	}

	return &s, nil
}

// StartRun registers a new run and returns its unique identifier
func (s *Sink) StartRun(description, host string) (string, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.run != nil {
		return "", ActiveRunErr
	}
	run := &models.Run{
		Ruid:        uuid.New().String(),
		Description: description,
		Host:        host,
		StartTime:   time.Now(),
	}
	if err := s.db.Insert(run); err != nil {
		return "", errs.Wrap(err, "insert run")
	}
	s.run = run
	return run.Ruid, nil
}

// StopRun flushes the remaining results and closes the active run
func (s *Sink) StopRun() error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.run == nil {
		return NoActiveRunErr
	}
	if err := s.flush(); err != nil {
		return err
	}
	s.run.EndTime = time.Now()
	if err := s.db.Update(s.run); err != nil {
		return errs.Wrap(err, "update run")
	}
	s.run = nil
	return nil
}

func (s *Sink) getOrCreateIssuer(name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	if v, ok := s.issuerByName.Get(name); ok {
		return v.(*models.Issuer).ID, nil
	}

	// evicted from the cache, or never seen
	issuer := &models.Issuer{}
	err := s.db.Model(issuer).Where("name = ?", name).Select()
	switch {
	case err == pg.ErrNoRows:
		issuer = &models.Issuer{
			ID:   s.issuerIDs,
			Name: name,
		}
		if err := s.db.Insert(issuer); err != nil {
			return 0, errs.Wrap(err, "insert issuer")
		}
		s.issuerIDs++
	case err != nil:
		return 0, errs.Wrap(err, "select issuer")
	}

	s.issuerByName.Add(name, issuer)
	s.metrics.CacheSize("issuers", s.issuerByName, s.opts.IssuerSize)
	return issuer.ID, nil
}

// Add buffers the features of a result, and writes the buffer once it reaches the batch size
func (s *Sink) Add(res pipeline.Result) error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.run == nil {
		return NoActiveRunErr
	}

	issuerID, err := s.getOrCreateIssuer(res.Issuer)
	if err != nil {
		return err
	}
	s.inserts = append(s.inserts, newFeatures(s.run.ID, issuerID, res))

	s.run.Rows++
	if res.Err != nil {
		s.run.Failed++
	}

	if len(s.inserts) >= s.opts.BatchSize {
		return s.flush()
	}
	return nil
}

func (s *Sink) Flush() error {
	s.m.Lock()
	defer s.m.Unlock()

	return s.flush()
}

func (s *Sink) flush() error {
	if len(s.inserts) == 0 {
		return nil
	}
	insert := func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := tx.Insert(&s.inserts); err != nil {
			return errs.Wrap(err, "insert features")
		}
		if err := tx.Commit(); err != nil {
			return errs.Wrap(err, "committing transaction")
		}
		return nil
	}
	if err := generic.Retry(insert, s.opts.Retries); err != nil {
		return err
	}

	s.metrics.RowsStored(len(s.inserts))
	s.inserts = []models.Features{}
	return nil
}

func optString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func optInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func newFeatures(runID uint, issuerID int, res pipeline.Result) models.Features {
	rec := res.Record
	f := models.Features{
		RunID:     runID,
		WebsiteID: res.ID,
		SiteType:  res.SiteType,
		IssuerID:  issuerID,

		ProtocolVersion:    optString(rec.ProtocolVersion),
		CipherSuite:        optString(rec.CipherSuite),
		ChainLength:        rec.ChainLength,
		SubjectCn:          rec.Subject.CommonName,
		SubjectCountry:     rec.Subject.Country,
		PublicKeyBits:      optInt(rec.PublicKeyBits),
		KeyAlgorithm:       optString(rec.KeyAlgorithm),
		SignatureAlgorithm: optString(rec.SignatureAlgorithm),
		NotBefore:          rec.NotBefore,
		NotAfter:           rec.NotAfter,
		Hsts:               rec.Markers.HSTS,
		Caa:                rec.Markers.CAA,
		Transparency:       rec.Markers.CertificateTransparency,
		ExtendedValidation: rec.Markers.ExtendedValidation,

		Domain:           res.Domain,
		DomainLength:     res.Features.Length,
		WordCount:        res.Features.WordCount,
		SubdomainCount:   res.Features.SubdomainCount,
		HasHyphen:        res.Features.HasHyphen,
		HasDigits:        res.Features.HasDigits,
		SpecialCharCount: res.Features.SpecialCharCount,
		DigitCount:       res.Features.DigitCount,
		IsIpAddress:      res.Features.IsIPAddress,
		Entropy:          res.Features.Entropy,
		ConsonantRatio:   res.Features.ConsonantRatio,

		CipherCategory: string(res.Classification.Category),
		HasPfs:         res.Classification.HasPerfectForwardSecrecy,
		KeyExchange:    string(res.Classification.KeyExchange),

		TlsScore:                   res.Score.TLS,
		KeyScore:                   res.Score.Key,
		IssuerScore:                res.Score.Issuer,
		DomainScore:                res.Score.Domain,
		CipherScore:                res.Score.Cipher,
		AdditionalSecurityModifier: res.Score.Modifier,
		SecurityScore:              res.Score.Security,
	}

	if days, ok := rec.ValidityDays(); ok {
		f.ValidityPeriod = sql.NullInt64{Int64: int64(days), Valid: true}
	}
	if l := rec.Leaf; l != nil {
		f.SanCount = sql.NullInt64{Int64: int64(l.SanCount()), Valid: true}
		f.Wildcard = l.Wildcard
		if l.ValidationLevel != 0 {
			f.ValidationLevel = sql.NullInt64{Int64: int64(l.ValidationLevel), Valid: true}
		}
	}
	if sfx := res.Suffix; sfx != nil {
		f.Tld = sfx.Tld
		f.Apex = sfx.Apex
		f.SubdomainLabels = sfx.SubdomainLabels
	}
	if res.Err != nil {
		f.Error = strings.TrimSpace(res.Err.Error())
	}

	return f
}
