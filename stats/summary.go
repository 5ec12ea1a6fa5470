package stats

import (
	"time"

	"github.com/aau-network-security/certscore/pipeline"
)

type ValiditySummary struct {
	WithDates     int     `json:"with_dates"`
	MeanValidDays float64 `json:"mean_valid_days"`
	Expired       int     `json:"expired"`
	NotYetValid   int     `json:"not_yet_valid"`
}

type SiteSummary struct {
	Rows   int `json:"rows"`
	Failed int `json:"failed"`

	SecurityScore FloatSummary `json:"security_score"`
	TLSScore      FloatSummary `json:"tls_score"`
	KeyScore      FloatSummary `json:"key_score"`
	IssuerScore   FloatSummary `json:"issuer_score"`
	DomainScore   FloatSummary `json:"domain_score"`
	CipherScore   FloatSummary `json:"cipher_score"`

	CipherCategories map[string]int `json:"cipher_categories"`
	PfsCount         int            `json:"pfs_count"`
	PfsPercentage    float64        `json:"pfs_percentage"`
	KeyExchanges     map[string]int `json:"key_exchanges"`
	Protocols        map[string]int `json:"protocols"`

	AvgChainLength float64         `json:"avg_chain_length"`
	AvgKeyBits     float64         `json:"avg_key_bits"`
	Validity       ValiditySummary `json:"validity"`
	UniqueIssuers  int             `json:"unique_issuers"`
}

type Summary struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Total       SiteSummary            `json:"total"`
	SiteTypes   map[string]SiteSummary `json:"site_types"`
}

type siteAcc struct {
	rows, failed int

	security, tls, key, issuer, domain, cipher FloatStats

	categories, kx, protocols, issuers Counter
	pfs                                int

	chainLength, keyBits, validDays IntStats
	expired, notYetValid            int
}

func newSiteAcc() *siteAcc {
	return &siteAcc{
		security:    NewFloatStats(),
		tls:         NewFloatStats(),
		key:         NewFloatStats(),
		issuer:      NewFloatStats(),
		domain:      NewFloatStats(),
		cipher:      NewFloatStats(),
		categories:  NewCounter(),
		kx:          NewCounter(),
		protocols:   NewCounter(),
		issuers:     NewCounter(),
		chainLength: NewIntStats(),
		keyBits:     NewIntStats(),
		validDays:   NewIntStats(),
	}
}

func (a *siteAcc) add(r pipeline.Result, now time.Time) {
	a.rows++
	if r.Err != nil {
		a.failed++
		return
	}

	a.security.Add(r.Score.Security)
	a.tls.Add(r.Score.TLS)
	a.key.Add(r.Score.Key)
	a.issuer.Add(r.Score.Issuer)
	a.domain.Add(r.Score.Domain)
	a.cipher.Add(r.Score.Cipher)

	a.categories.Add(string(r.Classification.Category))
	a.kx.Add(string(r.Classification.KeyExchange))
	if r.Classification.HasPerfectForwardSecrecy {
		a.pfs++
	}

	rec := r.Record
	if rec.ProtocolVersion != nil {
		a.protocols.Add(*rec.ProtocolVersion)
	}
	a.chainLength.Add(rec.ChainLength)
	if rec.PublicKeyBits != nil {
		a.keyBits.Add(*rec.PublicKeyBits)
	}
	if days, ok := rec.ValidityDays(); ok {
		a.validDays.Add(days)
		if now.After(*rec.NotAfter) {
			a.expired++
		}
		if now.Before(*rec.NotBefore) {
			a.notYetValid++
		}
	}
	if r.Issuer != "" {
		a.issuers.Add(r.Issuer)
	}
}

func (a *siteAcc) summary() SiteSummary {
	s := SiteSummary{
		Rows:             a.rows,
		Failed:           a.failed,
		SecurityScore:    a.security.Summary(),
		TLSScore:         a.tls.Summary(),
		KeyScore:         a.key.Summary(),
		IssuerScore:      a.issuer.Summary(),
		DomainScore:      a.domain.Summary(),
		CipherScore:      a.cipher.Summary(),
		CipherCategories: a.categories.Counts(),
		PfsCount:         a.pfs,
		KeyExchanges:     a.kx.Counts(),
		Protocols:        a.protocols.Counts(),
		AvgChainLength:   a.chainLength.Mean().Float64,
		AvgKeyBits:       a.keyBits.Mean().Float64,
		Validity: ValiditySummary{
			WithDates:     a.validDays.Len(),
			MeanValidDays: a.validDays.Mean().Float64,
			Expired:       a.expired,
			NotYetValid:   a.notYetValid,
		},
		UniqueIssuers: a.issuers.UniqueLen(),
	}
	if analyzed := a.rows - a.failed; analyzed > 0 {
		s.PfsPercentage = 100 * float64(a.pfs) / float64(analyzed)
	}
	return s
}

// Aggregator accumulates results batch by batch. Failed rows are counted but do not
// contribute to any statistic. Validity is judged against the given reference time.
type Aggregator struct {
	now   time.Time
	total *siteAcc
	sites map[string]*siteAcc
}

func NewAggregator(now time.Time) *Aggregator {
	return &Aggregator{
		now:   now,
		total: newSiteAcc(),
		sites: make(map[string]*siteAcc),
	}
}

func (agg *Aggregator) Add(results ...pipeline.Result) {
	for _, r := range results {
		agg.total.add(r, agg.now)

		site, ok := agg.sites[r.SiteType]
		if !ok {
			site = newSiteAcc()
			agg.sites[r.SiteType] = site
		}
		site.add(r, agg.now)
	}
}

func (agg *Aggregator) Summary() Summary {
	s := Summary{
		GeneratedAt: agg.now,
		Total:       agg.total.summary(),
		SiteTypes:   make(map[string]SiteSummary, len(agg.sites)),
	}
	for k, acc := range agg.sites {
		s.SiteTypes[k] = acc.summary()
	}
	return s
}

// Summarize aggregates analysis results, in total and per site type.
func Summarize(results []pipeline.Result, now time.Time) Summary {
	agg := NewAggregator(now)
	agg.Add(results...)
	return agg.Summary()
}
