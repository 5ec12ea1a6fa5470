package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aau-network-security/certscore/cert"
	"github.com/aau-network-security/certscore/cipher"
	"github.com/aau-network-security/certscore/config"
	"github.com/aau-network-security/certscore/domain"
	"github.com/aau-network-security/certscore/score"
)

const (
	Phishing = "phishing"
	Normal   = "normal"
)

// Row is one input record as supplied by the data source. Every field but the ID may be missing.
type Row struct {
	ID              uint
	SiteType        string
	Domain          *string
	CertificateDump *string
	CipherSuite     *string
	Issuer          *string
	PublicKeyBits   *int
	Protocol        *string
	HasCAA          *bool
}

type Result struct {
	ID             uint                  `json:"id"`
	SiteType       string                `json:"site_type"`
	Domain         string                `json:"domain"`
	Issuer         string                `json:"issuer"`
	Record         cert.Record           `json:"certificate"`
	Features       domain.Features       `json:"domain_features"`
	Suffix         *domain.Suffix        `json:"suffix,omitempty"`
	Classification cipher.Classification `json:"cipher_classification"`
	Score          score.Score           `json:"score"`
	Err            error                 `json:"-"`
}

// RowErr is the error of a row whose analysis panicked.
type RowErr struct {
	ID    uint
	Stage string
	Cause interface{}
}

func (err RowErr) Error() string {
	return fmt.Sprintf("failed to analyze row %d during %s: %v", err.ID, err.Stage, err.Cause)
}

type CAALookup interface {
	HasCAA(ctx context.Context, name string) (bool, error)
}

type Analyzer struct {
	Scorer *score.Scorer
	// optional, consulted when the row does not say whether CAA records exist
	CAA CAALookup
	// optional, receives per-row errors
	Log config.ErrLogger
}

func NewAnalyzer(s *score.Scorer, caa CAALookup, el config.ErrLogger) *Analyzer {
	return &Analyzer{
		Scorer: s,
		CAA:    caa,
		Log:    el,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func defaultResult(row Row) Result {
	return Result{
		ID:             row.ID,
		SiteType:       row.SiteType,
		Domain:         deref(row.Domain),
		Classification: cipher.Classify(""),
		Score:          score.Default(),
	}
}

func (a *Analyzer) logErr(err error, row Row, msg string) {
	if a.Log == nil {
		return
	}
	a.Log.Log(err, config.LogOptions{
		Msg: msg,
		Tags: map[string]string{
			"row":       strconv.FormatUint(uint64(row.ID), 10),
			"site_type": row.SiteType,
		},
	})
}

// resolveIssuer takes the issuer of the row, and falls back to the common name or
// organization of the certificate issuer
func resolveIssuer(row Row, rec cert.Record) string {
	if i := deref(row.Issuer); i != "" {
		return i
	}
	if rec.Issuer.CommonName != "" {
		return rec.Issuer.CommonName
	}
	return rec.Issuer.Organization
}

func (a *Analyzer) hasCAA(ctx context.Context, row Row, apex string) bool {
	if row.HasCAA != nil {
		return *row.HasCAA
	}
	if a.CAA == nil || apex == "" {
		return false
	}
	ok, err := a.CAA.HasCAA(ctx, apex)
	if err != nil {
		a.logErr(err, row, "failed to look up CAA records")
		return false
	}
	return ok
}

// Analyze runs a single row through parsing, feature extraction and scoring.
// It never fails as a whole: a panic in any stage yields the default result with Err set.
func (a *Analyzer) Analyze(ctx context.Context, row Row) (res Result) {
	stage := "parsing"
	defer func() {
		if r := recover(); r != nil {
			res = defaultResult(row)
			res.Err = RowErr{ID: row.ID, Stage: stage, Cause: r}
			a.logErr(res.Err, row, "row analysis failed")
		}
	}()

	res = defaultResult(row)
	rec := cert.Parse(deref(row.CertificateDump))
	rec = rec.WithCipherSuite(deref(row.CipherSuite))

	stage = "domain features"
	res.Features = domain.Extract(res.Domain)
	if res.Domain != "" {
		if s, err := domain.Split(res.Domain); err == nil {
			res.Suffix = &s
		}
	}

	stage = "cipher classification"
	res.Classification = cipher.Classify(deref(rec.CipherSuite))

	stage = "caa lookup"
	apex := ""
	if res.Suffix != nil {
		apex = res.Suffix.Apex
	}
	rec.Markers.CAA = a.hasCAA(ctx, row, apex)

	stage = "scoring"
	keyBits := row.PublicKeyBits
	if keyBits == nil {
		keyBits = rec.PublicKeyBits
	}
	protocol := rec.ProtocolVersion
	if protocol == nil {
		protocol = nonEmpty(row.Protocol)
	}
	res.Issuer = resolveIssuer(row, rec)
	res.Record = rec
	res.Score = a.Scorer.Score(rec, res.Features, res.Classification, res.Issuer, keyBits, protocol)

	return res
}
