package score

import (
	"math"
	"strings"

	"github.com/aau-network-security/certscore/cert"
	"github.com/aau-network-security/certscore/cipher"
	"github.com/aau-network-security/certscore/domain"
)

const (
	highRiskIssuerScore = 0.2
	trustedCABonus      = 1.2
	evBonus             = 1.3
	ipAddressScore      = 0.3
	markerBonus         = 1.1
	modifierCap         = 1.2
)

type Score struct {
	TLS      float64 `json:"tls_score"`
	Key      float64 `json:"key_score"`
	Issuer   float64 `json:"issuer_score"`
	Domain   float64 `json:"domain_score"`
	Cipher   float64 `json:"cipher_score"`
	Modifier float64 `json:"additional_security_modifier"`
	Security float64 `json:"security_score"`

	// carried for reporting, does not take part in the computation
	Classification cipher.Classification `json:"cipher_classification"`
}

// Default is the score of a row that could not be analyzed at all.
func Default() Score {
	return Score{
		Modifier:       1.0,
		Classification: cipher.Classify(""),
	}
}

type Scorer struct {
	conf       Config
	highRisk   map[string]struct{}
	trustedCAs []string
}

// New creates a scorer; unset fields of the configuration are taken from the defaults.
func New(conf Config) *Scorer {
	conf = conf.WithDefaults()
	highRisk := make(map[string]struct{})
	for _, i := range conf.HighRiskIssuers {
		highRisk[i] = struct{}{}
	}
	return &Scorer{
		conf:       conf,
		highRisk:   highRisk,
		trustedCAs: conf.TrustedCAs,
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func (s *Scorer) tlsScore(protocol *string) float64 {
	if protocol == nil {
		return 0
	}
	return finite(s.conf.ProtocolScores[*protocol])
}

func (s *Scorer) keyScore(bits *int) float64 {
	if bits == nil || *bits <= 0 {
		return 0
	}
	return math.Min(1, float64(*bits)/float64(s.conf.MinKeySize))
}

// issuerScore is 0.2 for high-risk issuers. The trusted CA and EV bonuses are
// capped at 1.0, so every other issuer ends up at 1.0.
func (s *Scorer) issuerScore(issuer string, ev bool) float64 {
	if _, ok := s.highRisk[issuer]; ok {
		return highRiskIssuerScore
	}
	score := 1.0
	for _, ca := range s.trustedCAs {
		if ca != "" && strings.Contains(issuer, ca) {
			score *= trustedCABonus
			break
		}
	}
	if ev {
		score *= evBonus
	}
	return math.Min(1, score)
}

func tier(v float64, bounds []float64, scores []float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	for i, b := range bounds {
		if v < b {
			return scores[i]
		}
	}
	return scores[len(scores)-1]
}

func domainScore(df domain.Features) float64 {
	scores := []float64{
		tier(float64(df.Length), []float64{30, 40, 50}, []float64{1.0, 0.7, 0.4, 0.0}),
		tier(df.Entropy, []float64{3.5, 4.0, 4.5}, []float64{1.0, 0.7, 0.4, 0.0}),
		tier(float64(df.SpecialCharCount), []float64{1, 2, 4}, []float64{1.0, 0.7, 0.3, 0.0}),
		tier(float64(df.SubdomainCount), []float64{2, 3}, []float64{1.0, 0.7, 0.3}),
	}
	if df.IsIPAddress {
		scores = append(scores, ipAddressScore)
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func cipherScore(suite *string) float64 {
	if suite == nil {
		return 0
	}
	c := strings.ToUpper(*suite)
	var score float64

	switch {
	case strings.Contains(c, "CHACHA20"):
		score += 0.4
	case strings.Contains(c, "GCM"):
		score += 0.35
	case strings.Contains(c, "CBC"):
		score += 0.25
	}

	switch {
	case strings.Contains(c, "SHA384"):
		score += 0.3
	case strings.Contains(c, "SHA256"):
		score += 0.25
	case strings.Contains(c, "SHA1"):
		score += 0.1
	}

	switch {
	case strings.Contains(c, "ECDHE"):
		score += 0.3
	case strings.Contains(c, "DHE"):
		score += 0.25
	}

	return math.Min(1, score)
}

func modifier(m cert.Markers) float64 {
	mod := 1.0
	for _, present := range []bool{m.HSTS, m.CAA, m.CertificateTransparency} {
		if present {
			mod *= markerBonus
		}
	}
	return math.Min(modifierCap, mod)
}

// Score combines the extracted features of one row into its component and composite scores.
func (s *Scorer) Score(rec cert.Record, df domain.Features, cc cipher.Classification, issuer string, keyBits *int, protocol *string) Score {
	sc := Score{
		TLS:            s.tlsScore(protocol),
		Key:            s.keyScore(keyBits),
		Issuer:         s.issuerScore(issuer, rec.Markers.ExtendedValidation),
		Domain:         domainScore(df),
		Cipher:         cipherScore(rec.CipherSuite),
		Modifier:       modifier(rec.Markers),
		Classification: cc,
	}

	w := s.conf.Weights
	weighted := w.TLS*sc.TLS + w.Key*sc.Key + w.Issuer*sc.Issuer + w.Domain*sc.Domain + w.Cipher*sc.Cipher
	sc.Security = math.Max(0, finite(weighted*sc.Modifier))

	return sc
}
