package store

import (
	"errors"
	"testing"
	"time"

	"github.com/aau-network-security/certscore/cert"
	"github.com/aau-network-security/certscore/cipher"
	"github.com/aau-network-security/certscore/domain"
	"github.com/aau-network-security/certscore/models"
	"github.com/aau-network-security/certscore/pipeline"
	"github.com/aau-network-security/certscore/score"
	testing2 "github.com/aau-network-security/certscore/testing"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func testResult(id uint, issuer string) pipeline.Result {
	nb := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	na := nb.Add(90 * 24 * time.Hour)
	sfx, _ := domain.Split("www.a.com")
	return pipeline.Result{
		ID:       id,
		SiteType: pipeline.Normal,
		Domain:   "www.a.com",
		Issuer:   issuer,
		Record: cert.Record{
			ProtocolVersion: strPtr("TLSv1.3"),
			CipherSuite:     strPtr("TLS_AES_256_GCM_SHA384"),
			ChainLength:     4,
			Subject:         cert.Name{CommonName: "www.a.com", Country: "DK"},
			PublicKeyBits:   intPtr(2048),
			NotBefore:       &nb,
			NotAfter:        &na,
			Markers:         cert.Markers{HSTS: true},
			Leaf: &cert.Leaf{
				DNSNames:        []string{"www.a.com", "*.a.com"},
				Wildcard:        true,
				ValidationLevel: cert.OV,
			},
		},
		Features:       domain.Extract("www.a.com"),
		Suffix:         &sfx,
		Classification: cipher.Classify("TLS_AES_256_GCM_SHA384"),
		Score:          score.Score{TLS: 1, Modifier: 1.1, Security: 0.8},
	}
}

func TestNewFeatures(t *testing.T) {
	f := newFeatures(3, 5, testResult(42, "DigiCert Inc"))

	if f.RunID != 3 || f.IssuerID != 5 || f.WebsiteID != 42 {
		t.Fatalf("unexpected identifiers: run %d, issuer %d, website %d", f.RunID, f.IssuerID, f.WebsiteID)
	}
	if !f.ProtocolVersion.Valid || f.ProtocolVersion.String != "TLSv1.3" {
		t.Fatalf("expected protocol TLSv1.3, but got %+v", f.ProtocolVersion)
	}
	if f.KeyAlgorithm.Valid {
		t.Fatalf("expected no key algorithm, but got %+v", f.KeyAlgorithm)
	}
	if !f.ValidityPeriod.Valid || f.ValidityPeriod.Int64 != 90 {
		t.Fatalf("expected validity period of 90 days, but got %+v", f.ValidityPeriod)
	}
	if !f.SanCount.Valid || f.SanCount.Int64 != 2 || !f.Wildcard {
		t.Fatalf("expected 2 SANs including a wildcard, but got %+v and %t", f.SanCount, f.Wildcard)
	}
	if !f.ValidationLevel.Valid || f.ValidationLevel.Int64 != int64(cert.OV) {
		t.Fatalf("expected OV validation level, but got %+v", f.ValidationLevel)
	}
	if f.Apex != "a.com" || f.Tld != "com" || f.SubdomainLabels != 1 {
		t.Fatalf("unexpected suffix columns: %s, %s, %d", f.Apex, f.Tld, f.SubdomainLabels)
	}
	if f.SubjectCn != "www.a.com" || f.SubjectCountry != "DK" {
		t.Fatalf("unexpected subject columns: %s, %s", f.SubjectCn, f.SubjectCountry)
	}
	if !f.Hsts || f.Caa {
		t.Fatalf("unexpected marker columns: hsts %t, caa %t", f.Hsts, f.Caa)
	}
	if f.SecurityScore != 0.8 || f.AdditionalSecurityModifier != 1.1 {
		t.Fatalf("unexpected score columns: %f, %f", f.SecurityScore, f.AdditionalSecurityModifier)
	}
	if f.Error != "" {
		t.Fatalf("expected no error, but got '%s'", f.Error)
	}

	res := pipeline.Result{ID: 1, Err: errors.New("boom")}
	if f := newFeatures(1, 0, res); f.Error != "boom" || f.ValidityPeriod.Valid || f.SanCount.Valid {
		t.Fatalf("unexpected features for a failed row: %+v", f)
	}
}

func TestSink(t *testing.T) {
	testing2.SkipCI(t)

	conf := Config{
		User:     "postgres",
		Password: "postgres",
		DBName:   "certscore",
		Host:     "localhost",
		Port:     10001,
	}
	g, err := conf.Open()
	if err != nil {
		t.Fatalf("failed to open gorm database: %s", err)
	}
	if err := testing2.ResetDb(g); err != nil {
		t.Fatalf("failed to reset database: %s", err)
	}

	opts := SinkOpts{
		BatchSize:  2,
		IssuerSize: 1,
	}
	s, err := NewSink(conf.Connect(), opts, nil)
	if err != nil {
		t.Fatalf("failed to create sink: %s", err)
	}

	if err := s.Add(testResult(1, "a")); err != NoActiveRunErr {
		t.Fatalf("expected NoActiveRunErr, but got %v", err)
	}
	if _, err := s.StartRun("test", "test.local"); err != nil {
		t.Fatalf("failed to start run: %s", err)
	}
	if _, err := s.StartRun("test", "test.local"); err != ActiveRunErr {
		t.Fatalf("expected ActiveRunErr, but got %v", err)
	}

	// the issuer cache holds a single entry, so "a" is evicted and must be found in the database
	for i, issuer := range []string{"a", "b", "a", "", "b"} {
		if err := s.Add(testResult(uint(i+1), issuer)); err != nil {
			t.Fatalf("failed to add result: %s", err)
		}
	}
	if err := s.StopRun(); err != nil {
		t.Fatalf("failed to stop run: %s", err)
	}

	counts := []struct {
		count uint
		model interface{}
	}{
		{5, &models.Features{}},
		{2, &models.Issuer{}},
		{1, &models.Run{}},
	}
	for _, tc := range counts {
		var count uint
		if err := g.Model(tc.model).Count(&count).Error; err != nil {
			t.Fatalf("failed to retrieve count: %s", err)
		}
		if count != tc.count {
			t.Fatalf("expected %d elements, but got %d", tc.count, count)
		}
	}

	var run models.Run
	if err := g.First(&run).Error; err != nil {
		t.Fatalf("failed to retrieve run: %s", err)
	}
	if run.Rows != 5 || run.EndTime.IsZero() {
		t.Fatalf("unexpected run: %+v", run)
	}
}
