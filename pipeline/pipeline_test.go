package pipeline

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/aau-network-security/certscore/cipher"
	"github.com/aau-network-security/certscore/config"
	"github.com/aau-network-security/certscore/score"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

type staticCAA struct {
	sync.Mutex
	result  bool
	err     error
	queried []string
}

func (c *staticCAA) HasCAA(ctx context.Context, name string) (bool, error) {
	c.Lock()
	defer c.Unlock()
	c.queried = append(c.queried, name)
	return c.result, c.err
}

type recordingLogger struct {
	sync.Mutex
	errs []error
}

func (l *recordingLogger) Log(err error, opts config.LogOptions) {
	l.Lock()
	defer l.Unlock()
	l.errs = append(l.errs, err)
}

const dump = `Certificate chain:
s:CN = a.com
i:C = US, O = DigiCert Inc, CN = DigiCert TLS RSA SHA256 2020 CA1

Protocol: TLSv1.3
Cipher: TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384
Server public key is 4096 bit`

func TestAnalyze(t *testing.T) {
	a := NewAnalyzer(score.New(score.DefaultConfig()), nil, nil)
	row := Row{
		ID:              7,
		SiteType:        Normal,
		Domain:          strPtr("a.com"),
		CertificateDump: strPtr(dump),
		Issuer:          strPtr("DigiCert Inc"),
		PublicKeyBits:   intPtr(2048),
	}

	res := a.Analyze(context.Background(), row)
	if res.Err != nil {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.ID != 7 || res.SiteType != Normal || res.Domain != "a.com" {
		t.Fatalf("unexpected result identity: %+v", res)
	}
	if res.Record.ChainLength != 2 {
		t.Fatalf("expected chain length 2, but got %d", res.Record.ChainLength)
	}
	if res.Classification.Category != cipher.Strong {
		t.Fatalf("expected strong cipher, but got %s", res.Classification.Category)
	}
	if res.Suffix == nil || res.Suffix.Apex != "a.com" {
		t.Fatalf("expected apex a.com, but got %+v", res.Suffix)
	}
	// key bits of the row take precedence over the dump
	if math.Abs(res.Score.Security-0.9925) > 1e-9 {
		t.Fatalf("expected security score 0.9925, but got %f", res.Score.Security)
	}
}

func TestAnalyzeFallbacks(t *testing.T) {
	a := NewAnalyzer(score.New(score.DefaultConfig()), nil, nil)

	row := Row{
		ID:              1,
		SiteType:        Phishing,
		CertificateDump: strPtr("issuer=C = US, O = Let's Encrypt, CN = R10\nServer public key is 1024 bit"),
		CipherSuite:     strPtr("ECDHE-RSA-CHACHA20-POLY1305"),
		Protocol:        strPtr("TLSv1.2"),
	}
	res := a.Analyze(context.Background(), row)

	if res.Issuer != "R10" {
		t.Fatalf("expected issuer from certificate CN, but got '%s'", res.Issuer)
	}
	if res.Score.Issuer != 0.2 {
		t.Fatalf("expected high risk issuer score, but got %f", res.Score.Issuer)
	}
	if res.Record.CipherSuite == nil || *res.Record.CipherSuite != "ECDHE-RSA-CHACHA20-POLY1305" {
		t.Fatalf("expected cipher suite from row, but got %v", res.Record.CipherSuite)
	}
	if res.Classification.Category != cipher.Excellent {
		t.Fatalf("expected excellent cipher, but got %s", res.Classification.Category)
	}
	if res.Score.Key != 0.5 {
		t.Fatalf("expected key score 0.5 from certificate key bits, but got %f", res.Score.Key)
	}
	if res.Score.TLS != 0.7 {
		t.Fatalf("expected tls score 0.7 from row protocol, but got %f", res.Score.TLS)
	}

	row = Row{CertificateDump: strPtr("issuer=O = Sectigo Limited")}
	if res := a.Analyze(context.Background(), row); res.Issuer != "Sectigo Limited" {
		t.Fatalf("expected issuer from certificate O, but got '%s'", res.Issuer)
	}
}

func TestAnalyzeCAA(t *testing.T) {
	caa := &staticCAA{result: true}
	a := NewAnalyzer(score.New(score.DefaultConfig()), caa, nil)

	res := a.Analyze(context.Background(), Row{Domain: strPtr("www.example.co.uk")})
	if !res.Record.Markers.CAA {
		t.Fatalf("expected CAA marker from lookup")
	}
	if len(caa.queried) != 1 || caa.queried[0] != "example.co.uk" {
		t.Fatalf("expected lookup of the apex, but got %v", caa.queried)
	}
	if math.Abs(res.Score.Modifier-1.1) > 1e-9 {
		t.Fatalf("expected modifier 1.1, but got %f", res.Score.Modifier)
	}

	// the row flag takes precedence
	res = a.Analyze(context.Background(), Row{Domain: strPtr("example.com"), HasCAA: boolPtr(false)})
	if res.Record.Markers.CAA || len(caa.queried) != 1 {
		t.Fatalf("expected row flag to be used without lookup")
	}

	// lookup errors are logged and count as no CAA
	el := &recordingLogger{}
	a = NewAnalyzer(score.New(score.DefaultConfig()), &staticCAA{result: true, err: errors.New("timeout")}, el)
	res = a.Analyze(context.Background(), Row{Domain: strPtr("example.com")})
	if res.Record.Markers.CAA {
		t.Fatalf("expected no CAA marker on lookup error")
	}
	if res.Err != nil {
		t.Fatalf("expected lookup error not to fail the row, but got %s", res.Err)
	}
	if len(el.errs) != 1 {
		t.Fatalf("expected 1 logged error, but got %d", len(el.errs))
	}
}

func TestAnalyzeRecoversPanic(t *testing.T) {
	el := &recordingLogger{}
	// a nil scorer panics in the scoring stage
	a := &Analyzer{Log: el}

	res := a.Analyze(context.Background(), Row{ID: 3, SiteType: Phishing, Domain: strPtr("a.com")})
	if res.Err == nil {
		t.Fatalf("expected an error, but got none")
	}
	rowErr, ok := res.Err.(RowErr)
	if !ok {
		t.Fatalf("expected RowErr, but got %T", res.Err)
	}
	if rowErr.ID != 3 || rowErr.Stage != "scoring" {
		t.Fatalf("unexpected row error: %+v", rowErr)
	}
	if res.Score != score.Default() {
		t.Fatalf("expected default score, but got %+v", res.Score)
	}
	if len(el.errs) != 1 {
		t.Fatalf("expected 1 logged error, but got %d", len(el.errs))
	}
}

func TestRun(t *testing.T) {
	a := NewAnalyzer(score.New(score.DefaultConfig()), nil, nil)

	domains := []string{"a.com", "b.org", "192.168.0.1", "", "x-y-z.example.net", "pay_pal.com"}
	var rows []Row
	for i, d := range domains {
		rows = append(rows, Row{ID: uint(i + 1), Domain: strPtr(d)})
	}

	calls := 0
	results, err := a.Run(context.Background(), rows, Options{WorkerCount: 3}, func(Result) {
		calls++
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if calls != len(rows) {
		t.Fatalf("expected %d callbacks, but got %d", len(rows), calls)
	}
	if len(results) != len(rows) {
		t.Fatalf("expected %d results, but got %d", len(rows), len(results))
	}
	for i, res := range results {
		if res.ID != rows[i].ID {
			t.Fatalf("expected results in input order, but got id %d at position %d", res.ID, i)
		}
		expected := a.Analyze(context.Background(), rows[i])
		if res.Score != expected.Score {
			t.Fatalf("expected concurrent result to equal sequential result for row %d", res.ID)
		}
	}
}

func TestRunIsolatesBadRows(t *testing.T) {
	el := &recordingLogger{}
	a := &Analyzer{Log: el}

	rows := []Row{{ID: 1}, {ID: 2}, {ID: 3}}
	results, err := a.Run(context.Background(), rows, Options{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	for _, res := range results {
		if res.Err == nil {
			t.Fatalf("expected row %d to fail", res.ID)
		}
	}
	if len(el.errs) != len(rows) {
		t.Fatalf("expected %d logged errors, but got %d", len(rows), len(el.errs))
	}
}

func TestRunCancelled(t *testing.T) {
	a := NewAnalyzer(score.New(score.DefaultConfig()), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []Row{{ID: 1}, {ID: 2}}
	results, err := a.Run(ctx, rows, Options{WorkerCount: 1}, nil)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, but got %v", err)
	}
	if len(results) != len(rows) {
		t.Fatalf("expected %d results, but got %d", len(rows), len(results))
	}
}
