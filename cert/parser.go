package cert

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

type section int

const (
	sectionNone section = iota
	sectionChain
	sectionServerCert
)

type transition struct {
	match func(line string) bool
	to    section
}

// transitions are evaluated in order on every line; the first match moves the scanner.
var transitions = []transition{
	{func(l string) bool { return l == "" || strings.HasPrefix(l, "---") }, sectionNone},
	{func(l string) bool { return strings.Contains(l, "Certificate chain:") || l == "Certificate chain" }, sectionChain},
	{func(l string) bool { return strings.Contains(l, "Server certificate:") || l == "Server certificate" }, sectionServerCert},
}

var (
	markupTag = regexp.MustCompile(`<[^>]+>`)
	chainLine = regexp.MustCompile(`^(\d+\s+)?[si]:`)
	pemBody   = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)

	protocolLine  = regexp.MustCompile(`Protocol\s*:\s*([^:]*)`)
	cipherLine    = regexp.MustCompile(`Cipher\s*:\s*([^:]*)`)
	newCipherLine = regexp.MustCompile(`^New, ([^,]+), Cipher is (\S+)`)
	subjectLine   = regexp.MustCompile(`subject=(.*)$`)
	issuerLine    = regexp.MustCompile(`issuer=(.*)$`)
	keyAlgLine    = regexp.MustCompile(`Public Key Algorithm\s*:\s*([^:]*)`)
	keyBitsLine   = regexp.MustCompile(`Server public key is\D*(\d+)`)
	notBeforeLine = regexp.MustCompile(`Not Before\s*:\s*(.*)$`)
	notAfterLine  = regexp.MustCompile(`Not After\s*:\s*(.*)$`)
	sigAlgLine    = regexp.MustCompile(`Signature Algorithm\s*:\s*([^:]*)`)
)

var (
	hstsMarkers = []string{"strict-transport-security", "hsts"}
	ctMarkers   = []string{"ct precertificate scts", "signed certificate timestamp"}
	evMarkers   = []string{"extended validation"}
)

const (
	pemBegin = "-----BEGIN CERTIFICATE-----"
	pemEnd   = "-----END CERTIFICATE-----"
)

// normalize decodes non UTF-8 input as Latin-1 and strips markup tags
func normalize(text string) string {
	if !utf8.ValidString(text) {
		if decoded, err := charmap.ISO8859_1.NewDecoder().String(text); err == nil {
			text = decoded
		}
	}
	text = strings.Replace(text, "\r\n", "\n", -1)
	return markupTag.ReplaceAllString(text, "")
}

type parser struct {
	rec   Record
	state section

	// protocol of the "New, ..." summary line, used only when no Protocol line exists
	newProtocol *string

	inPEM     bool
	pemLines  []string
	pemState  section
	serverPEM []string
	firstPEM  []string
}

func setString(dst **string, v string) {
	v = strings.TrimSpace(v)
	if *dst != nil || v == "" || v == "(NONE)" {
		return
	}
	*dst = &v
}

func (p *parser) transition(line string) bool {
	for _, t := range transitions {
		if t.match(line) {
			p.state = t.to
			return true
		}
	}
	return false
}

func (p *parser) collectPEM(line string) bool {
	switch {
	case line == pemBegin:
		p.inPEM = true
		p.pemState = p.state
		p.pemLines = []string{line}
		return true
	case p.inPEM && line == pemEnd:
		p.inPEM = false
		p.pemLines = append(p.pemLines, line)
		if p.firstPEM == nil {
			p.firstPEM = p.pemLines
		}
		if p.pemState == sectionServerCert && p.serverPEM == nil {
			p.serverPEM = p.pemLines
		}
		p.pemLines = nil
		return true
	case p.inPEM && pemBody.MatchString(line):
		p.pemLines = append(p.pemLines, line)
		return true
	case p.inPEM:
		// truncated block, the line is handled like any other
		p.inPEM = false
		p.pemLines = nil
	}
	return false
}

func (p *parser) extract(line string) {
	r := &p.rec
	if m := protocolLine.FindStringSubmatch(line); m != nil {
		setString(&r.ProtocolVersion, m[1])
	}
	if m := cipherLine.FindStringSubmatch(line); m != nil {
		setString(&r.CipherSuite, m[1])
	}
	if m := newCipherLine.FindStringSubmatch(line); m != nil {
		setString(&p.newProtocol, m[1])
		setString(&r.CipherSuite, m[2])
	}
	if m := subjectLine.FindStringSubmatch(line); m != nil {
		parseName(m[1], &r.Subject)
	}
	if m := issuerLine.FindStringSubmatch(line); m != nil {
		parseName(m[1], &r.Issuer)
	}
	if m := keyAlgLine.FindStringSubmatch(line); m != nil {
		setString(&r.KeyAlgorithm, m[1])
	}
	if m := keyBitsLine.FindStringSubmatch(line); m != nil && r.PublicKeyBits == nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			r.PublicKeyBits = &n
		}
	}
	if m := notBeforeLine.FindStringSubmatch(line); m != nil && r.NotBefore == nil {
		if t, ok := parseDate(m[1]); ok {
			r.NotBefore = &t
		}
	}
	if m := notAfterLine.FindStringSubmatch(line); m != nil && r.NotAfter == nil {
		if t, ok := parseDate(m[1]); ok {
			r.NotAfter = &t
		}
	}
	if m := sigAlgLine.FindStringSubmatch(line); m != nil {
		setString(&r.SignatureAlgorithm, m[1])
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Parse extracts a Record from a textual certificate/handshake dump, as produced
// by "openssl s_client" and "openssl x509 -text". It never fails: fields that
// cannot be found are left empty.
func Parse(text string) Record {
	text = normalize(text)
	p := parser{}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if p.collectPEM(line) {
			continue
		}
		if p.transition(line) {
			continue
		}
		if p.state == sectionChain && chainLine.MatchString(line) {
			// each certificate in the chain contributes an s: and an i: line
			p.rec.ChainLength++
		}
		p.extract(line)
	}

	if p.rec.ProtocolVersion == nil {
		p.rec.ProtocolVersion = p.newProtocol
	}

	lower := strings.ToLower(text)
	p.rec.Markers = Markers{
		HSTS:                    containsAny(lower, hstsMarkers),
		CertificateTransparency: containsAny(lower, ctMarkers),
		ExtendedValidation:      containsAny(lower, evMarkers),
	}

	pemLines := p.serverPEM
	if pemLines == nil {
		pemLines = p.firstPEM
	}
	if pemLines != nil {
		p.rec.Leaf = decodeLeaf(pemLines)
		if p.rec.Leaf != nil {
			if p.rec.Leaf.HasSCTs {
				p.rec.Markers.CertificateTransparency = true
			}
			if p.rec.Leaf.ValidationLevel == EV {
				p.rec.Markers.ExtendedValidation = true
			}
		}
	}

	return p.rec
}
