package cert

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/pem"
	"strings"
	"time"

	"github.com/google/certificate-transparency-go/asn1"
	"github.com/google/certificate-transparency-go/x509"
)

type ValidationLevel int

const (
	UnknownValidation ValidationLevel = 0
	DV                ValidationLevel = 1
	OV                ValidationLevel = 2
	EV                ValidationLevel = 3
)

func (vl ValidationLevel) String() string {
	switch vl {
	case DV:
		return "DV"
	case OV:
		return "OV"
	case EV:
		return "EV"
	}
	return "unknown"
}

var (
	dv = asn1.ObjectIdentifier{2, 23, 140, 1, 2, 1}
	ov = asn1.ObjectIdentifier{2, 23, 140, 1, 2, 2}
	ev = asn1.ObjectIdentifier{2, 23, 140, 1, 1}
)

// Leaf holds what is read from the PEM encoded server certificate, when the dump carries one.
type Leaf struct {
	DNSNames           []string        `json:"dns_names"`
	Wildcard           bool            `json:"wildcard"`
	ValidationLevel    ValidationLevel `json:"validation_level"`
	HasSCTs            bool            `json:"has_scts"`
	SelfIssued         bool            `json:"self_issued"`
	KeyAlgorithm       string          `json:"key_algorithm"`
	KeyBits            int             `json:"key_bits"`
	SignatureAlgorithm string          `json:"signature_algorithm"`
	NotBefore          time.Time       `json:"not_before"`
	NotAfter           time.Time       `json:"not_after"`
}

func (l *Leaf) SanCount() int {
	return len(l.DNSNames)
}

func (l *Leaf) ValidityDays() int {
	return int(l.NotAfter.Sub(l.NotBefore).Hours() / 24)
}

func getValidationLevel(c *x509.Certificate) ValidationLevel {
	for _, pi := range c.PolicyIdentifiers {
		switch {
		case pi.Equal(dv):
			return DV
		case pi.Equal(ov):
			return OV
		case pi.Equal(ev):
			return EV
		}
	}
	return UnknownValidation
}

func keyBits(pub interface{}) int {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k.N.BitLen()
	case *ecdsa.PublicKey:
		return k.Curve.Params().BitSize
	}
	return 0
}

// decodeLeaf parses a PEM block. Nil is returned for anything that is not a
// parseable certificate; non-fatal parse errors are tolerated.
func decodeLeaf(lines []string) *Leaf {
	block, _ := pem.Decode([]byte(strings.Join(lines, "\n") + "\n"))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil
	}
	c, err := x509.ParseCertificate(block.Bytes)
	if err != nil && x509.IsFatal(err) {
		return nil
	}
	if c == nil {
		return nil
	}

	l := Leaf{
		DNSNames:           c.DNSNames,
		ValidationLevel:    getValidationLevel(c),
		HasSCTs:            len(c.SCTList.SCTList) > 0,
		SelfIssued:         c.Subject.String() == c.Issuer.String(),
		KeyAlgorithm:       c.PublicKeyAlgorithm.String(),
		KeyBits:            keyBits(c.PublicKey),
		SignatureAlgorithm: c.SignatureAlgorithm.String(),
		NotBefore:          c.NotBefore.UTC(),
		NotAfter:           c.NotAfter.UTC(),
	}
	for _, san := range c.DNSNames {
		if strings.HasPrefix(san, "*.") {
			l.Wildcard = true
			break
		}
	}
	return &l
}
