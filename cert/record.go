package cert

import (
	"strings"
	"time"
)

// Record holds what could be recovered from one certificate/handshake dump.
// Optional fields are nil when the dump did not contain them.
type Record struct {
	ProtocolVersion    *string    `json:"protocol_version"`
	CipherSuite        *string    `json:"cipher_suite"`
	ChainLength        int        `json:"chain_length"`
	Subject            Name       `json:"subject"`
	Issuer             Name       `json:"issuer"`
	PublicKeyBits      *int       `json:"public_key_bits"`
	KeyAlgorithm       *string    `json:"key_algorithm"`
	SignatureAlgorithm *string    `json:"signature_algorithm"`
	NotBefore          *time.Time `json:"not_before"`
	NotAfter           *time.Time `json:"not_after"`

	Markers Markers `json:"markers"`
	Leaf    *Leaf   `json:"leaf,omitempty"`
}

// WithCipherSuite returns a copy of the record carrying the given suite, unless the record already has one.
func (r Record) WithCipherSuite(suite string) Record {
	if r.CipherSuite == nil && strings.TrimSpace(suite) != "" {
		s := strings.TrimSpace(suite)
		r.CipherSuite = &s
	}
	return r
}

// ValidityDays returns the number of whole days between NotBefore and NotAfter, and false if either is absent.
func (r Record) ValidityDays() (int, bool) {
	if r.NotBefore == nil || r.NotAfter == nil {
		return 0, false
	}
	return int(r.NotAfter.Sub(*r.NotBefore).Hours() / 24), true
}

// Markers are security-relevant indicators found next to the certificate itself.
type Markers struct {
	HSTS                    bool `json:"hsts"`
	CAA                     bool `json:"caa"`
	CertificateTransparency bool `json:"certificate_transparency"`
	ExtendedValidation      bool `json:"extended_validation"`
}

// Name is a distinguished name (subject or issuer), keyed by the attribute short names used in
// OpenSSL output. Attributes without a dedicated field end up in Other.
type Name struct {
	CommonName         string            `json:"CN,omitempty"`
	Organization       string            `json:"O,omitempty"`
	OrganizationalUnit string            `json:"OU,omitempty"`
	Country            string            `json:"C,omitempty"`
	Province           string            `json:"ST,omitempty"`
	Locality           string            `json:"L,omitempty"`
	Other              map[string]string `json:"other,omitempty"`
}

func (n *Name) field(key string) *string {
	switch key {
	case "CN":
		return &n.CommonName
	case "O":
		return &n.Organization
	case "OU":
		return &n.OrganizationalUnit
	case "C":
		return &n.Country
	case "ST":
		return &n.Province
	case "L":
		return &n.Locality
	}
	return nil
}

// Get returns the value of an attribute by its short name.
func (n Name) Get(key string) string {
	if f := n.field(key); f != nil {
		return *f
	}
	return n.Other[key]
}

// set stores an attribute unless it already holds a value
func (n *Name) set(key, value string) {
	if key == "" || value == "" {
		return
	}
	if f := n.field(key); f != nil {
		if *f == "" {
			*f = value
		}
		return
	}
	if n.Other == nil {
		n.Other = make(map[string]string)
	}
	if _, ok := n.Other[key]; !ok {
		n.Other[key] = value
	}
}

// IsEmpty reports whether no attribute of the name was found in the dump.
func (n Name) IsEmpty() bool {
	return n.CommonName == "" && n.Organization == "" && n.OrganizationalUnit == "" &&
		n.Country == "" && n.Province == "" && n.Locality == "" && len(n.Other) == 0
}

// String renders the name in OpenSSL one-line form, e.g. "C = US, O = Let's Encrypt, CN = R3".
func (n Name) String() string {
	var parts []string
	for _, k := range []string{"C", "ST", "L", "O", "OU", "CN"} {
		if v := n.Get(k); v != "" {
			parts = append(parts, k+" = "+v)
		}
	}
	for _, k := range sortedKeys(n.Other) {
		parts = append(parts, k+" = "+n.Other[k])
	}
	return strings.Join(parts, ", ")
}
