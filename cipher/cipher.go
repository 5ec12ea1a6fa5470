package cipher

import (
	"strings"
)

type Category string

const (
	Excellent  Category = "excellent"
	Strong     Category = "strong"
	Acceptable Category = "acceptable"
	Legacy     Category = "legacy"
	Weak       Category = "weak"
	Unknown    Category = "unknown"
)

type KeyExchange string

const (
	ECDHE     KeyExchange = "ECDHE"
	DHE       KeyExchange = "DHE"
	ECDH      KeyExchange = "ECDH"
	DH        KeyExchange = "DH"
	RSA       KeyExchange = "RSA"
	OtherKx   KeyExchange = "other"
	UnknownKx KeyExchange = "unknown"
)

// Categories lists every category in classification priority order, followed by Unknown.
var Categories = []Category{Excellent, Strong, Acceptable, Legacy, Weak, Unknown}

type Classification struct {
	Category                 Category    `json:"category"`
	HasPerfectForwardSecrecy bool        `json:"has_perfect_forward_secrecy"`
	KeyExchange              KeyExchange `json:"key_exchange"`
}

type categoryRule struct {
	category Category
	match    func(suite string) bool
}

// first matching rule wins
var categoryRules = []categoryRule{
	{Excellent, func(s string) bool {
		return strings.Contains(s, "CHACHA20")
	}},
	{Strong, func(s string) bool {
		return strings.Contains(s, "GCM") && hasPFS(s)
	}},
	{Acceptable, func(s string) bool {
		return strings.Contains(s, "CBC") && strings.Contains(s, "SHA256")
	}},
	{Legacy, func(s string) bool {
		return strings.Contains(s, "CBC") || strings.Contains(s, "SHA1")
	}},
}

type kxRule struct {
	kx      KeyExchange
	markers []string
}

// ECDHE must be tested before DHE and ECDH, and ECDH before DH, since the shorter names are substrings
var kxRules = []kxRule{
	{ECDHE, []string{"ECDHE"}},
	{DHE, []string{"DHE", "EDH"}},
	{ECDH, []string{"ECDH"}},
	{DH, []string{"DH"}},
	{RSA, []string{"RSA"}},
}

func normalize(suite string) string {
	return strings.ToUpper(strings.TrimSpace(suite))
}

func hasPFS(s string) bool {
	return strings.Contains(s, "ECDHE") || strings.Contains(s, "DHE")
}

// Classify derives the strength category, forward secrecy and key exchange family of a
// cipher suite name, in either IANA (TLS_ECDHE_RSA_WITH_...) or OpenSSL (ECDHE-RSA-...) notation.
func Classify(suite string) Classification {
	s := normalize(suite)
	if s == "" {
		return Classification{
			Category:    Unknown,
			KeyExchange: UnknownKx,
		}
	}

	return Classification{
		Category:                 categorize(s),
		HasPerfectForwardSecrecy: hasPFS(s),
		KeyExchange:              keyExchange(s),
	}
}

func categorize(s string) Category {
	for _, r := range categoryRules {
		if r.match(s) {
			return r.category
		}
	}
	return Weak
}

func keyExchange(s string) KeyExchange {
	for _, r := range kxRules {
		for _, m := range r.markers {
			if strings.Contains(s, m) {
				return r.kx
			}
		}
	}
	return OtherKx
}

// HasPerfectForwardSecrecy reports whether the suite uses an ephemeral (EC)DH key exchange.
func HasPerfectForwardSecrecy(suite string) bool {
	return hasPFS(normalize(suite))
}

// ExtractKeyExchange returns the key exchange family of a suite, or UnknownKx for an empty suite.
func ExtractKeyExchange(suite string) KeyExchange {
	s := normalize(suite)
	if s == "" {
		return UnknownKx
	}
	return keyExchange(s)
}
