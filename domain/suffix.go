package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

type InvalidDomainErr struct {
	Domain string
	Reason string
}

func (err InvalidDomainErr) Error() string {
	return fmt.Sprintf("invalid domain '%s': %s", err.Domain, err.Reason)
}

// Suffix is the public suffix breakdown of a domain name: for www.shop.example.co.uk the TLD
// is co.uk, the SLD example, the TRD www.shop and the apex example.co.uk.
type Suffix struct {
	Tld             string `json:"tld"`
	Sld             string `json:"sld"`
	Trd             string `json:"trd,omitempty"`
	Apex            string `json:"apex"`
	SubdomainLabels int    `json:"subdomain_labels"`
}

func isIp(name *publicsuffix.DomainName) bool {
	_, err := strconv.Atoi(name.TLD)
	return err == nil
}

func isSuffixErr(err error) bool {
	return err != nil && strings.HasSuffix(err.Error(), "is a suffix")
}

// Split breaks a domain name into its public suffix parts.
func Split(name string) (Suffix, error) {
	var s Suffix
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if name == "" {
		return s, InvalidDomainErr{name, "empty"}
	}
	if ipv4Shape.MatchString(name) {
		return s, InvalidDomainErr{name, "ip address"}
	}

	dn, err := publicsuffix.Parse(name)
	if err != nil {
		if isSuffixErr(err) {
			return s, InvalidDomainErr{name, "is a public suffix"}
		}
		return s, InvalidDomainErr{name, err.Error()}
	}
	if dn.Rule != nil && dn.Rule.Type == publicsuffix.WildcardType && isIp(dn) {
		return s, InvalidDomainErr{name, "ip address"}
	}

	s.Tld = dn.TLD
	s.Sld = dn.SLD
	s.Trd = dn.TRD
	s.Apex = fmt.Sprintf("%s.%s", dn.SLD, dn.TLD)
	if dn.TRD != "" {
		s.SubdomainLabels = len(strings.Split(dn.TRD, "."))
	}

	return s, nil
}
