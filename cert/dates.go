package cert

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	"Jan 2 15:04:05 2006 MST",
	"20060102150405Z",
}

// parseDate accepts the OpenSSL text form ("Mar  1 12:00:00 2024 GMT") and the
// ASN.1 GeneralizedTime form ("20240301120000Z"). Results are in UTC.
func parseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
