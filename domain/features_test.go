package domain

import (
	"math"
	"strings"
	"testing"
)

const eps = 1e-9

func TestExtractEmpty(t *testing.T) {
	f := Extract("")
	if f != (Features{}) {
		t.Fatalf("expected zero features for empty domain, but got %+v", f)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		expected Features
	}{
		{
			name:   "simple",
			domain: "a.com",
			expected: Features{
				Length:         5,
				WordCount:      2,
				SubdomainCount: 1,
				Entropy:        math.Log2(5),
				ConsonantRatio: 2.0 / 5,
			},
		},
		{
			name:   "hyphen and digits",
			domain: "my-bank24.example.com",
			expected: Features{
				Length:         21,
				WordCount:      3,
				SubdomainCount: 2,
				HasHyphen:      true,
				HasDigits:      true,
				DigitCount:     2,
				Entropy:        Entropy("my-bank24.example.com"),
				ConsonantRatio: ConsonantRatio("my-bank24.example.com"),
			},
		},
		{
			name:   "ip address",
			domain: "192.168.1.1",
			expected: Features{
				Length:         11,
				WordCount:      4,
				SubdomainCount: 3,
				HasDigits:      true,
				DigitCount:     8,
				IsIPAddress:    true,
				Entropy:        Entropy("192.168.1.1"),
			},
		},
		{
			name:   "out of range octets still match the shape",
			domain: "999.999.999.999",
			expected: Features{
				Length:         15,
				WordCount:      4,
				SubdomainCount: 3,
				HasDigits:      true,
				DigitCount:     12,
				IsIPAddress:    true,
				Entropy:        Entropy("999.999.999.999"),
			},
		},
		{
			name:   "special characters",
			domain: "pay_pal@login.com",
			expected: Features{
				Length:           17,
				WordCount:        2,
				SubdomainCount:   1,
				SpecialCharCount: 2,
				Entropy:          Entropy("pay_pal@login.com"),
				ConsonantRatio:   ConsonantRatio("pay_pal@login.com"),
			},
		},
		{
			name:   "unicode counts runes",
			domain: "bücher.de",
			expected: Features{
				Length:           9,
				WordCount:        2,
				SubdomainCount:   1,
				SpecialCharCount: 1,
				Entropy:          Entropy("bücher.de"),
				ConsonantRatio:   5.0 / 9,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Extract(tt.domain)
			if math.Abs(f.Entropy-tt.expected.Entropy) > eps {
				t.Fatalf("expected entropy %f, but got %f", tt.expected.Entropy, f.Entropy)
			}
			if math.Abs(f.ConsonantRatio-tt.expected.ConsonantRatio) > eps {
				t.Fatalf("expected consonant ratio %f, but got %f", tt.expected.ConsonantRatio, f.ConsonantRatio)
			}
			f.Entropy, tt.expected.Entropy = 0, 0
			f.ConsonantRatio, tt.expected.ConsonantRatio = 0, 0
			if f != tt.expected {
				t.Fatalf("expected %+v, but got %+v", tt.expected, f)
			}
		})
	}
}

func TestIPShapeIsAnchored(t *testing.T) {
	for _, d := range []string{"1.2.3.4.example.com", "1.2.3", "a1.2.3.4", "1.2.3.4567"} {
		if Extract(d).IsIPAddress {
			t.Fatalf("expected %s not to be an ip address", d)
		}
	}
}

func TestEntropy(t *testing.T) {
	for _, n := range []int{1, 2, 10, 100} {
		if h := Entropy(strings.Repeat("a", n)); h != 0 {
			t.Fatalf("expected zero entropy for %d repeated characters, but got %f", n, h)
		}
	}

	// k distinct, equally frequent characters
	alphabet := "abcdefgh"
	for k := 1; k <= len(alphabet); k++ {
		s := strings.Repeat(alphabet[:k], 7)
		if h := Entropy(s); math.Abs(h-math.Log2(float64(k))) > eps {
			t.Fatalf("expected entropy %f for %d symbols, but got %f", math.Log2(float64(k)), k, h)
		}
	}

	if h := Entropy(""); h != 0 {
		t.Fatalf("expected zero entropy for empty string, but got %f", h)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	d := "xn--80ak6aa92e.k8s-cluster-01.internal.example.org"
	first := Extract(d)
	for i := 0; i < 50; i++ {
		if f := Extract(d); f != first {
			t.Fatalf("expected identical features on repeated extraction, got %+v and %+v", first, f)
		}
	}
}

func TestConsonantRatio(t *testing.T) {
	tests := []struct {
		s        string
		expected float64
	}{
		{"", 0},
		{"aeiou", 0},
		{"BCD", 1},
		{"ab.c", 0.5},
		{"123", 0},
	}
	for _, tt := range tests {
		if r := ConsonantRatio(tt.s); math.Abs(r-tt.expected) > eps {
			t.Fatalf("expected consonant ratio %f for '%s', but got %f", tt.expected, tt.s, r)
		}
	}
}
