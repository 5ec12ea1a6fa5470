package domain

import (
	"math"
	"regexp"
	"sort"
	"unicode"
)

var ipv4Shape = regexp.MustCompile(`^([0-9]{1,3}\.){3}[0-9]{1,3}$`)

type Features struct {
	Length           int     `json:"length"`
	WordCount        int     `json:"word_count"`
	SubdomainCount   int     `json:"subdomain_count"`
	HasHyphen        bool    `json:"has_hyphen"`
	HasDigits        bool    `json:"has_digits"`
	SpecialCharCount int     `json:"special_char_count"`
	DigitCount       int     `json:"digit_count"`
	IsIPAddress      bool    `json:"is_ip_address"`
	Entropy          float64 `json:"entropy"`
	ConsonantRatio   float64 `json:"consonant_ratio"`
}

func isConsonant(r rune) bool {
	switch unicode.ToLower(r) {
	case 'b', 'c', 'd', 'f', 'g', 'h', 'j', 'k', 'l', 'm', 'n', 'p', 'q', 'r', 's', 't', 'v', 'w', 'x', 'y', 'z':
		return true
	}
	return false
}

func isPlain(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
}

// Extract computes the lexical features of a domain name. The empty name yields the zero value.
func Extract(name string) Features {
	var f Features
	if name == "" {
		return f
	}

	freq := make(map[rune]int)
	consonants := 0
	dots := 0
	for _, r := range name {
		f.Length++
		freq[r]++

		switch {
		case r == '.':
			dots++
		case r == '-':
			f.HasHyphen = true
		case unicode.IsDigit(r):
			f.DigitCount++
		}
		if !isPlain(r) {
			f.SpecialCharCount++
		}
		if isConsonant(r) {
			consonants++
		}
	}

	f.SubdomainCount = dots
	f.WordCount = dots + 1
	f.HasDigits = f.DigitCount > 0
	f.IsIPAddress = ipv4Shape.MatchString(name)
	f.Entropy = entropy(freq, f.Length)
	f.ConsonantRatio = float64(consonants) / float64(f.Length)

	return f
}

func entropy(freq map[rune]int, n int) float64 {
	if n == 0 {
		return 0
	}
	// map iteration order is random, sum in rune order so the result is bit-stable
	runes := make([]rune, 0, len(freq))
	for r := range freq {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	var h float64
	for _, r := range runes {
		p := float64(freq[r]) / float64(n)
		h -= p * math.Log2(p)
	}
	// a single repeated symbol gives -0
	if h <= 0 {
		return 0
	}
	return h
}

// Entropy returns the Shannon entropy of the character distribution of s, in bits.
func Entropy(s string) float64 {
	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}
	return entropy(freq, n)
}

// ConsonantRatio returns the share of English consonant letters in s.
func ConsonantRatio(s string) float64 {
	n, c := 0, 0
	for _, r := range s {
		n++
		if isConsonant(r) {
			c++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(c) / float64(n)
}
