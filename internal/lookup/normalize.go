package lookup

import (
	"regexp"
	"strings"

	"github.com/jmylchreest/vincheck-api/internal/models"
)

var (
	// Path segments that carry a marketplace record ID. The digits must be
	// the whole segment, so slugs like /vehicle/2019-bmw-x5-<vin> fall through.
	recordPathRegex = regexp.MustCompile(`(?i)/(?:record|lot|lots|listing|item|vehicle)/(\d+)(?:[/?#]|$)`)
	digitRunRegex   = regexp.MustCompile(`\d{8,}`)
	// VIN alphabet excludes I, O and Q.
	vinWholeRegex    = regexp.MustCompile(`(?i)^[A-HJ-NPR-Z0-9]{17}$`)
	vinEmbeddedRegex = regexp.MustCompile(`(?i)(?:^|[^A-Z0-9])([A-HJ-NPR-Z0-9]{17})(?:[^A-Z0-9]|$)`)
)

// NormalizeIdentifier derives a LookupKey from free-form input: a bare record
// ID, a VIN, or a URL containing either. It returns ErrIdentifierNotFound when
// nothing usable is present.
//
// Order: all digits, record path segment, whole-input VIN, longest run of at
// least eight digits, VIN embedded in a URL. A VIN may itself contain eight
// consecutive digits, so VIN-shaped tokens never contribute a digit run.
func NormalizeIdentifier(input string) (models.LookupKey, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrIdentifierNotFound
	}

	if isAllDigits(s) {
		return models.LookupKey(s), nil
	}

	if m := recordPathRegex.FindStringSubmatch(s); m != nil {
		return models.LookupKey(m[1]), nil
	}

	if vinWholeRegex.MatchString(s) {
		return models.LookupKey(s), nil
	}

	// Digits inside an embedded VIN are not a record ID.
	vin, masked := maskEmbeddedVINs(s)
	if run := longestDigitRun(masked); run != "" {
		return models.LookupKey(run), nil
	}
	if vin != "" {
		return models.LookupKey(vin), nil
	}

	return "", ErrIdentifierNotFound
}

// maskEmbeddedVINs returns the first embedded VIN (one containing at least
// one letter) and s with every such VIN blanked out.
func maskEmbeddedVINs(s string) (string, string) {
	var first string
	masked := []byte(s)
	for _, loc := range vinEmbeddedRegex.FindAllStringSubmatchIndex(s, -1) {
		start, end := loc[2], loc[3]
		token := s[start:end]
		if !hasLetter(token) {
			continue
		}
		if first == "" {
			first = token
		}
		for i := start; i < end; i++ {
			masked[i] = ' '
		}
	}
	return first, string(masked)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			return true
		}
	}
	return false
}

// longestDigitRun returns the longest qualifying run; ties go to the first.
func longestDigitRun(s string) string {
	var best string
	for _, run := range digitRunRegex.FindAllString(s, -1) {
		if len(run) > len(best) {
			best = run
		}
	}
	return best
}
