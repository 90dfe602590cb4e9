package registrar

import (
	"strings"

	dErrors "domainvault/pkg/domain-errors"
	pstrings "domainvault/pkg/platform/strings"
)

const maxLabelLength = 63

// DomainPair is a second-level label plus TLD, e.g. ("example", "co.uk").
type DomainPair struct {
	SLD string `json:"sld"`
	TLD string `json:"tld"`
}

func (p DomainPair) String() string {
	return p.SLD + "." + p.TLD
}

// ParseDomain splits a fully qualified name at the first dot.
// Input is lower-cased; a leading scheme or "www." is not accepted.
func ParseDomain(raw string) (DomainPair, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".")
	sld, tld, ok := strings.Cut(name, ".")
	if !ok || sld == "" || tld == "" {
		return DomainPair{}, dErrors.New(dErrors.CodeValidation, "domain must look like name.tld")
	}
	if !validLabel(sld) {
		return DomainPair{}, dErrors.New(dErrors.CodeValidation, "invalid domain label "+sld)
	}
	for _, label := range strings.Split(tld, ".") {
		if !validLabel(label) {
			return DomainPair{}, dErrors.New(dErrors.CodeValidation, "invalid top-level domain "+tld)
		}
	}
	return DomainPair{SLD: sld, TLD: tld}, nil
}

func validLabel(label string) bool {
	if label == "" || len(label) > maxLabelLength {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}

// NormalizeTLDs trims, lower-cases and dedupes TLDs, dropping a leading dot.
func NormalizeTLDs(tlds []string) []string {
	cleaned := make([]string, 0, len(tlds))
	for _, t := range tlds {
		cleaned = append(cleaned, strings.TrimPrefix(strings.TrimSpace(t), "."))
	}
	return pstrings.DedupeAndTrimLower(cleaned)
}

var (
	suggestionPrefixes = []string{"get", "try", "my"}
	suggestionSuffixes = []string{"hq", "app", "mail"}
)

// suggestionTLDLimit bounds how many TLDs receive prefixed and suffixed variants.
const suggestionTLDLimit = 3

// SuggestCandidates derives the names to check for a keyword: the keyword on
// every TLD, then get/try/my prefixes and hq/app/mail suffixes on the first
// three TLDs. The order is fixed and duplicates are dropped.
func SuggestCandidates(keyword string, tlds []string) ([]DomainPair, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if !validLabel(kw) {
		return nil, dErrors.New(dErrors.CodeValidation, "keyword must be a valid domain label")
	}
	tlds = NormalizeTLDs(tlds)
	if len(tlds) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one tld is required")
	}

	seen := make(map[DomainPair]struct{})
	var out []DomainPair
	add := func(sld, tld string) {
		if !validLabel(sld) {
			return
		}
		p := DomainPair{SLD: sld, TLD: tld}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, tld := range tlds {
		add(kw, tld)
	}
	limited := tlds
	if len(limited) > suggestionTLDLimit {
		limited = limited[:suggestionTLDLimit]
	}
	for _, tld := range limited {
		for _, prefix := range suggestionPrefixes {
			add(prefix+kw, tld)
		}
		for _, suffix := range suggestionSuffixes {
			add(kw+suffix, tld)
		}
	}
	return out, nil
}
