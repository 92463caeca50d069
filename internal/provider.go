package internal

import "strings"

// ProviderIdentity names one of the configured upstream rate providers.
type ProviderIdentity string

const (
	ProviderFrankfurter ProviderIdentity = "frankfurter"
	ProviderFixer       ProviderIdentity = "fixer"
)

// ParseProviderIdentity normalizes s; an empty string stays empty so the
// registry can substitute its default.
func ParseProviderIdentity(s string) ProviderIdentity {
	return ProviderIdentity(strings.ToLower(strings.TrimSpace(s)))
}

func (p ProviderIdentity) String() string { return string(p) }
