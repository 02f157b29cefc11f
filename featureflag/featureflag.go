package featureflag

import (
	"sort"
	"strings"
)

// FeatureFlag is the set of flags a server runs with.
type FeatureFlag map[Flag]struct{}

// New returns the feature flags named in flags. Names are trimmed and upper
// cased so "disable_cache " and "DISABLE_CACHE" are the same flag. Empty
// names are ignored.
func New(flags []string) FeatureFlag {
	featureFlag := make(FeatureFlag, len(flags))
	for _, f := range flags {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			featureFlag[Flag(f)] = struct{}{}
		}
	}
	return featureFlag
}

// IfSet calls do when flag is set.
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if f.IsSet(flag) {
		do()
	}
}

// IfNotSet calls do when flag is not set.
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if !f.IsSet(flag) {
		do()
	}
}

// IsSet reports whether flag is set.
func (f FeatureFlag) IsSet(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// List returns the set flags in lexical order.
func (f FeatureFlag) List() []string {
	flags := make([]string, 0, len(f))
	for flag := range f {
		flags = append(flags, string(flag))
	}
	sort.Strings(flags)
	return flags
}
