package domain

import (
	"fmt"
	"slices"
	"strings"
)

// SkipReason is a negative FlexiLocDisaggKey: the location is not resolved.
type SkipReason int

const (
	SkipNone              SkipReason = 0
	SkipUnlicensedCountry SkipReason = -1
	SkipUnknownAdminName  SkipReason = -2
	SkipUnmodelledPeril   SkipReason = -3
)

// ModelPeril is the peril every eligible location is keyed under.
const ModelPeril = "QEQ"

var modelledPerils = []string{"QEQ", "QQ1", "AA1"}

// legacyCountryCodes fixes model country codes that differ from the OED code.
var legacyCountryCodes = map[string]string{
	"NA": "NAM",
}

// legacyNamePrefixes lists retired country prefixes still found in
// administrative names.
var legacyNamePrefixes = map[string][]string{
	"MOR": {"MAR"},
}

// Describe renders the fixed message for a skipped location.
func (s SkipReason) Describe(loc LocationRecord) string {
	switch s {
	case SkipNone:
		return ""
	case SkipUnlicensedCountry:
		return fmt.Sprintf("%q is not in the list of licenced countries", loc.Country)
	case SkipUnknownAdminName:
		return fmt.Sprintf("%q is not a valid %s Name/Code in %s", loc.GeoName, loc.Scheme, loc.Country)
	default:
		return fmt.Sprintf("%q is not in the list of modelled perils", loc.Perils)
	}
}

// Eligibility checks the location against the reference data. When several
// checks fail the last one reported wins.
func (ix *ReferenceIndex) Eligibility(loc LocationRecord) SkipReason {
	reason := SkipNone
	if !ix.IsKnownName(LevelCountry, loc.Country) {
		reason = SkipUnlicensedCountry
	}
	if level, ok := ParseScheme(loc.Scheme); ok && level > LevelCountry && level < LevelVRG {
		if !ix.IsKnownName(level, loc.GeoName) {
			reason = SkipUnknownAdminName
		}
	}
	if !coversModelledPeril(loc.Perils) {
		reason = SkipUnmodelledPeril
	}
	return reason
}

func coversModelledPeril(perils string) bool {
	for _, p := range strings.Split(upper(perils), ";") {
		if slices.Contains(modelledPerils, strings.TrimSpace(p)) {
			return true
		}
	}
	return false
}

// Normalize rewrites an eligible location into the model's vocabulary: the
// peril, the country code, legacy name prefixes and the administrative name.
// An unknown scheme or CRSL1 becomes CRSL1 named after the country.
func (ix *ReferenceIndex) Normalize(loc LocationRecord) LocationRecord {
	reported := upper(loc.Country)
	loc.Perils = ModelPeril

	country := reported
	if c, ok := ix.ModelCountry(reported); ok {
		country = c
	}
	if c, ok := legacyCountryCodes[country]; ok {
		country = c
	}
	loc.Country = country
	loc.GeoName = rewritePrefix(loc.GeoName, reported, country)

	level, ok := ParseScheme(loc.Scheme)
	switch {
	case !ok || level == LevelCountry:
		loc.Scheme = LevelCountry.Scheme()
		loc.GeoName = country
	case level == LevelVRG:
		loc.Scheme = SchemeVRG
	default:
		loc.Scheme = level.Scheme()
		if name, ok := ix.ModelName(level, loc.GeoName, country); ok {
			loc.GeoName = name
		}
	}
	return loc
}

func rewritePrefix(name, reported, country string) string {
	prefixes := legacyNamePrefixes[country]
	if reported != country {
		prefixes = append([]string{reported}, prefixes...)
	}
	trimmed := strings.TrimSpace(name)
	for _, p := range prefixes {
		if p == "" || p == country {
			continue
		}
		n := len(p) + 1
		if len(trimmed) >= n && strings.EqualFold(trimmed[:n], p+"-") {
			return country + "-" + trimmed[n:]
		}
	}
	return name
}
