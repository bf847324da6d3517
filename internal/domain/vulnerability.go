package domain

import (
	"fmt"
	"slices"
	"strings"
)

const maxYearBuilt = 2030

// HeightBucket classifies a building by its number of storeys. Some
// structural types override the count.
func HeightBucket(storeys int, structuralType string) string {
	switch upper(structuralType) {
	case "XXX":
		return "XX"
	case "TIM", "MAS", "ADB":
		return "LR"
	}
	switch {
	case storeys <= 0:
		return "MR"
	case storeys <= 3:
		return "LR"
	case storeys <= 7:
		return "MR"
	case storeys <= 120:
		return "HR"
	default:
		return "MR"
	}
}

// QualityBucket classifies a building by year built. Unknown or implausible
// years use the construction class's declared quality.
func QualityBucket(yearBuilt int, declared string) string {
	switch {
	case yearBuilt <= 0 || yearBuilt > maxYearBuilt:
		return upper(declared)
	case yearBuilt <= 1960:
		return "LQU"
	case yearBuilt <= 1990:
		return "MQU"
	default:
		return "GQU"
	}
}

// VulnerabilityCode joins the code components, upper-cased.
func VulnerabilityCode(country, peril, risk, coverage, structuralType, height, quality string) string {
	parts := []string{country, peril, risk, coverage, structuralType, height, quality}
	for i, p := range parts {
		parts[i] = upper(p)
	}
	return strings.Join(parts, "-")
}

// buildingOnlyRisks are keyed under the building coverage for every coverage.
var buildingOnlyRisks = []string{"A", "M", "E"}

// VulnerabilityResolver derives vulnerability ids from construction and
// occupancy attributes.
type VulnerabilityResolver struct {
	index *ReferenceIndex
}

// NewVulnerabilityResolver creates a resolver over the index.
func NewVulnerabilityResolver(ix *ReferenceIndex) *VulnerabilityResolver {
	return &VulnerabilityResolver{index: ix}
}

// Resolve returns the vulnerability id for a location and coverage, or
// UnknownID with a message describing the miss.
func (v *VulnerabilityResolver) Resolve(loc LocationRecord, cov Coverage) (int, string) {
	hasClass := v.index.HasConstructionClass(loc.Construction)
	occ, hasOcc := v.index.Occupancy(loc.Occupancy)
	switch {
	case !hasClass && !hasOcc:
		return UnknownID, fmt.Sprintf("%s & %s are not valid Construction and Occupancy Codes", loc.Construction, loc.Occupancy)
	case !hasClass:
		return UnknownID, fmt.Sprintf("%s is not a valid ConstructionCode", loc.Construction)
	case !hasOcc:
		return UnknownID, fmt.Sprintf("%s is not a valid OccupancyCode", loc.Occupancy)
	}

	class, ok := v.index.Construction(loc.Construction, loc.Perils)
	if !ok {
		return UnknownID, fmt.Sprintf("%s is not a valid ConstructionCode for peril %s", loc.Construction, loc.Perils)
	}

	coverage := cov.Code()
	if slices.Contains(buildingOnlyRisks, upper(occ.RiskCode)) {
		coverage = CoverageBuilding.Code()
	}

	code := VulnerabilityCode(
		countryPrefix(loc.OrigLocNumber),
		class.PerilCode,
		occ.RiskCode,
		coverage,
		class.StructuralType,
		HeightBucket(loc.Storeys, class.StructuralType),
		QualityBucket(loc.YearBuilt, class.QualityCode),
	)
	id, ok := v.index.VulnerabilityID(code)
	if !ok {
		return UnknownID, fmt.Sprintf("There is no Vul-ID for %s", code)
	}
	return id, "VulRef: " + code
}

func countryPrefix(origLocNumber string) string {
	s := strings.TrimSpace(origLocNumber)
	if len(s) > 3 {
		s = s[:3]
	}
	return upper(s)
}
