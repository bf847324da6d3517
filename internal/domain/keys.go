package domain

// Coverage is an OED coverage type id.
type Coverage int

const (
	CoverageBuilding Coverage = 1
	CoverageOther    Coverage = 2
	CoverageContents Coverage = 3
	CoverageBI       Coverage = 4
)

// KeyedCoverages are the coverages a key result is produced for.
var KeyedCoverages = []Coverage{CoverageBuilding, CoverageContents, CoverageBI}

// Code returns the coverage letter used in vulnerability codes.
func (c Coverage) Code() string {
	switch c {
	case CoverageBuilding:
		return "B"
	case CoverageOther:
		return "O"
	case CoverageContents:
		return "C"
	case CoverageBI:
		return "I"
	}
	return ""
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// validIDFloor is exceeded by every generated area-peril and vulnerability id.
const validIDFloor = 1000

// ValidID reports whether id is a generated area-peril or vulnerability id.
func ValidID(id int) bool {
	return id > validIDFloor
}

// ResultRecord is the key assigned to one location and coverage.
type ResultRecord struct {
	LocID           string `json:"loc_id"`
	PerilID         string `json:"peril_id"`
	CoverageType    int    `json:"coverage_type"`
	AreaPerilID     int    `json:"area_peril_id"`
	VulnerabilityID int    `json:"vulnerability_id"`
	Message         string `json:"message"`
	Status          string `json:"status"`
}

// Success reports whether both ids are valid.
func (r ResultRecord) Success() bool {
	return r.Status == StatusSuccess
}

// keyResult builds the result for one coverage of a pre-analysed location.
func (v *VulnerabilityResolver) keyResult(loc LocationRecord, cov Coverage) ResultRecord {
	res := ResultRecord{
		LocID:        loc.LocNumber,
		PerilID:      loc.Perils,
		CoverageType: int(cov),
		Status:       StatusFailed,
	}

	if loc.DisaggKey < 0 {
		res.AreaPerilID = UnknownID
		res.VulnerabilityID = UnknownID
		res.Message = " / " + SkipReason(loc.DisaggKey).Describe(loc)
		return res
	}

	vulID, vulMsg := v.Resolve(loc, cov)
	res.AreaPerilID = loc.AreaPerilID
	res.VulnerabilityID = vulID
	res.Message = vulMsg + " / " + loc.Message
	if ValidID(res.AreaPerilID) && ValidID(res.VulnerabilityID) {
		res.Status = StatusSuccess
	}
	return res
}
