// Package domain resolves exposure locations to area-peril and vulnerability
// keys and splits coarse locations into population-weighted children.
//
// # Geographic Schemes
//
// A location reports its geography as a scheme tag plus a name (OED
// GeogScheme1 / GeogName1):
//
//	CRSL1         country, the name is the country code
//	CRSL2..CRSL7  administrative levels 2 to 7, 7 being the finest boundary
//	CRSVG         village-grid cell, the name is the area-peril id
//
// Internally a scheme is a [Level] from 1 (country) to 8 (village grid).
//
// # Reference Data
//
// Area-peril records are indexed twice: administrative records by
// (country, name at their aggregation level, peril) and village-grid cells by
// (area-peril id, peril). Every key component is upper-cased once when the
// [ReferenceIndex] is built, and a key seen twice fails the build with
// [ErrDuplicateAreaKey].
//
// # Resolution Order
//
//  1. Lon/lat through the village grid raster, when both coordinates are valid.
//  2. The strategy matching the reported scheme (CRSVG, CRSL7..CRSL2).
//  3. Country fallback, used after any miss or for an unknown scheme.
//
// A hit in a different country than the one reported is accepted and the
// message is prefixed with "Warning-".
//
// # Disaggregation
//
// FlexiLocDisaggKey selects the target resolution: 1 splits to village-grid
// cells, 2..7 split to administrative level n. Negative values are skip codes
// and are never resolved:
//
//	-1  country not licensed
//	-2  administrative name unknown at its level
//	-3  no modelled peril in LocPerilsCovered
//
// Disaggregated children carry a reason code in the same column:
//
//	100  could not be split, stays at the source level
//	101  split proportionally to population
//	102  split uniformly (no population data)
//
// A child is emitted for every group with a positive weight. The monetary
// columns of a location being split must be plain numbers: "1,000,000" fails
// the split with [ErrInvalidAmount] rather than copying the whole value into
// each child.
//
// # Vulnerability Codes
//
//	COUNTRY-PERIL-RISK-COVERAGE-STRUCTURALTYPE-HEIGHT-QUALITY
//
// COUNTRY is the first three characters of FlexiLocNumber. Generated
// area-peril and vulnerability ids are all greater than 1000, which is what
// makes a key result a success.
package domain
