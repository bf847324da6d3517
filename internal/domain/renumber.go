package domain

import (
	"fmt"
	"slices"
)

// Renumber orders locations by portfolio then account, keeping the emitted
// order within an account, and assigns LocNumber 1..N.
func Renumber(locs []LocationRecord) []LocationRecord {
	out := slices.Clone(locs)
	slices.SortStableFunc(out, compareAccount)
	for i := range out {
		out[i].LocNumber = itoa(i + 1)
	}
	return out
}

// CheckSequential verifies the ordering Renumber produces.
func CheckSequential(locs []LocationRecord) error {
	for i, loc := range locs {
		if want := itoa(i + 1); loc.LocNumber != want {
			return fmt.Errorf("row %d: LocNumber %q, want %s", i+1, loc.LocNumber, want)
		}
		if i > 0 && compareAccount(locs[i-1], loc) > 0 {
			return fmt.Errorf("row %d: portfolio %q account %q out of order", i+1, loc.PortNumber, loc.AccNumber)
		}
	}
	return nil
}

func compareAccount(a, b LocationRecord) int {
	if c := compareNatural(a.PortNumber, b.PortNumber); c != 0 {
		return c
	}
	return compareNatural(a.AccNumber, b.AccNumber)
}
