package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreAnalyze_LegacyCodesResolveWithoutSplit(t *testing.T) {
	e := fixtureEngine(t)
	loc := location(t, map[string]string{ColCountryCode: "MAR", ColGeogName1: "MAR-RABAT", ColLocNumber: "7"})

	got, err := e.PreAnalyze(loc)
	require.NoError(t, err)

	assert.Equal(t, SkipNone, got.Skip)
	assert.Nil(t, got.Partition)
	require.Len(t, got.Locations, 1)
	out := got.Locations[0]
	assert.Equal(t, "MOR", out.Country)
	assert.Equal(t, "MOR-RABAT", out.GeoName)
	assert.Equal(t, 3001, out.AreaPerilID)
	assert.Equal(t, 0, out.DisaggKey)
	assert.Equal(t, "MOR_7", out.OrigLocNumber)
	assert.Equal(t, "7", out.LocNumber)
	assert.Equal(t, "Mapped by L3 Admin: 3001", out.Message)
}

func TestPreAnalyze_DisaggregatesToGrid(t *testing.T) {
	e := fixtureEngine(t)
	loc := location(t, map[string]string{ColDisaggKey: "1"})

	got, err := e.PreAnalyze(loc)
	require.NoError(t, err)

	require.NotNil(t, got.Partition)
	assert.Equal(t, ReasonProportional, got.Partition.Reason)
	require.Len(t, got.Locations, 2)
	assert.Equal(t, 9001, got.Locations[0].AreaPerilID)
	assert.Equal(t, 9002, got.Locations[1].AreaPerilID)
	for _, child := range got.Locations {
		assert.Equal(t, int(ReasonProportional), child.DisaggKey)
		assert.Equal(t, SchemeVRG, child.Scheme)
		assert.Equal(t, "MOR_1", child.OrigLocNumber)
	}
	assert.Equal(t, "250000", got.Locations[0].Row()["BuildingTIV"])
	assert.Equal(t, "750000", got.Locations[1].Row()["BuildingTIV"])
}

func TestPreAnalyze_DisaggregatesToLevel(t *testing.T) {
	e := fixtureEngine(t)
	loc := location(t, map[string]string{ColGeogScheme1: "CRSL2", ColGeogName1: "MOR-NORTH", ColDisaggKey: "3"})

	got, err := e.PreAnalyze(loc)
	require.NoError(t, err)

	require.Len(t, got.Locations, 2)
	assert.Equal(t, "MOR-RABAT", got.Locations[0].GeoName)
	assert.Equal(t, "CRSL3", got.Locations[0].Scheme)
	assert.Equal(t, 3002, got.Locations[1].AreaPerilID)
}

func TestPreAnalyze_InvalidAmountFailsSplit(t *testing.T) {
	e := fixtureEngine(t)

	_, err := e.PreAnalyze(location(t, map[string]string{ColDisaggKey: "1", "BuildingTIV": "1,000,000"}))

	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Contains(t, err.Error(), "location 1")
	assert.Contains(t, err.Error(), "BuildingTIV")
}

func TestPreAnalyze_InvalidAmountPassesWithoutSplit(t *testing.T) {
	e := fixtureEngine(t)

	got, err := e.PreAnalyze(location(t, map[string]string{"BuildingTIV": "1,000,000"}))

	require.NoError(t, err)
	require.Len(t, got.Locations, 1)
	assert.Equal(t, "1,000,000", got.Locations[0].Row()["BuildingTIV"])
}

func TestPreAnalyze_GridHitIsNotSplit(t *testing.T) {
	e := fixtureEngine(t)
	loc := location(t, map[string]string{ColLongitude: "-7.0", ColLatitude: "33.5", ColDisaggKey: "1"})

	got, err := e.PreAnalyze(loc)
	require.NoError(t, err)

	assert.Nil(t, got.Partition)
	require.Len(t, got.Locations, 1)
	assert.Equal(t, 9001, got.Locations[0].AreaPerilID)
	assert.Equal(t, 0, got.Locations[0].DisaggKey)
}

func TestPreAnalyze_Skips(t *testing.T) {
	e := fixtureEngine(t)

	tests := []struct {
		name      string
		overrides map[string]string
		want      SkipReason
		wantMsg   string
	}{
		{
			name:      "unlicensed country",
			overrides: map[string]string{ColCountryCode: "ZZZ"},
			want:      SkipUnlicensedCountry,
			wantMsg:   `"ZZZ" is not in the list of licenced countries`,
		},
		{
			name:      "skip code on input is kept",
			overrides: map[string]string{ColDisaggKey: "-2"},
			want:      SkipUnknownAdminName,
			wantMsg:   `"MOR-RABAT" is not a valid CRSL3 Name/Code in MOR`,
		},
		{
			name:      "unmodelled peril",
			overrides: map[string]string{ColLocPerilsCovered: "WTC"},
			want:      SkipUnmodelledPeril,
			wantMsg:   `"WTC" is not in the list of modelled perils`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.PreAnalyze(location(t, tt.overrides))
			require.NoError(t, err)

			assert.Equal(t, tt.want, got.Skip)
			require.Len(t, got.Locations, 1)
			out := got.Locations[0]
			assert.Equal(t, int(tt.want), out.DisaggKey)
			assert.Equal(t, UnknownID, out.AreaPerilID)
			assert.Equal(t, tt.wantMsg, out.Message)
		})
	}
}

func TestLookupKeys_Success(t *testing.T) {
	e := fixtureEngine(t)
	pre, err := e.PreAnalyze(location(t, nil))
	require.NoError(t, err)
	require.Len(t, pre.Locations, 1)

	results := e.LookupKeys(pre.Locations[0])

	require.Len(t, results, 3)
	wantVul := []int{5001, 5002, 5003}
	wantCov := []int{1, 3, 4}
	for i, r := range results {
		assert.Equal(t, "1", r.LocID)
		assert.Equal(t, "QEQ", r.PerilID)
		assert.Equal(t, wantCov[i], r.CoverageType)
		assert.Equal(t, 3001, r.AreaPerilID)
		assert.Equal(t, wantVul[i], r.VulnerabilityID)
		assert.Equal(t, StatusSuccess, r.Status)
		assert.True(t, r.Success())
	}
	assert.Equal(t, "VulRef: MOR-QEQ-R-B-RCF-LR-GQU / Mapped by L3 Admin: 3001", results[0].Message)
}

func TestLookupKeys_SkippedLocationFails(t *testing.T) {
	e := fixtureEngine(t)
	pre, err := e.PreAnalyze(location(t, map[string]string{ColCountryCode: "ZZZ"}))
	require.NoError(t, err)

	results := e.LookupKeys(pre.Locations[0])

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, StatusFailed, r.Status)
		assert.Equal(t, UnknownID, r.AreaPerilID)
		assert.Equal(t, UnknownID, r.VulnerabilityID)
		assert.Equal(t, ` / "ZZZ" is not in the list of licenced countries`, r.Message)
	}
}

func TestLookupKeys_UnresolvedAreaFails(t *testing.T) {
	e := fixtureEngine(t)
	loc := location(t, nil)
	loc.OrigLocNumber = "MOR_1"
	loc.Message = "ZZZ is not a valid country name"

	results := e.LookupKeys(loc)

	for _, r := range results {
		assert.Equal(t, StatusFailed, r.Status)
		assert.False(t, r.Success())
	}
	assert.Equal(t, 5001, results[0].VulnerabilityID)
}

type stubPartitioner struct {
	calls int
}

func (s *stubPartitioner) Partition(req PartitionRequest) Partition {
	s.calls++
	return Partition{Level: req.From, Reason: ReasonUnresolved, Parts: []Part{{AreaID: req.Name, AreaPerilID: UnknownID, Weight: 1}}}
}

func TestWithPartitioner(t *testing.T) {
	stub := &stubPartitioner{}
	e := NewEngine(fixtureIndex(t), nil, WithPartitioner(stub))

	got, err := e.PreAnalyze(location(t, map[string]string{ColDisaggKey: "1"}))
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls)
	require.Len(t, got.Locations, 1)
	assert.Equal(t, 100, got.Locations[0].DisaggKey)
	assert.Equal(t, 3001, got.Locations[0].AreaPerilID)
}

func TestNewRun_UsesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	a := NewRun()
	b := NewRun()

	assert.Equal(t, fixed, a.StartedAt)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
