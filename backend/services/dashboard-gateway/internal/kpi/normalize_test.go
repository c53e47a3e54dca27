package kpi

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalOperator(t *testing.T) {
	cases := map[string]string{
		"Jio True5G":  "JIO 5G",
		"JIO4G":       "JIO 4G",
		"jio  4g":     "JIO 4G",
		" Airtel ":    "Airtel",
		"Vodafone IN": "Vi (Vodafone Idea)",
		"Vi India":    "Vi (Vodafone Idea)",
		"//////":      UnknownOperator,
		"404011":      UnknownOperator,
		"":            UnknownOperator,
		"BSNL Mobile": "BSNL Mobile",
		"JIO 5G":      "JIO 5G",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, CanonicalOperator(in))
		})
	}
}

func TestMergeWeightedAveragesByCount(t *testing.T) {
	rows := []map[string]any{
		{"Operator": "JIO 4G", "AvgRSRP": -90.0, "sampleCount": 100.0},
		{"Operator": "JIO4G", "AvgRSRP": -100.0, "sampleCount": 300.0},
		{"Operator": "Airtel", "AvgRSRP": -80.0},
		{"Operator": "404011", "AvgRSRP": -70.0, "sampleCount": "2"},
	}

	got := MergeWeighted(rows, "Operator", "AvgRSRP", "sampleCount")
	want := []Point{
		{Name: "JIO 4G", Value: -97.5},
		{Name: "Airtel", Value: -80},
		{Name: UnknownOperator, Value: -70},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeMergesPayloads(t *testing.T) {
	stats := []byte(`{"Status":1,"Data":{
		"totalUsers":"12","totalSessions":40,"totalOnlineSessions":3,
		"totalLogPoints":9000,
		"operatorWiseSamples":[{"name":"Jio True5G","value":10,"count":1},{"name":"Airtel","value":20}],
		"monthlySampleCounts":[{"month":"Jan","count":5}]
	}}`)
	graphs := []byte(`{"data":{
		"monthlySampleCounts":[{"month":"Feb","count":7},{"name":"Mar","value":"8"}],
		"networkTypeDistribution_horizontal_bar":[{"network":"4G","count":30},{"network":"5G","count":10}],
		"bandDistribution_pie":[{"band":"n78","count":4}],
		"handsetWiseAvg_bar":[{"Make":"Samsung","Avg":-88.5}],
		"avgRsrpSinrPerOperator_bar":[{"Operator":"Vi India","AvgRSRP":-95,"sampleCount":10}]
	}}`)

	d, err := Normalize(stats, graphs)
	require.NoError(t, err)

	assert.EqualValues(t, 12, d.TotalUsers)
	assert.EqualValues(t, 40, d.TotalSessions)
	assert.EqualValues(t, 3, d.TotalOnlineSessions)
	assert.EqualValues(t, 9000, d.TotalSamples)
	assert.Equal(t, 2, d.TotalOperators)
	assert.Equal(t, 2, d.TotalTechnologies)
	assert.Equal(t, 1, d.TotalBands)
	assert.Equal(t, []Point{{Name: "Feb", Value: 7}, {Name: "Mar", Value: 8}}, d.MonthlySampleCounts)
	assert.Equal(t, []Point{{Name: "JIO 5G", Value: 10}, {Name: "Airtel", Value: 20}}, d.OperatorWiseSamples)
	assert.Equal(t, []Point{{Name: "Vi (Vodafone Idea)", Value: -95}}, d.AvgRSRPPerOperator)
	assert.Equal(t, []Point{{Name: "Samsung", Value: -88.5}}, d.HandsetDistribution)
}

func TestNormalizePrefersTotalSamples(t *testing.T) {
	d, err := Normalize([]byte(`{"totalSamples":5,"totalLogPoints":9}`), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, d.TotalSamples)
	assert.Empty(t, d.OperatorWiseSamples)
}

func TestNormalizeRejectsStringPayload(t *testing.T) {
	_, err := Normalize([]byte(`"Session expired"`), nil)
	assert.ErrorIs(t, err, ErrStringPayload)

	_, err = Normalize([]byte(`{}`), []byte(`{"Data":"oops"}`))
	assert.ErrorIs(t, err, ErrStringPayload)

	_, err = Normalize([]byte(`{broken`), nil)
	assert.Error(t, err)
}

func TestRankingSortsAndMerges(t *testing.T) {
	body := []byte(`{"Data":[
		{"operator":"Airtel","value":70,"samples":100},
		{"operator":"JIO4G","value":80,"samples":100},
		{"operator":"JIO 4G","value":90,"samples":300},
		{"operator":"//////","value":10}
	]}`)

	got, err := Ranking(body)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, RankingEntry{Operator: "JIO 4G", Value: 87.5, Samples: 400}, got[0])
	assert.Equal(t, "Airtel", got[1].Operator)
	assert.Equal(t, UnknownOperator, got[2].Operator)
}

func TestRankingAcceptsWrappedRows(t *testing.T) {
	got, err := Ranking([]byte(`{"ranking":[{"name":"Airtel","percentage":"55.5"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []RankingEntry{{Operator: "Airtel", Value: 55.5}}, got)

	got, err = Ranking(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
