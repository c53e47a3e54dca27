package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

func rsrpTable() models.Thresholds {
	return models.Thresholds{
		"rsrp": {
			{Min: -140, Max: -116, Color: "#FF0000", Range: "Poor"},
			{Min: -115, Max: -96, Color: "#FFA500", Range: "Fair"},
			{Min: -95, Max: -44, Color: "#00FF00", Range: "Good"},
		},
		"dl_thpt": {
			{Min: 0, Max: 10, Color: "#111111"},
			{Min: 10, Max: 1000, Color: "#222222"},
		},
	}
}

func TestResolve(t *testing.T) {
	cases := map[string]Metric{
		"RSRP":          RSRP,
		" sinr ":        SINR,
		"dl-throughput": DLThroughput,
		"dl_thpt":       DLThroughput,
		"dl_tpt":        DLThroughput,
		"UL-Throughput": ULThroughput,
		"lte_bler":      LTEBLER,
		"bler":          LTEBLER,
		"lte-bler":      LTEBLER,
		"":              RSRP,
		"volte_call":    RSRP,
	}
	for in, want := range cases {
		assert.Equal(t, want, Resolve(in), in)
	}

	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestColorFor(t *testing.T) {
	th := rsrpTable()

	assert.Equal(t, "#FF0000", ColorFor("rsrp", models.NewNumber(-120), th))
	assert.Equal(t, "#FFA500", ColorFor("rsrp", models.NewNumber(-115), th))
	assert.Equal(t, "#00FF00", ColorFor("RSRP", models.NewNumber(-44), th))
	assert.Equal(t, DefaultColor, ColorFor("rsrp", models.NewNumber(-115.5), th), "falls between buckets")
	assert.Equal(t, DefaultColor, ColorFor("rsrp", models.NewNumber(-20), th))
	assert.Equal(t, DefaultColor, ColorFor("rsrp", models.Number{}, th))
	assert.Equal(t, DefaultColor, ColorFor("sinr", models.NewNumber(10), th), "missing table")
	assert.Equal(t, DefaultColor, ColorFor("rsrp", models.NewNumber(-100), nil))

	// first matching bucket wins on shared endpoints
	assert.Equal(t, "#111111", ColorFor("dl-throughput", models.NewNumber(10), th))
}

func TestColorForIsTotalAndIdempotent(t *testing.T) {
	th := rsrpTable()
	values := []models.Number{
		models.NewNumber(math.NaN()),
		models.NewNumber(math.Inf(1)),
		{Value: math.NaN(), Valid: true},
		{Value: math.Inf(-1), Valid: true},
		models.ParseNumber("abc"),
		models.ParseNumber("-100"),
	}
	for _, v := range values {
		first := ColorFor("rsrp", v, th)
		require.NotEmpty(t, first)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, ColorFor("rsrp", v, th))
		}
	}
}

func TestClassifyAndWeight(t *testing.T) {
	buckets := rsrpTable()["rsrp"]
	assert.Equal(t, 0, Classify(-130, buckets))
	assert.Equal(t, 2, Classify(-60, buckets))
	assert.Equal(t, -1, Classify(0, buckets))
	assert.Equal(t, -1, Classify(math.NaN(), buckets))

	assert.InDelta(t, 1.0/3, Weight(0, buckets, false), 1e-9)
	assert.InDelta(t, 1.0, Weight(2, buckets, false), 1e-9)
	assert.InDelta(t, 1.0, Weight(0, buckets, true), 1e-9)
	assert.Zero(t, Weight(-1, buckets, false))
	assert.Zero(t, Weight(0, nil, false))
}

func TestWeightIgnoresTableOrder(t *testing.T) {
	bestFirst := []models.Bucket{
		{Min: -90, Max: -44, Color: "#00ff00"},
		{Min: -110, Max: -91, Color: "#ffff00"},
		{Min: -140, Max: -111, Color: "#ff0000"},
	}
	good := Weight(Classify(-60, bestFirst), bestFirst, false)
	poor := Weight(Classify(-130, bestFirst), bestFirst, false)
	assert.InDelta(t, 1.0, good, 1e-9)
	assert.InDelta(t, 1.0/3, poor, 1e-9)
	assert.Greater(t, good, poor)

	bler := []models.Bucket{{Min: 0, Max: 2}, {Min: 2.01, Max: 10}, {Min: 10.01, Max: 100}}
	assert.Greater(t, Weight(Classify(1, bler), bler, true), Weight(Classify(50, bler), bler, true))
}
