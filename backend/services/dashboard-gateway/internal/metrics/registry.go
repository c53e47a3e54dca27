// Package metrics resolves radio metrics to log fields, threshold tables and
// display colours.
package metrics

import "strings"

// Metric describes one colourable radio metric.
type Metric struct {
	Key          string `json:"key"`
	Field        string `json:"field"`
	ThresholdKey string `json:"threshold_key"`
	Label        string `json:"label"`
	Unit         string `json:"unit"`

	// LowerIsBetter marks metrics where small values mean good service.
	LowerIsBetter bool `json:"lower_is_better,omitempty"`
}

var (
	RSRP         = Metric{Key: "rsrp", Field: "rsrp", ThresholdKey: "rsrp", Label: "RSRP", Unit: "dBm"}
	RSRQ         = Metric{Key: "rsrq", Field: "rsrq", ThresholdKey: "rsrq", Label: "RSRQ", Unit: "dB"}
	SINR         = Metric{Key: "sinr", Field: "sinr", ThresholdKey: "sinr", Label: "SINR", Unit: "dB"}
	DLThroughput = Metric{Key: "dl-throughput", Field: "dl_tpt", ThresholdKey: "dl_thpt", Label: "DL Throughput", Unit: "Mbps"}
	ULThroughput = Metric{Key: "ul-throughput", Field: "ul_tpt", ThresholdKey: "ul_thpt", Label: "UL Throughput", Unit: "Mbps"}
	MOS          = Metric{Key: "mos", Field: "mos", ThresholdKey: "mos", Label: "MOS"}
	LTEBLER      = Metric{Key: "lte-bler", Field: "bler", ThresholdKey: "lte_bler", Label: "LTE BLER", Unit: "%", LowerIsBetter: true}
)

// All lists the metrics in display order.
var All = []Metric{RSRP, RSRQ, SINR, DLThroughput, ULThroughput, MOS, LTEBLER}

var byName = func() map[string]Metric {
	m := make(map[string]Metric, len(All)*3)
	for _, metric := range All {
		m[metric.Key] = metric
		m[metric.Field] = metric
		m[metric.ThresholdKey] = metric
	}
	return m
}()

// Resolve looks a metric up by key, threshold key or field name, ignoring
// case and treating '_' and '-' alike. Unknown names resolve to RSRP.
func Resolve(name string) Metric {
	if m, ok := Lookup(name); ok {
		return m
	}
	return RSRP
}

// Lookup is Resolve without the RSRP fallback.
func Lookup(name string) (Metric, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if m, ok := byName[key]; ok {
		return m, true
	}
	if m, ok := byName[strings.ReplaceAll(key, "_", "-")]; ok {
		return m, true
	}
	m, ok := byName[strings.ReplaceAll(key, "-", "_")]
	return m, ok
}
