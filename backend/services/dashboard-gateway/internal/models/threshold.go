package models

// Bucket is one row of a threshold table.
type Bucket struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Color string  `json:"color"`
	Range string  `json:"range,omitempty"`
	Level string  `json:"level,omitempty"`
}

// Label is the display label of the bucket.
func (b Bucket) Label() string {
	if b.Range != "" {
		return b.Range
	}
	return b.Level
}

// Thresholds maps threshold keys (rsrp, dl_thpt, ...) to bucket tables.
type Thresholds map[string][]Bucket

// ThresholdSettings is the settings record with its backend id.
type ThresholdSettings struct {
	ID     int64      `json:"id"`
	Tables Thresholds `json:"thresholds"`
}
