package models

// NetworkLog is one geotagged measurement.
type NetworkLog struct {
	ID         int64  `json:"id,omitempty"`
	SessionID  int64  `json:"session_id"`
	Lat        Number `json:"lat"`
	Lon        Number `json:"lon"`
	RSRP       Number `json:"rsrp"`
	RSRQ       Number `json:"rsrq"`
	SINR       Number `json:"sinr"`
	DLTpt      Number `json:"dl_tpt"`
	ULTpt      Number `json:"ul_tpt"`
	MOS        Number `json:"mos"`
	BLER       Number `json:"bler"`
	Band       string `json:"band"`
	Technology string `json:"technology"`
	Operator   string `json:"m_alpha_long"`
	Timestamp  string `json:"timestamp"`
}

// Field returns the metric value stored under a log field name.
func (l NetworkLog) Field(name string) Number {
	switch name {
	case "rsrp":
		return l.RSRP
	case "rsrq":
		return l.RSRQ
	case "sinr":
		return l.SINR
	case "dl_tpt":
		return l.DLTpt
	case "ul_tpt":
		return l.ULTpt
	case "mos":
		return l.MOS
	case "bler":
		return l.BLER
	default:
		return Number{}
	}
}

// LogFilter narrows bulk log queries. Empty or "ALL" fields are not sent.
type LogFilter struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Provider   string `json:"provider"`
	Technology string `json:"technology"`
	Band       string `json:"band"`
}

// Params renders the filter as backend query parameters.
func (f LogFilter) Params() map[string]string {
	params := map[string]string{}
	if f.StartDate != "" {
		params["StartDate"] = f.StartDate
	}
	if f.EndDate != "" {
		params["EndDate"] = f.EndDate
	}
	set := func(key, v string) {
		if v != "" && v != "ALL" {
			params[key] = v
		}
	}
	set("Provider", f.Provider)
	set("Technology", f.Technology)
	set("Band", f.Band)
	return params
}
