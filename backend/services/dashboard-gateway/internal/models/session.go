package models

// Session is a drive-test session as stored by the backend.
type Session struct {
	ID               int64  `json:"id"`
	CreatedBy        string `json:"CreatedBy"`
	Mobile           string `json:"mobile"`
	Make             string `json:"make"`
	Model            string `json:"model"`
	OS               string `json:"os"`
	OperatorName     string `json:"operator_name"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	StartLat         Number `json:"start_lat"`
	StartLon         Number `json:"start_lon"`
	StartAddress     string `json:"start_address"`
	EndAddress       string `json:"end_address"`
	DistanceKm       Number `json:"distance_km"`
	CaptureFrequency string `json:"capture_frequency"`
	Notes            string `json:"notes"`
}

// SessionSummary is the table projection of a session with display fallbacks.
type SessionSummary struct {
	ID         int64  `json:"id"`
	User       string `json:"user"`
	Device     string `json:"device"`
	Operator   string `json:"operator"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Start      string `json:"start_address"`
	End        string `json:"end_address"`
	DistanceKm string `json:"distance_km"`
	Frequency  string `json:"capture_frequency"`
	Notes      string `json:"notes"`
}

const notAvailable = "N/A"

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Summary projects s into a display row.
func (s Session) Summary() SessionSummary {
	user := orDefault(s.CreatedBy, "Unknown User")
	user += " (" + orDefault(s.Mobile, notAvailable) + ")"

	device := ""
	for _, part := range []string{s.Make, s.Model, s.OS} {
		if part == "" {
			continue
		}
		if device != "" {
			device += ", "
		}
		device += part
	}

	return SessionSummary{
		ID:         s.ID,
		User:       user,
		Device:     orDefault(device, notAvailable),
		Operator:   orDefault(s.OperatorName, notAvailable),
		StartTime:  orDefault(s.StartTime, notAvailable),
		EndTime:    orDefault(s.EndTime, notAvailable),
		Start:      orDefault(s.StartAddress, notAvailable),
		End:        orDefault(s.EndAddress, notAvailable),
		DistanceKm: s.DistanceKm.String(),
		Frequency:  orDefault(s.CaptureFrequency, notAvailable),
		Notes:      orDefault(s.Notes, "No Remarks"),
	}
}
