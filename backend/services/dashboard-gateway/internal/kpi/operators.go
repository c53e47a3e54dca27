// Package kpi turns the backend's dashboard payloads into chart-ready series.
package kpi

import "strings"

// UnknownOperator replaces placeholder operator names.
const UnknownOperator = "Unknown"

var operatorAliases = map[string]string{
	"jio true5g":         "JIO 5G",
	"jio 5g":             "JIO 5G",
	"jio 4g":             "JIO 4G",
	"jio4g":              "JIO 4G",
	"airtel":             "Airtel",
	"vodafone in":        "Vi (Vodafone Idea)",
	"vi india":           "Vi (Vodafone Idea)",
	"vi (vodafone idea)": "Vi (Vodafone Idea)",
}

var placeholderOperators = map[string]bool{
	"":       true,
	"//////": true,
	"404011": true,
	"null":   true,
}

// CanonicalOperator maps operator spellings onto one display name.
// Placeholders become "Unknown"; names without an alias are trimmed only.
func CanonicalOperator(name string) string {
	trimmed := strings.TrimSpace(name)
	key := strings.ToLower(strings.Join(strings.Fields(trimmed), " "))
	if placeholderOperators[key] || strings.EqualFold(key, UnknownOperator) {
		return UnknownOperator
	}
	if canonical, ok := operatorAliases[key]; ok {
		return canonical
	}
	return trimmed
}
