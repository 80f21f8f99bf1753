package service

import (
	"encoding/json"
	"strings"
)

// JurisdictionRule is the wage floor and overtime trigger for one country or US state.
type JurisdictionRule struct {
	Code                string  `json:"code"`
	Name                string  `json:"name"`
	Currency            string  `json:"currency"`
	MinimumHourlyWage   float64 `json:"minimumHourlyWage"`
	OvertimeWeeklyHours float64 `json:"overtimeWeeklyHours"`
	OvertimeDailyHours  float64 `json:"overtimeDailyHours,omitempty"`
	OvertimeMultiplier  float64 `json:"overtimeMultiplier"`
}

// RuleTable maps countries and US states to their rules.
type RuleTable struct {
	Federal   JurisdictionRule            `json:"federal"`
	States    map[string]JurisdictionRule `json:"states"`
	Countries map[string]JurisdictionRule `json:"countries"`
}

func usState(code, name string, wage float64) JurisdictionRule {
	return JurisdictionRule{
		Code:                code,
		Name:                name,
		Currency:            "USD",
		MinimumHourlyWage:   wage,
		OvertimeWeeklyHours: 40,
		OvertimeMultiplier:  1.5,
	}
}

func country(code, name, currency string, wage, weekly float64) JurisdictionRule {
	return JurisdictionRule{
		Code:                code,
		Name:                name,
		Currency:            currency,
		MinimumHourlyWage:   wage,
		OvertimeWeeklyHours: weekly,
		OvertimeMultiplier:  1.5,
	}
}

// DefaultRuleTable returns the built-in 2024 reference figures.
func DefaultRuleTable() *RuleTable {
	ca := usState("CA", "California", 16.00)
	ca.OvertimeDailyHours = 8

	return &RuleTable{
		Federal: usState("US", "United States (federal FLSA)", 7.25),
		States: map[string]JurisdictionRule{
			"AZ": usState("AZ", "Arizona", 14.35),
			"CA": ca,
			"CO": usState("CO", "Colorado", 14.42),
			"DC": usState("DC", "District of Columbia", 17.50),
			"FL": usState("FL", "Florida", 12.00),
			"GA": usState("GA", "Georgia", 7.25),
			"IL": usState("IL", "Illinois", 14.00),
			"MA": usState("MA", "Massachusetts", 15.00),
			"NJ": usState("NJ", "New Jersey", 15.13),
			"NY": usState("NY", "New York", 15.00),
			"OR": usState("OR", "Oregon", 14.20),
			"PA": usState("PA", "Pennsylvania", 7.25),
			"TX": usState("TX", "Texas", 7.25),
			"VA": usState("VA", "Virginia", 12.00),
			"WA": usState("WA", "Washington", 16.28),
		},
		Countries: map[string]JurisdictionRule{
			"AU": country("AU", "Australia", "AUD", 24.10, 38),
			"BR": country("BR", "Brazil", "BRL", 6.90, 44),
			"CA": country("CA", "Canada", "CAD", 17.30, 40),
			"DE": country("DE", "Germany", "EUR", 12.82, 48),
			"ES": country("ES", "Spain", "EUR", 8.87, 40),
			"FR": country("FR", "France", "EUR", 11.88, 35),
			"GB": country("GB", "United Kingdom", "GBP", 12.21, 48),
			"IE": country("IE", "Ireland", "EUR", 13.50, 48),
			"JP": country("JP", "Japan", "JPY", 1055, 40),
			"MX": country("MX", "Mexico", "MXN", 34.90, 48),
			"NL": country("NL", "Netherlands", "EUR", 14.06, 48),
			"NZ": country("NZ", "New Zealand", "NZD", 23.50, 40),
			"PL": country("PL", "Poland", "PLN", 30.50, 40),
			"PT": country("PT", "Portugal", "EUR", 5.20, 40),
		},
	}
}

var countryAliases = map[string]string{
	"USA":                      "US",
	"UNITED STATES":            "US",
	"UNITED STATES OF AMERICA": "US",
	"UK":                       "GB",
	"UNITED KINGDOM":           "GB",
	"GREAT BRITAIN":            "GB",
	"ENGLAND":                  "GB",
	"GERMANY":                  "DE",
	"FRANCE":                   "FR",
	"NETHERLANDS":              "NL",
	"SPAIN":                    "ES",
	"CANADA":                   "CA",
	"AUSTRALIA":                "AU",
	"IRELAND":                  "IE",
	"MEXICO":                   "MX",
	"BRAZIL":                   "BR",
	"POLAND":                   "PL",
	"PORTUGAL":                 "PT",
	"JAPAN":                    "JP",
	"NEW ZEALAND":              "NZ",
}

var stateAliases = map[string]string{
	"ARIZONA":              "AZ",
	"CALIFORNIA":           "CA",
	"COLORADO":             "CO",
	"DISTRICT OF COLUMBIA": "DC",
	"WASHINGTON DC":        "DC",
	"FLORIDA":              "FL",
	"GEORGIA":              "GA",
	"ILLINOIS":             "IL",
	"MASSACHUSETTS":        "MA",
	"NEW JERSEY":           "NJ",
	"NEW YORK":             "NY",
	"OREGON":               "OR",
	"PENNSYLVANIA":         "PA",
	"TEXAS":                "TX",
	"VIRGINIA":             "VA",
	"WASHINGTON":           "WA",
}

// NormalizeCountry maps a country name or code to its ISO alpha-2 code.
func NormalizeCountry(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	if code, ok := countryAliases[v]; ok {
		return code
	}
	return v
}

// NormalizeState maps a US state name or code to its postal code.
func NormalizeState(value string) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	v = strings.TrimPrefix(v, "US-")
	if code, ok := stateAliases[v]; ok {
		return code
	}
	return v
}

// Lookup resolves the rule for a worker location: state level for the US with
// the federal rule as fallback, country level everywhere else.
func (t *RuleTable) Lookup(countryValue, stateValue string) (JurisdictionRule, bool) {
	code := NormalizeCountry(countryValue)
	if code == "US" {
		if rule, ok := t.States[NormalizeState(stateValue)]; ok {
			return rule, true
		}
		return t.Federal, true
	}
	rule, ok := t.Countries[code]
	return rule, ok
}

// Jurisdiction renders the human-readable jurisdiction label for a location.
func Jurisdiction(countryValue, stateValue string) string {
	code := NormalizeCountry(countryValue)
	state := NormalizeState(stateValue)
	if code == "US" && state != "" {
		return "US-" + state
	}
	return code
}

// JSON is the table as embedded in prompts. Map keys are emitted sorted, so
// the output is stable across calls.
func (t *RuleTable) JSON() string {
	data, err := json.Marshal(t)
	if err != nil {
		return "{}"
	}
	return string(data)
}
