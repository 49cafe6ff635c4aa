package datasetapi

import (
	"math"
	"strconv"
)

// NoData is the placeholder rendered for absent values.
const NoData = "No data"

// Unknown is the placeholder rendered for unresolvable references.
const Unknown = "Unknown"

// FormatNumber renders v without trailing zeros.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatAge renders an age range in years BP. The older bound is written
// first when both bounds are known.
func FormatAge(older, younger *float64) string {
	switch {
	case older != nil && younger != nil:
		return FormatNumber(*older) + " - " + FormatNumber(*younger) + " BP"
	case older != nil:
		return "> " + FormatNumber(*older) + " BP"
	case younger != nil:
		return "< " + FormatNumber(*younger) + " BP"
	default:
		return NoData
	}
}

// FormatAgeWithError renders a point age with its error margins.
func FormatAgeWithError(age, errOlder, errYounger *float64) string {
	if age == nil {
		return NoData
	}
	base := FormatNumber(*age)
	switch {
	case errOlder != nil && errYounger != nil && *errOlder == *errYounger:
		return base + " ± " + FormatNumber(*errOlder) + " BP"
	case errOlder != nil || errYounger != nil:
		plus, minus := "0", "0"
		if errOlder != nil {
			plus = FormatNumber(*errOlder)
		}
		if errYounger != nil {
			minus = FormatNumber(*errYounger)
		}
		return base + " +" + plus + "/-" + minus + " BP"
	default:
		return base + " BP"
	}
}

// FormatOptional renders a nullable number, or NoData.
func FormatOptional(v *float64) string {
	if v == nil {
		return NoData
	}
	return FormatNumber(*v)
}

// OrNoData returns s, or NoData when s is empty.
func OrNoData(s string) string {
	if s == "" {
		return NoData
	}
	return s
}
