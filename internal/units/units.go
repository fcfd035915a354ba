// Package units provides shared constants and conversions for acceleration units
package units

// Unit constants
const (
	G   = "g"
	MG  = "mg"
	MS2 = "ms2"
)

// StandardGravity is the conversion factor from g to m/s².
const StandardGravity = 9.80665

// ValidUnits contains all valid unit values
var ValidUnits = []string{G, MG, MS2}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "g, mg, ms2"
}

// ConvertAcceleration converts an acceleration from g to the target units.
// The pipeline stores accelerations in g throughout.
func ConvertAcceleration(valueG float64, targetUnits string) float64 {
	switch targetUnits {
	case MG:
		return valueG * 1000
	case MS2:
		return valueG * StandardGravity
	case G:
		return valueG
	default:
		return valueG // default to g if unknown unit
	}
}
