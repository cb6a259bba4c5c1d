package models

import "fmt"

// ThresholdBasis selects which distance a maintenance interval is measured against.
type ThresholdBasis string

const (
	// BasisCumulative makes maintenance due each time the odometer passes a
	// multiple of the interval.
	BasisCumulative ThresholdBasis = "cumulative"
	// BasisSinceService makes maintenance due once the distance since the
	// last completed cycle reaches the interval.
	BasisSinceService ThresholdBasis = "since_service"
)

func ParseThresholdBasis(s string) (ThresholdBasis, error) {
	switch ThresholdBasis(s) {
	case BasisCumulative, BasisSinceService:
		return ThresholdBasis(s), nil
	}
	return "", fmt.Errorf("unknown maintenance basis %q", s)
}

// MaintenancePolicy decides when trip completion should open a maintenance
// cycle. An Interval of zero or less disables escalation.
type MaintenancePolicy struct {
	Interval int
	Basis    ThresholdBasis
}

// Due reports whether moving a vehicle's odometer from before to after makes
// maintenance due.
func (p MaintenancePolicy) Due(before, after, lastService int) bool {
	if p.Interval <= 0 || after <= before {
		return false
	}
	switch p.Basis {
	case BasisSinceService:
		return after-lastService >= p.Interval
	default:
		return after/p.Interval > before/p.Interval
	}
}
