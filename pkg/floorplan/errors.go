package floorplan

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRequirements is returned when the input cannot describe a building.
	ErrInvalidRequirements = errors.New("invalid requirements")

	// ErrDegenerateGeometry is returned when a derived dimension is zero, negative or not finite.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// Validate checks the requirements without generating anything.
func (r Requirements) Validate() error {
	if math.IsNaN(r.TotalArea) || math.IsInf(r.TotalArea, 0) || r.TotalArea <= 0 {
		return fmt.Errorf("%w: total_area must be a positive number, got %v", ErrInvalidRequirements, r.TotalArea)
	}
	if r.Bedrooms < 0 {
		return fmt.Errorf("%w: bedrooms must not be negative, got %d", ErrInvalidRequirements, r.Bedrooms)
	}
	if r.Bathrooms < 0 {
		return fmt.Errorf("%w: bathrooms must not be negative, got %d", ErrInvalidRequirements, r.Bathrooms)
	}

	if c := r.Constraints; c != nil {
		if err := checkRange("room area", c.MinRoomArea, c.MaxRoomArea); err != nil {
			return err
		}
		if math.IsNaN(c.CeilingHeight) || math.IsInf(c.CeilingHeight, 0) || c.CeilingHeight < 0 {
			return fmt.Errorf("%w: ceiling_height must be a positive number, got %v", ErrInvalidRequirements, c.CeilingHeight)
		}
	}

	for _, rr := range r.Rooms {
		if rr.Count < 0 {
			return fmt.Errorf("%w: %s count must not be negative", ErrInvalidRequirements, rr.Type)
		}
		if err := checkRange(rr.Type+" area", rr.MinArea, rr.MaxArea); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(name string, lo, hi float64) error {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo < 0 || hi < 0 {
		return fmt.Errorf("%w: %s bounds must not be negative", ErrInvalidRequirements, name)
	}
	if hi > 0 && lo > hi {
		return fmt.Errorf("%w: %s minimum %.2f exceeds maximum %.2f", ErrInvalidRequirements, name, lo, hi)
	}
	return nil
}

func checkDimension(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s is %v", ErrDegenerateGeometry, name, v)
	}
	return nil
}
