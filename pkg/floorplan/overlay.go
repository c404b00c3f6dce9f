package floorplan

import "encoding/json"

// Overlay holds explicitly supplied requirement fields. Nil fields leave the
// base value untouched when applied.
type Overlay struct {
	TotalArea              *float64     `json:"total_area,omitempty"`
	Bedrooms               *int         `json:"bedrooms,omitempty"`
	Bathrooms              *int         `json:"bathrooms,omitempty"`
	Style                  *string      `json:"style,omitempty"`
	AdditionalRequirements *string      `json:"additional_requirements,omitempty"`
	Constraints            *Constraints `json:"constraints,omitempty"`
}

// UnmarshalJSON accepts "area" as an alias of "total_area".
func (o *Overlay) UnmarshalJSON(data []byte) error {
	type plain Overlay
	aux := struct {
		*plain
		Area *float64 `json:"area"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if o.TotalArea == nil && aux.Area != nil {
		o.TotalArea = aux.Area
	}
	return nil
}

// IsEmpty reports whether the overlay sets nothing.
func (o *Overlay) IsEmpty() bool {
	return o == nil || (o.TotalArea == nil && o.Bedrooms == nil && o.Bathrooms == nil &&
		o.Style == nil && o.AdditionalRequirements == nil && o.Constraints == nil)
}

// Complete reports whether the overlay alone is enough to generate a layout.
func (o *Overlay) Complete() bool {
	return o != nil && o.TotalArea != nil && o.Bedrooms != nil && o.Bathrooms != nil
}

// Apply returns base with every set field of o replacing the base value.
func (o *Overlay) Apply(base Requirements) Requirements {
	if o == nil {
		return base
	}
	if o.TotalArea != nil {
		base.TotalArea = *o.TotalArea
	}
	if o.Bedrooms != nil {
		base.Bedrooms = *o.Bedrooms
	}
	if o.Bathrooms != nil {
		base.Bathrooms = *o.Bathrooms
	}
	if o.Style != nil {
		base.Style = *o.Style
	}
	if o.AdditionalRequirements != nil {
		base.AdditionalRequirements = *o.AdditionalRequirements
	}
	if o.Constraints != nil {
		merged := Constraints{}
		if base.Constraints != nil {
			merged = *base.Constraints
		}
		if o.Constraints.MinRoomArea > 0 {
			merged.MinRoomArea = o.Constraints.MinRoomArea
		}
		if o.Constraints.MaxRoomArea > 0 {
			merged.MaxRoomArea = o.Constraints.MaxRoomArea
		}
		if o.Constraints.CeilingHeight > 0 {
			merged.CeilingHeight = o.Constraints.CeilingHeight
		}
		base.Constraints = &merged
	}
	return base
}
