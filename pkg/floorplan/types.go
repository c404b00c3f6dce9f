// Package floorplan derives a single-storey building layout (walls, rooms,
// doors and windows) from room-count and area requirements.
//
// Generation is pure and deterministic: the same Requirements always yield the
// same GeneratedModel, and no I/O is performed.
package floorplan

import (
	"encoding/json"
	"math"
)

// Element type identifiers understood by the Revit plugin.
const (
	WallTypeExterior = 1
	WallTypeInterior = 2

	OpeningTypeDoor   = 3
	OpeningTypeWindow = 4
)

// Level defaults. Every generated model has exactly one level.
const (
	DefaultLevelID   = 1
	DefaultLevelName = "Level 1"

	// DefaultCeilingHeight is used as wall height when no ceiling height is requested (metres).
	DefaultCeilingHeight = 2.8
)

// Point2D is a plan coordinate in metres, origin at the envelope's lower-left corner.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Level is a horizontal datum that walls are placed on.
type Level struct {
	ID        int     `json:"id"`
	Elevation float64 `json:"elevation"`
	Name      string  `json:"name"`
}

// Wall is a straight wall segment. ID is assigned when the wall is created
// and is what openings refer to.
type Wall struct {
	ID      int     `json:"id"`
	Start   Point2D `json:"start"`
	End     Point2D `json:"end"`
	TypeID  int     `json:"type_id"`
	LevelID int     `json:"level_id"`
	Height  float64 `json:"height"`
}

// Room is a named region bounded by an implicitly closed polygon.
type Room struct {
	Name     string    `json:"name"`
	Boundary []Point2D `json:"boundary"`
}

// Area returns the polygon area (shoelace formula).
func (r Room) Area() float64 {
	n := len(r.Boundary)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		p, q := r.Boundary[i], r.Boundary[(i+1)%n]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

// Bounds returns the axis-aligned bounding box of the room boundary.
func (r Room) Bounds() (lo, hi Point2D) {
	if len(r.Boundary) == 0 {
		return Point2D{}, Point2D{}
	}
	lo, hi = r.Boundary[0], r.Boundary[0]
	for _, p := range r.Boundary[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// Opening is a door or window hosted by a wall.
type Opening struct {
	TypeID   int     `json:"type_id"`
	Location Point2D `json:"location"`
	HostID   int     `json:"host_id"`
}

// GeneratedModel is the complete output of Generate.
type GeneratedModel struct {
	Levels   []Level   `json:"levels"`
	Walls    []Wall    `json:"walls"`
	Rooms    []Room    `json:"rooms"`
	Openings []Opening `json:"openings"`
}

// WallByID returns the wall with the given id.
func (m *GeneratedModel) WallByID(id int) (Wall, bool) {
	for _, w := range m.Walls {
		if w.ID == id {
			return w, true
		}
	}
	return Wall{}, false
}

// Envelope returns the extent of the exterior walls.
func (m *GeneratedModel) Envelope() (lo, hi Point2D, ok bool) {
	first := true
	for _, w := range m.Walls {
		if w.TypeID != WallTypeExterior {
			continue
		}
		for _, p := range []Point2D{w.Start, w.End} {
			if first {
				lo, hi, first = p, p, false
				continue
			}
			lo.X = math.Min(lo.X, p.X)
			lo.Y = math.Min(lo.Y, p.Y)
			hi.X = math.Max(hi.X, p.X)
			hi.Y = math.Max(hi.Y, p.Y)
		}
	}
	return lo, hi, !first
}

// RoomRange is an area constraint for one room type, as extracted from a
// natural-language description.
type RoomRange struct {
	Type    string  `json:"type"`
	Count   int     `json:"count"`
	MinArea float64 `json:"min_area,omitempty"`
	MaxArea float64 `json:"max_area,omitempty"`
}

// Constraints are optional limits carried alongside the requirements. They do
// not change the layout; they are checked by Diagnose.
type Constraints struct {
	MinRoomArea   float64 `json:"min_room_area,omitempty"`
	MaxRoomArea   float64 `json:"max_room_area,omitempty"`
	CeilingHeight float64 `json:"ceiling_height,omitempty"`
}

// Requirements drive layout generation. TotalArea is in square metres.
type Requirements struct {
	TotalArea              float64      `json:"total_area"`
	Bedrooms               int          `json:"bedrooms"`
	Bathrooms              int          `json:"bathrooms"`
	Style                  string       `json:"style,omitempty"`
	AdditionalRequirements string       `json:"additional_requirements,omitempty"`
	Rooms                  []RoomRange  `json:"rooms,omitempty"`
	Constraints            *Constraints `json:"constraints,omitempty"`
}

// UnmarshalJSON accepts "area" as an alias of "total_area".
func (r *Requirements) UnmarshalJSON(data []byte) error {
	type plain Requirements
	aux := struct {
		*plain
		Area *float64 `json:"area"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Area != nil && r.TotalArea == 0 {
		r.TotalArea = *aux.Area
	}
	return nil
}

// WallHeight returns the requested ceiling height or DefaultCeilingHeight.
func (r Requirements) WallHeight() float64 {
	if r.Constraints != nil && r.Constraints.CeilingHeight > 0 {
		return r.Constraints.CeilingHeight
	}
	return DefaultCeilingHeight
}

// RoomRangeFor returns the range declared for a room type, if any.
func (r Requirements) RoomRangeFor(roomType string) (RoomRange, bool) {
	for _, rr := range r.Rooms {
		if rr.Type == roomType {
			return rr, true
		}
	}
	return RoomRange{}, false
}
