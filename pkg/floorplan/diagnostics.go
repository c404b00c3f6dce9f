package floorplan

import (
	"fmt"
	"strings"
)

// Warning codes reported by Diagnose.
const (
	WarnRoomOverlap     = "room_overlap"
	WarnOutsideEnvelope = "room_outside_envelope"
	WarnRoomTooSmall    = "room_below_min_area"
	WarnRoomTooLarge    = "room_above_max_area"
	WarnDanglingOpening = "opening_without_host"
)

const epsilon = 1e-9

// Warning describes a layout property that is allowed but probably unwanted.
type Warning struct {
	Code    string `json:"code"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message"`
}

// Diagnose inspects a model generated for req. Area bounds come from
// req.Constraints for every room and from req.Rooms per room type. The
// generator never moves rooms to satisfy these checks; callers surface the
// warnings instead.
func Diagnose(m *GeneratedModel, req Requirements) []Warning {
	var warnings []Warning
	if m == nil {
		return warnings
	}

	if lo, hi, ok := m.Envelope(); ok {
		for _, r := range m.Rooms {
			rlo, rhi := r.Bounds()
			if rlo.X < lo.X-epsilon || rlo.Y < lo.Y-epsilon || rhi.X > hi.X+epsilon || rhi.Y > hi.Y+epsilon {
				warnings = append(warnings, Warning{
					Code:    WarnOutsideEnvelope,
					Room:    r.Name,
					Message: fmt.Sprintf("%s extends beyond the %.2f x %.2f envelope", r.Name, hi.X-lo.X, hi.Y-lo.Y),
				})
			}
		}
	}

	for i := 0; i < len(m.Rooms); i++ {
		for j := i + 1; j < len(m.Rooms); j++ {
			if overlaps(m.Rooms[i], m.Rooms[j]) {
				warnings = append(warnings, Warning{
					Code:    WarnRoomOverlap,
					Room:    m.Rooms[i].Name,
					Message: fmt.Sprintf("%s overlaps %s", m.Rooms[i].Name, m.Rooms[j].Name),
				})
			}
		}
	}

	c := req.Constraints
	for _, r := range m.Rooms {
		area := r.Area()
		if c != nil {
			warnings = appendAreaWarnings(warnings, r.Name, area, c.MinRoomArea, c.MaxRoomArea, "")
		}
		if rr, ok := req.RoomRangeFor(RoomType(r.Name)); ok {
			warnings = appendAreaWarnings(warnings, r.Name, area, rr.MinArea, rr.MaxArea, rr.Type+" ")
		}
	}

	for _, o := range m.Openings {
		if _, ok := m.WallByID(o.HostID); !ok {
			warnings = append(warnings, Warning{
				Code:    WarnDanglingOpening,
				Message: fmt.Sprintf("opening at (%.2f, %.2f) references missing wall %d", o.Location.X, o.Location.Y, o.HostID),
			})
		}
	}

	return warnings
}

// RoomType maps a generated room name to its requirement type:
// "Bedroom 2" is a bedroom, "Bathroom" a bathroom.
func RoomType(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// appendAreaWarnings checks area against bounds; zero bounds are unset.
func appendAreaWarnings(warnings []Warning, room string, area, lo, hi float64, label string) []Warning {
	if lo > 0 && area < lo-epsilon {
		warnings = append(warnings, Warning{
			Code:    WarnRoomTooSmall,
			Room:    room,
			Message: fmt.Sprintf("%s is %.2f m², below the %.2f m² %sminimum", room, area, lo, label),
		})
	}
	if hi > 0 && area > hi+epsilon {
		warnings = append(warnings, Warning{
			Code:    WarnRoomTooLarge,
			Room:    room,
			Message: fmt.Sprintf("%s is %.2f m², above the %.2f m² %smaximum", room, area, hi, label),
		})
	}
	return warnings
}

func overlaps(a, b Room) bool {
	alo, ahi := a.Bounds()
	blo, bhi := b.Bounds()
	return alo.X < bhi.X-epsilon && blo.X < ahi.X-epsilon &&
		alo.Y < bhi.Y-epsilon && blo.Y < ahi.Y-epsilon
}
