package floorplan

import (
	"fmt"
	"math"
)

// Layout heuristics.
const (
	envelopeAspect = 1.2 // envelope length = sqrt(area) * envelopeAspect

	bedroomShare  = 0.3
	bathroomShare = 0.2 // the remainder is living area

	roomWidthFactor = 0.8 // room width = sqrt(room area) * roomWidthFactor

	bedroomStartFactor  = 0.2 // first bedroom starts at L * bedroomStartFactor
	bedroomGap          = 2.0 // metres between consecutive bedrooms
	bathroomStartFactor = 0.8 // bathroom starts at L * bathroomStartFactor

	windowCount = 3
)

// EnvelopeSize returns the rectangular envelope for a total floor area.
func EnvelopeSize(totalArea float64) (length, width float64) {
	length = math.Sqrt(totalArea) * envelopeAspect
	width = totalArea / length
	return length, width
}

// RoomSize returns the width (y extent) and length (x extent) of a room of the given area.
func RoomSize(area float64) (width, length float64) {
	width = math.Sqrt(area) * roomWidthFactor
	length = area / width
	return width, length
}

// builder accumulates elements and hands out wall ids in creation order.
type builder struct {
	height float64
	nextID int
	model  GeneratedModel
}

func newBuilder(height float64) *builder {
	return &builder{
		height: height,
		nextID: 1,
		model: GeneratedModel{
			Levels:   []Level{{ID: DefaultLevelID, Elevation: 0, Name: DefaultLevelName}},
			Walls:    []Wall{},
			Rooms:    []Room{},
			Openings: []Opening{},
		},
	}
}

func (b *builder) wall(start, end Point2D, typeID int) int {
	id := b.nextID
	b.nextID++
	b.model.Walls = append(b.model.Walls, Wall{
		ID:      id,
		Start:   start,
		End:     end,
		TypeID:  typeID,
		LevelID: DefaultLevelID,
		Height:  b.height,
	})
	return id
}

func (b *builder) room(name string, x, y, length, width float64) {
	b.model.Rooms = append(b.model.Rooms, Room{
		Name: name,
		Boundary: []Point2D{
			{X: x, Y: y},
			{X: x + length, Y: y},
			{X: x + length, Y: y + width},
			{X: x, Y: y + width},
		},
	})
}

func (b *builder) opening(typeID int, at Point2D, hostID int) {
	b.model.Openings = append(b.model.Openings, Opening{TypeID: typeID, Location: at, HostID: hostID})
}

// Generate builds the layout for req. It either returns a complete model or
// an error wrapping ErrInvalidRequirements or ErrDegenerateGeometry.
func Generate(req Requirements) (*GeneratedModel, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	length, width := EnvelopeSize(req.TotalArea)
	if err := checkDimension("envelope length", length); err != nil {
		return nil, err
	}
	if err := checkDimension("envelope width", width); err != nil {
		return nil, err
	}

	b := newBuilder(req.WallHeight())

	corners := []Point2D{{X: 0, Y: 0}, {X: length, Y: 0}, {X: length, Y: width}, {X: 0, Y: width}}
	frontWall := 0
	for i := range corners {
		id := b.wall(corners[i], corners[(i+1)%len(corners)], WallTypeExterior)
		if i == 0 {
			frontWall = id
		}
	}

	var doors []Opening
	if req.Bedrooms > 0 {
		area := req.TotalArea * bedroomShare / float64(req.Bedrooms)
		w, l := RoomSize(area)
		if err := checkDimension("bedroom width", w); err != nil {
			return nil, err
		}
		if err := checkDimension("bedroom length", l); err != nil {
			return nil, err
		}

		for i := 0; i < req.Bedrooms; i++ {
			x := length*bedroomStartFactor + float64(i)*(l+bedroomGap)
			left := b.wall(Point2D{X: x, Y: 0}, Point2D{X: x, Y: w}, WallTypeInterior)
			b.wall(Point2D{X: x, Y: w}, Point2D{X: x + l, Y: w}, WallTypeInterior)
			b.wall(Point2D{X: x + l, Y: w}, Point2D{X: x + l, Y: 0}, WallTypeInterior)
			b.room(fmt.Sprintf("Bedroom %d", i+1), x, 0, l, w)
			doors = append(doors, Opening{TypeID: OpeningTypeDoor, Location: Point2D{X: x + l/2, Y: 0}, HostID: left})
		}
	}

	if req.Bathrooms > 0 {
		area := req.TotalArea * bathroomShare / float64(req.Bathrooms)
		w, l := RoomSize(area)
		if err := checkDimension("bathroom width", w); err != nil {
			return nil, err
		}
		if err := checkDimension("bathroom length", l); err != nil {
			return nil, err
		}
		b.room("Bathroom", length*bathroomStartFactor, width-w, l, w)
	}

	for _, d := range doors {
		b.opening(d.TypeID, d.Location, d.HostID)
	}
	for i := 1; i <= windowCount; i++ {
		b.opening(OpeningTypeWindow, Point2D{X: length * float64(i) / (windowCount + 1), Y: 0}, frontWall)
	}

	return &b.model, nil
}
