package label

import "github.com/ayusman/intelevision/internal/detector"

// Movement guesses motion from where the box sits horizontally. Boxes near an
// edge are read as approaching from that side.
func Movement(box *detector.BoundingBox, t Tuning) Key {
	if box == nil {
		return Static
	}

	cx := box.CenterX()
	switch {
	case cx < t.ApproachLeft:
		return ApproachingLeft
	case cx > t.ApproachRight:
		return ApproachingRight
	default:
		return Static
	}
}

// Direction splits the frame into left, center and right thirds.
func Direction(box *detector.BoundingBox, t Tuning) Key {
	if box == nil {
		return Center
	}

	cx := box.CenterX()
	switch {
	case cx < t.DirectionLeft:
		return Left
	case cx > t.DirectionRight:
		return Right
	default:
		return Center
	}
}

// Speed buckets the box area; larger boxes read as slower.
func Speed(box *detector.BoundingBox, t Tuning) Key {
	if box == nil {
		return ZeroSpeed
	}
	return pick(box.Area(), t.Speed, t.SpeedFallback)
}

// ObjectDistance buckets the box area; larger boxes read as nearer.
func ObjectDistance(box *detector.BoundingBox, t Tuning) Key {
	if box == nil {
		return Unknown
	}
	return pick(box.Area(), t.ObjectDistance, t.ObjectDistanceFallback)
}
