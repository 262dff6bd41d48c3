package label

import (
	"math"

	"github.com/ayusman/intelevision/internal/detector"
)

// Position compares the nose with the shoulder midpoint.
func Position(pose detector.Pose, t Tuning) Key {
	if !pose.Has(detector.Nose, detector.LeftShoulder, detector.RightShoulder) {
		return Unknown
	}

	lm := pose.Landmarks
	center := (lm[detector.LeftShoulder].X + lm[detector.RightShoulder].X) / 2
	nose := lm[detector.Nose].X

	switch {
	case nose < center-t.PositionOffset:
		return Left
	case nose > center+t.PositionOffset:
		return Right
	default:
		return Front
	}
}

// PersonDistance buckets the on-screen shoulder width. It is a screen-size
// approximation: wider shoulders map to a nearer label, nothing more.
func PersonDistance(pose detector.Pose, t Tuning) Key {
	if !pose.Has(detector.LeftShoulder, detector.RightShoulder) {
		return Unknown
	}

	lm := pose.Landmarks
	width := math.Abs(lm[detector.LeftShoulder].X - lm[detector.RightShoulder].X)
	return pick(width, t.PersonDistance, t.PersonDistanceFallback)
}

// Gesture classifies arm placement. Rules are checked in order and the first
// match wins:
//
//  1. both wrists above their shoulders           -> hands_up
//  2. one wrist above its shoulder                -> hand_raised
//  3. a wrist level with and away from its shoulder -> arm_extended
//  4. both wrists well below their shoulders      -> arms_down
//  5. anything else                               -> position_detected
func Gesture(pose detector.Pose, t Tuning) Key {
	if len(pose.Landmarks) < detector.MinPoseLandmarks {
		return None
	}

	lm := pose.Landmarks
	lw, rw := lm[detector.LeftWrist], lm[detector.RightWrist]
	ls, rs := lm[detector.LeftShoulder], lm[detector.RightShoulder]

	leftUp := lw.Y < ls.Y-t.RaiseMargin
	rightUp := rw.Y < rs.Y-t.RaiseMargin
	if leftUp && rightUp {
		return HandsUp
	}
	if leftUp || rightUp {
		return HandRaised
	}

	extended := func(w, s detector.Landmark) bool {
		return math.Abs(w.Y-s.Y) < t.LevelTolerance && math.Abs(w.X-s.X) > t.ExtendReach
	}
	if extended(lw, ls) || extended(rw, rs) {
		return ArmExtended
	}

	if lw.Y > ls.Y+t.DownMargin && rw.Y > rs.Y+t.DownMargin {
		return ArmsDown
	}

	return PositionDetected
}

// confidenceKeypoints are the landmarks that decide pose confidence.
var confidenceKeypoints = []int{
	detector.Nose,
	detector.LeftShoulder,
	detector.RightShoulder,
	detector.LeftWrist,
	detector.RightWrist,
}

// PoseConfidence is the visible share of the key landmarks, scaled below 1 so
// a heuristic never reports full certainty. A landmark without a visibility
// score counts as visible; an absent landmark does not.
func PoseConfidence(pose detector.Pose, t Tuning) float64 {
	if len(pose.Landmarks) == 0 {
		return 0
	}

	visible := 0
	for _, i := range confidenceKeypoints {
		lm, ok := pose.At(i)
		if !ok {
			continue
		}
		if lm.Visibility == nil || *lm.Visibility > t.VisibilityFloor {
			visible++
		}
	}

	return float64(visible) / float64(len(confidenceKeypoints)) * t.ConfidenceScale
}
