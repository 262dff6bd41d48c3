package label

import (
	"errors"
	"fmt"
)

// Bucket maps any measurement strictly greater than Min to Label.
type Bucket struct {
	Min   float64 `json:"min"`
	Label Key     `json:"label"`
}

// EmotionRule assigns a blendshape to Emotion when its lower-cased name
// contains any of Patterns.
type EmotionRule struct {
	Emotion  Key      `json:"emotion"`
	Patterns []string `json:"patterns"`
}

// Tuning holds every threshold the translator uses. Buckets are ordered from
// the largest Min down; a value that clears none of them gets the matching
// fallback label.
type Tuning struct {
	// Person position: nose offset from the shoulder midpoint.
	PositionOffset float64 `json:"position_offset"`

	// Person distance from shoulder width on screen.
	PersonDistance         []Bucket `json:"person_distance"`
	PersonDistanceFallback Key      `json:"person_distance_fallback"`

	// Expression scoring.
	ExpressionFloor float64       `json:"expression_floor"`
	Emotions        []EmotionRule `json:"emotions"`

	// Gesture cascade.
	RaiseMargin    float64 `json:"raise_margin"`
	LevelTolerance float64 `json:"level_tolerance"`
	ExtendReach    float64 `json:"extend_reach"`
	DownMargin     float64 `json:"down_margin"`

	// Pose confidence.
	VisibilityFloor float64 `json:"visibility_floor"`
	ConfidenceScale float64 `json:"confidence_scale"`

	// Objects.
	ObjectConfidenceFloor  float64  `json:"object_confidence_floor"`
	ApproachLeft           float64  `json:"approach_left"`
	ApproachRight          float64  `json:"approach_right"`
	DirectionLeft          float64  `json:"direction_left"`
	DirectionRight         float64  `json:"direction_right"`
	Speed                  []Bucket `json:"speed"`
	SpeedFallback          Key      `json:"speed_fallback"`
	ObjectDistance         []Bucket `json:"object_distance"`
	ObjectDistanceFallback Key      `json:"object_distance_fallback"`
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		PositionOffset: 0.15,

		PersonDistance: []Bucket{
			{Min: 0.25, Label: "0.8m"},
			{Min: 0.15, Label: "1.2m"},
			{Min: 0.10, Label: "1.8m"},
			{Min: 0.05, Label: "2.5m"},
		},
		PersonDistanceFallback: "3.0m+",

		ExpressionFloor: 0.15,
		Emotions:        DefaultEmotionRules(),

		RaiseMargin:    0.1,
		LevelTolerance: 0.1,
		ExtendReach:    0.15,
		DownMargin:     0.2,

		VisibilityFloor: 0.5,
		ConfidenceScale: 0.9,

		ObjectConfidenceFloor: 0.3,
		ApproachLeft:          0.3,
		ApproachRight:         0.7,
		DirectionLeft:         0.33,
		DirectionRight:        0.66,
		Speed: []Bucket{
			{Min: 0.1, Label: "0.5 m/s"},
			{Min: 0.05, Label: "1.0 m/s"},
		},
		SpeedFallback: "1.5 m/s",
		ObjectDistance: []Bucket{
			{Min: 0.2, Label: "0.5m"},
			{Min: 0.1, Label: "1.0m"},
			{Min: 0.05, Label: "1.5m"},
			{Min: 0.02, Label: "2.0m"},
		},
		ObjectDistanceFallback: "2.5m+",
	}
}

// DefaultEmotionRules returns the blendshape-to-emotion table. Rule order
// decides which emotion a blendshape feeds when several patterns match.
func DefaultEmotionRules() []EmotionRule {
	return []EmotionRule{
		{Emotion: Happy, Patterns: []string{"smile"}},
		{Emotion: Sad, Patterns: []string{"frown", "sad"}},
		{Emotion: Surprised, Patterns: []string{"surprise", "brow"}},
		{Emotion: Angry, Patterns: []string{"angry", "squint"}},
	}
}

// Validate checks that bucket tables are ordered and the scalar thresholds
// are in range.
func (t Tuning) Validate() error {
	if t.PositionOffset < 0 {
		return errors.New("position_offset must not be negative")
	}
	if t.ExpressionFloor < 0 {
		return errors.New("expression_floor must not be negative")
	}
	if t.ConfidenceScale <= 0 || t.ConfidenceScale > 1 {
		return errors.New("confidence_scale must be in (0, 1]")
	}
	if t.ObjectConfidenceFloor < 0 || t.ObjectConfidenceFloor >= 1 {
		return errors.New("object_confidence_floor must be in [0, 1)")
	}
	if t.ApproachLeft > t.ApproachRight {
		return errors.New("approach_left must not exceed approach_right")
	}
	if t.DirectionLeft > t.DirectionRight {
		return errors.New("direction_left must not exceed direction_right")
	}
	if len(t.Emotions) == 0 {
		return errors.New("emotions must not be empty")
	}

	tables := map[string][]Bucket{
		"person_distance": t.PersonDistance,
		"speed":           t.Speed,
		"object_distance": t.ObjectDistance,
	}
	for name, buckets := range tables {
		for i := 1; i < len(buckets); i++ {
			if buckets[i].Min >= buckets[i-1].Min {
				return fmt.Errorf("%s buckets must be strictly decreasing", name)
			}
		}
	}

	return nil
}

// Clone returns a deep copy of t.
func (t Tuning) Clone() Tuning {
	c := t
	c.PersonDistance = append([]Bucket(nil), t.PersonDistance...)
	c.Speed = append([]Bucket(nil), t.Speed...)
	c.ObjectDistance = append([]Bucket(nil), t.ObjectDistance...)
	c.Emotions = make([]EmotionRule, len(t.Emotions))
	for i, r := range t.Emotions {
		c.Emotions[i] = EmotionRule{Emotion: r.Emotion, Patterns: append([]string(nil), r.Patterns...)}
	}
	return c
}

// pick returns the label of the first bucket v clears, or fallback.
func pick(v float64, buckets []Bucket, fallback Key) Key {
	for _, b := range buckets {
		if v > b.Min {
			return b.Label
		}
	}
	return fallback
}
