package label

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/ayusman/intelevision/internal/detector"
)

const epsilon = 1e-9

// poseWith returns a standing pose with the nose and shoulders moved.
func poseWith(noseX, leftShoulderX, rightShoulderX float64) detector.Pose {
	p := detector.StandingPose()
	p.Landmarks[detector.Nose].X = noseX
	p.Landmarks[detector.LeftShoulder].X = leftShoulderX
	p.Landmarks[detector.RightShoulder].X = rightShoulderX
	return p
}

func TestPosition(t *testing.T) {
	tuning := DefaultTuning()

	tests := []struct {
		name string
		pose detector.Pose
		want Key
	}{
		{name: "centered", pose: poseWith(0.5, 0.6, 0.4), want: Front},
		{name: "nose far left", pose: poseWith(0.3, 0.6, 0.4), want: Left},
		{name: "nose far right", pose: poseWith(0.7, 0.6, 0.4), want: Right},
		{name: "just inside left margin", pose: poseWith(0.36, 0.6, 0.4), want: Front},
		{name: "just inside right margin", pose: poseWith(0.64, 0.6, 0.4), want: Front},
		{name: "no landmarks", pose: detector.Pose{}, want: Unknown},
		{name: "missing shoulders", pose: detector.Pose{Landmarks: make([]detector.Landmark, 5)}, want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Position(tt.pose, tuning); got != tt.want {
				t.Errorf("Position() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPosition_FollowsOffset(t *testing.T) {
	tuning := DefaultTuning()
	tuning.PositionOffset = 0.05

	if got := Position(poseWith(0.42, 0.6, 0.4), tuning); got != Left {
		t.Errorf("Position() with narrow offset = %q, want %q", got, Left)
	}
}

func TestPersonDistance_Monotonic(t *testing.T) {
	tuning := DefaultTuning()

	widths := []float64{0.30, 0.20, 0.12, 0.07, 0.01}
	want := []Key{"0.8m", "1.2m", "1.8m", "2.5m", "3.0m+"}

	for i, w := range widths {
		pose := poseWith(0.5, 0.5+w/2, 0.5-w/2)
		if got := PersonDistance(pose, tuning); got != want[i] {
			t.Errorf("PersonDistance(width=%.2f) = %q, want %q", w, got, want[i])
		}
	}

	t.Run("shoulder order does not matter", func(t *testing.T) {
		pose := poseWith(0.5, 0.35, 0.65)
		if got := PersonDistance(pose, tuning); got != "0.8m" {
			t.Errorf("PersonDistance() = %q, want 0.8m", got)
		}
	})

	t.Run("missing shoulders", func(t *testing.T) {
		if got := PersonDistance(detector.Pose{}, tuning); got != Unknown {
			t.Errorf("PersonDistance() = %q, want %q", got, Unknown)
		}
	})
}

func TestExpression(t *testing.T) {
	tuning := DefaultTuning()

	tests := []struct {
		name        string
		blendshapes []detector.Category
		want        Key
	}{
		{
			name:        "smiles accumulate",
			blendshapes: detector.SmilingFace().Blendshapes,
			want:        Happy,
		},
		{
			name: "sum beats the largest single score",
			blendshapes: []detector.Category{
				{Name: "mouthSmileLeft", Score: 0.2},
				{Name: "mouthSmileRight", Score: 0.2},
				{Name: "browInnerUp", Score: 0.35},
			},
			want: Happy,
		},
		{
			name: "below floor is neutral",
			blendshapes: []detector.Category{
				{Name: "mouthSmileLeft", Score: 0.05},
				{Name: "mouthFrownLeft", Score: 0.1},
			},
			want: Neutral,
		},
		{
			name:        "exactly the floor is neutral",
			blendshapes: []detector.Category{{Name: "mouthFrownLeft", Score: 0.15}},
			want:        Neutral,
		},
		{
			name: "frowns read sad",
			blendshapes: []detector.Category{
				{Name: "mouthFrownLeft", Score: 0.3},
				{Name: "mouthFrownRight", Score: 0.3},
			},
			want: Sad,
		},
		{
			name: "squints read angry",
			blendshapes: []detector.Category{
				{Name: "eyeSquintLeft", Score: 0.4},
				{Name: "eyeSquintRight", Score: 0.4},
				{Name: "browDownLeft", Score: 0.3},
			},
			want: Angry,
		},
		{
			name:        "names are case-insensitive",
			blendshapes: []detector.Category{{Name: "BROWOUTERUPLEFT", Score: 0.5}},
			want:        Surprised,
		},
		{
			name:        "unmatched names are ignored",
			blendshapes: []detector.Category{{Name: "jawOpen", Score: 0.9}},
			want:        Neutral,
		},
		{
			name:        "empty blendshapes are neutral",
			blendshapes: []detector.Category{},
			want:        Neutral,
		},
		{
			name:        "nil blendshapes are not detected",
			blendshapes: nil,
			want:        NotDetected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expression(tt.blendshapes, tuning); got != tt.want {
				t.Errorf("Expression() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpression_OneBucketPerBlendshape(t *testing.T) {
	tuning := DefaultTuning()
	// "smileBrow" would match both happy and surprised; only the first rule counts.
	tuning.ExpressionFloor = 0
	blend := []detector.Category{
		{Name: "smileBrow", Score: 0.3},
		{Name: "browInnerUp", Score: 0.2},
	}

	if got := Expression(blend, tuning); got != Happy {
		t.Errorf("Expression() = %q, want %q", got, Happy)
	}
}

func TestExpression_Rendered(t *testing.T) {
	tuning := DefaultTuning()
	key := Expression(detector.SmilingFace().Blendshapes, tuning)

	if got := MustVocabulary(English).Render(key); got != "happy" {
		t.Errorf("english render = %q, want happy", got)
	}
	if got := MustVocabulary(Spanish).Render(key); got != "feliz" {
		t.Errorf("spanish render = %q, want feliz", got)
	}
}

func TestGesture(t *testing.T) {
	tuning := DefaultTuning()

	setWrists := func(lx, ly, rx, ry float64) detector.Pose {
		p := detector.StandingPose()
		p.Landmarks[detector.LeftWrist].X = lx
		p.Landmarks[detector.LeftWrist].Y = ly
		p.Landmarks[detector.RightWrist].X = rx
		p.Landmarks[detector.RightWrist].Y = ry
		return p
	}

	// Shoulders sit at y=0.4, x=0.6 (left) and x=0.4 (right).
	tests := []struct {
		name string
		pose detector.Pose
		want Key
	}{
		{name: "both hands up", pose: detector.HandsUpPose(), want: HandsUp},
		{name: "hands up and far out still hands up", pose: setWrists(0.9, 0.2, 0.1, 0.2), want: HandsUp},
		{name: "left hand raised", pose: setWrists(0.62, 0.2, 0.38, 0.7), want: HandRaised},
		{name: "right hand raised", pose: setWrists(0.62, 0.7, 0.38, 0.2), want: HandRaised},
		{name: "left arm extended", pose: setWrists(0.85, 0.42, 0.38, 0.7), want: ArmExtended},
		{name: "right arm extended", pose: setWrists(0.62, 0.7, 0.15, 0.38), want: ArmExtended},
		{name: "arms down", pose: detector.StandingPose(), want: ArmsDown},
		{name: "wrists at chest height", pose: setWrists(0.62, 0.5, 0.38, 0.5), want: PositionDetected},
		{name: "one wrist low one at chest", pose: setWrists(0.62, 0.7, 0.38, 0.5), want: PositionDetected},
		{name: "too few landmarks", pose: detector.Pose{Landmarks: make([]detector.Landmark, 16)}, want: None},
		{name: "no landmarks", pose: detector.Pose{}, want: None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Gesture(tt.pose, tuning); got != tt.want {
				t.Errorf("Gesture() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPoseConfidence(t *testing.T) {
	tuning := DefaultTuning()

	t.Run("all key points visible", func(t *testing.T) {
		got := PoseConfidence(detector.StandingPose(), tuning)
		if math.Abs(got-0.9) > epsilon {
			t.Errorf("PoseConfidence() = %f, want 0.9", got)
		}
	})

	t.Run("never reaches full certainty", func(t *testing.T) {
		if got := PoseConfidence(detector.StandingPose(), tuning); got >= 1 {
			t.Errorf("PoseConfidence() = %f, want < 1", got)
		}
	})

	t.Run("hidden wrists", func(t *testing.T) {
		p := detector.StandingPose()
		p.Landmarks[detector.LeftWrist].Visibility = detector.Vis(0.2)
		p.Landmarks[detector.RightWrist].Visibility = detector.Vis(0.5)

		got := PoseConfidence(p, tuning)
		if want := 3.0 / 5.0 * 0.9; math.Abs(got-want) > epsilon {
			t.Errorf("PoseConfidence() = %f, want %f", got, want)
		}
	})

	t.Run("missing visibility counts as visible", func(t *testing.T) {
		p := detector.StandingPose()
		for i := range p.Landmarks {
			p.Landmarks[i].Visibility = nil
		}
		if got := PoseConfidence(p, tuning); math.Abs(got-0.9) > epsilon {
			t.Errorf("PoseConfidence() = %f, want 0.9", got)
		}
	})

	t.Run("absent landmarks do not count", func(t *testing.T) {
		p := detector.Pose{Landmarks: detector.StandingPose().Landmarks[:13]}
		if want := 3.0 / 5.0 * 0.9; math.Abs(PoseConfidence(p, tuning)-want) > epsilon {
			t.Errorf("PoseConfidence() = %f, want %f", PoseConfidence(p, tuning), want)
		}
	})

	t.Run("empty pose", func(t *testing.T) {
		if got := PoseConfidence(detector.Pose{}, tuning); got != 0 {
			t.Errorf("PoseConfidence() = %f, want 0", got)
		}
	})
}

func box(centerX, width, height float64) *detector.BoundingBox {
	return &detector.BoundingBox{OriginX: centerX - width/2, OriginY: 0.1, Width: width, Height: height}
}

func TestObjectLabels(t *testing.T) {
	tuning := DefaultTuning()

	tests := []struct {
		name      string
		box       *detector.BoundingBox
		movement  Key
		direction Key
		speed     Key
		distance  Key
	}{
		{name: "large box centered", box: box(0.5, 0.5, 0.5), movement: Static, direction: Center, speed: "0.5 m/s", distance: "0.5m"},
		{name: "left edge", box: box(0.2, 0.3, 0.3), movement: ApproachingLeft, direction: Left, speed: "1.0 m/s", distance: "1.5m"},
		{name: "right edge", box: box(0.8, 0.2, 0.2), movement: ApproachingRight, direction: Right, speed: "1.5 m/s", distance: "2.0m"},
		{name: "between approach and direction splits", box: box(0.32, 0.1, 0.1), movement: Static, direction: Left, speed: "1.5 m/s", distance: "2.5m+"},
		{name: "medium area", box: box(0.5, 0.4, 0.3), movement: Static, direction: Center, speed: "0.5 m/s", distance: "1.0m"},
		{name: "no box", box: nil, movement: Static, direction: Center, speed: "0 m/s", distance: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Movement(tt.box, tuning); got != tt.movement {
				t.Errorf("Movement() = %q, want %q", got, tt.movement)
			}
			if got := Direction(tt.box, tuning); got != tt.direction {
				t.Errorf("Direction() = %q, want %q", got, tt.direction)
			}
			if got := Speed(tt.box, tuning); got != tt.speed {
				t.Errorf("Speed() = %q, want %q", got, tt.speed)
			}
			if got := ObjectDistance(tt.box, tuning); got != tt.distance {
				t.Errorf("ObjectDistance() = %q, want %q", got, tt.distance)
			}
		})
	}
}

func TestVocabulary(t *testing.T) {
	t.Run("english renders keys as-is", func(t *testing.T) {
		v := MustVocabulary(English)
		if got := v.Render(HandsUp); got != "hands_up" {
			t.Errorf("Render() = %q, want hands_up", got)
		}
		if got := v.Category("cup"); got != "cup" {
			t.Errorf("Category() = %q, want cup", got)
		}
	})

	t.Run("spanish translates labels and categories", func(t *testing.T) {
		v := MustVocabulary(Spanish)
		if got := v.Render(HandsUp); got != "manos_arriba" {
			t.Errorf("Render() = %q, want manos_arriba", got)
		}
		if got := v.Render("1.2m"); got != "1.2m" {
			t.Errorf("bucket labels should pass through, got %q", got)
		}
		if got := v.Category("dog"); got != "perro" {
			t.Errorf("Category(dog) = %q, want perro", got)
		}
	})

	t.Run("unknown categories pass through", func(t *testing.T) {
		v := MustVocabulary(Spanish)
		if got := v.Category("toothbrush"); got != "toothbrush" {
			t.Errorf("Category() = %q, want toothbrush", got)
		}
	})

	t.Run("overrides win", func(t *testing.T) {
		v := MustVocabulary(Spanish)
		v.SetOverrides(map[string]string{"dog": "perrito", "cell phone": "movil"})

		if got := v.Category("dog"); got != "perrito" {
			t.Errorf("Category(dog) = %q, want perrito", got)
		}
		if got := v.Category("cell phone"); got != "movil" {
			t.Errorf("Category(cell phone) = %q, want movil", got)
		}
	})

	t.Run("unknown vocabulary", func(t *testing.T) {
		if _, err := NewVocabulary("klingon"); err == nil {
			t.Error("expected error for unknown vocabulary")
		}
	})
}

func TestTuning_Validate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("default tuning should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{name: "unordered buckets", mutate: func(t *Tuning) { t.PersonDistance[0].Min = 0.01 }},
		{name: "scale above one", mutate: func(t *Tuning) { t.ConfidenceScale = 1.2 }},
		{name: "negative floor", mutate: func(t *Tuning) { t.ExpressionFloor = -1 }},
		{name: "object floor of one", mutate: func(t *Tuning) { t.ObjectConfidenceFloor = 1 }},
		{name: "crossed directions", mutate: func(t *Tuning) { t.DirectionLeft = 0.9 }},
		{name: "no emotions", mutate: func(t *Tuning) { t.Emotions = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning := DefaultTuning()
			tt.mutate(&tuning)
			if err := tuning.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTuning_JSONRoundTripKeepsBehavior(t *testing.T) {
	data, err := json.Marshal(DefaultTuning())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var tuning Tuning
	if err := json.Unmarshal(data, &tuning); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := Expression(detector.SmilingFace().Blendshapes, tuning); got != Happy {
		t.Errorf("Expression() after round trip = %q, want %q", got, Happy)
	}
	if got := PersonDistance(poseWith(0.5, 0.65, 0.35), tuning); got != "0.8m" {
		t.Errorf("PersonDistance() after round trip = %q, want 0.8m", got)
	}
}

func TestTuning_Clone(t *testing.T) {
	orig := DefaultTuning()
	c := orig.Clone()

	c.PersonDistance[0].Min = 0.9
	c.Emotions[0].Patterns[0] = "grin"

	if orig.PersonDistance[0].Min != 0.25 {
		t.Error("clone shares distance buckets with the original")
	}
	if orig.Emotions[0].Patterns[0] != "smile" {
		t.Error("clone shares emotion patterns with the original")
	}
}
