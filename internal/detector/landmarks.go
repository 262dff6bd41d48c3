// Package detector provides the vision runtime interface and the raw per-frame
// geometry it returns: pose landmarks, face blendshapes and object boxes.
package detector

// Pose landmark indices following the MediaPipe pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24

	// MinPoseLandmarks is the smallest landmark set that covers nose, shoulders,
	// elbows and wrists.
	MinPoseLandmarks = 17
	// NumPoseLandmarks is the full MediaPipe pose model size.
	NumPoseLandmarks = 33
)

// Landmark is a normalized keypoint. Visibility is nil when the runtime did not
// report one.
type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// Pose is one person's landmark set in image space plus its world-space twin.
type Pose struct {
	Landmarks []Landmark `json:"landmarks"`
	World     []Landmark `json:"world,omitempty"`
}

// Has reports whether every index in idx is present in the pose.
func (p Pose) Has(idx ...int) bool {
	for _, i := range idx {
		if i < 0 || i >= len(p.Landmarks) {
			return false
		}
	}
	return true
}

// At returns the landmark at index i and whether it exists.
func (p Pose) At(i int) (Landmark, bool) {
	if i < 0 || i >= len(p.Landmarks) {
		return Landmark{}, false
	}
	return p.Landmarks[i], true
}

// Category is a named score, used both for blendshapes and object classes.
type Category struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Face holds one face's blendshape scores. Blendshapes is nil when the runtime
// produced none for this face.
type Face struct {
	Blendshapes []Category `json:"blendshapes"`
}

// BoundingBox is an axis-aligned rectangle in normalized frame coordinates.
type BoundingBox struct {
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// CenterX returns the horizontal center of the box.
func (b BoundingBox) CenterX() float64 {
	return b.OriginX + b.Width/2
}

// Area returns width times height.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Object is one object detection. Categories are ordered best first.
type Object struct {
	Categories []Category   `json:"categories"`
	Box        *BoundingBox `json:"box,omitempty"`
}

// Best returns the highest ranked category and whether there is one.
func (o Object) Best() (Category, bool) {
	if len(o.Categories) == 0 {
		return Category{}, false
	}
	return o.Categories[0], true
}

// Result combines the three queries made for a single frame timestamp.
// Faces are aligned by index with Poses.
type Result struct {
	Poses   []Pose   `json:"poses"`
	Faces   []Face   `json:"faces"`
	Objects []Object `json:"objects"`
}

// FaceAt returns the face paired with pose i, if the runtime returned one.
func (r *Result) FaceAt(i int) (Face, bool) {
	if r == nil || i < 0 || i >= len(r.Faces) {
		return Face{}, false
	}
	return r.Faces[i], true
}

// Vis is a convenience for building landmarks with a visibility score.
func Vis(v float64) *float64 {
	return &v
}
