// Package snapshot holds the latest aggregated detection result and fans it
// out to subscribers.
package snapshot

// PersonRecord describes one person in a frame. ID is a positional index,
// not a track; the same person may get a different ID next frame.
type PersonRecord struct {
	ID         string  `json:"id"`
	Position   string  `json:"position"`
	Distance   string  `json:"distance"`
	Expression string  `json:"expression"`
	Gesture    string  `json:"gesture"`
	Confidence float64 `json:"confidence"`
}

// ObjectRecord describes one object detection that cleared the confidence
// floor.
type ObjectRecord struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Movement   string  `json:"movement"`
	Direction  string  `json:"direction"`
	Speed      string  `json:"speed"`
	Distance   string  `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Snapshot is the full result of one processed frame.
type Snapshot struct {
	Persons      []PersonRecord `json:"persons"`
	Objects      []ObjectRecord `json:"objects"`
	Timestamp    int64          `json:"timestamp"`
	CameraActive bool           `json:"cameraActive"`
}

// Empty returns the snapshot a store starts with.
func Empty() Snapshot {
	return Snapshot{
		Persons: []PersonRecord{},
		Objects: []ObjectRecord{},
	}
}

// Clone returns a deep copy. Nil slices become empty so JSON output is
// always an array.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.Persons = make([]PersonRecord, len(s.Persons))
	copy(c.Persons, s.Persons)
	c.Objects = make([]ObjectRecord, len(s.Objects))
	copy(c.Objects, s.Objects)
	return c
}
