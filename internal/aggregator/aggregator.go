// Package aggregator assembles per-frame person and object records from raw
// detector output.
package aggregator

import (
	"fmt"
	"sync"

	"github.com/ayusman/intelevision/internal/detector"
	"github.com/ayusman/intelevision/internal/label"
	"github.com/ayusman/intelevision/internal/snapshot"
)

// Aggregator turns a detector.Result into snapshot records. Tuning and
// vocabulary can be swapped between frames; a frame in progress keeps the
// values it started with.
type Aggregator struct {
	mu     sync.RWMutex
	tuning label.Tuning
	vocab  *label.Vocabulary
}

// New creates an Aggregator. A nil vocabulary means English.
func New(tuning label.Tuning, vocab *label.Vocabulary) *Aggregator {
	if vocab == nil {
		vocab = label.MustVocabulary(label.English)
	}
	return &Aggregator{tuning: tuning, vocab: vocab}
}

// SetTuning replaces the thresholds used for later frames.
func (a *Aggregator) SetTuning(t label.Tuning) {
	t = t.Clone()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tuning = t
}

// Tuning returns a copy of the thresholds in use.
func (a *Aggregator) Tuning() label.Tuning {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tuning.Clone()
}

// SetVocabulary replaces the vocabulary used for later frames.
func (a *Aggregator) SetVocabulary(v *label.Vocabulary) {
	if v == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.vocab = v
}

// Vocabulary returns the vocabulary in use.
func (a *Aggregator) Vocabulary() *label.Vocabulary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.vocab
}

// Aggregate builds the records for one frame.
//
// People keep detector order and are never filtered; their confidence is
// reported only. Faces pair with poses by index. Objects keep detector order
// and are dropped unless their best score is strictly above the floor. IDs
// are 1-based detector indices, so object IDs can skip numbers.
func (a *Aggregator) Aggregate(r *detector.Result) ([]snapshot.PersonRecord, []snapshot.ObjectRecord) {
	a.mu.RLock()
	t, v := a.tuning, a.vocab
	a.mu.RUnlock()

	persons := []snapshot.PersonRecord{}
	objects := []snapshot.ObjectRecord{}
	if r == nil {
		return persons, objects
	}

	for i, pose := range r.Poses {
		expression := label.NotDetected
		if face, ok := r.FaceAt(i); ok {
			expression = label.Expression(face.Blendshapes, t)
		}

		persons = append(persons, snapshot.PersonRecord{
			ID:         fmt.Sprintf("person_%d", i+1),
			Position:   v.Render(label.Position(pose, t)),
			Distance:   v.Render(label.PersonDistance(pose, t)),
			Expression: v.Render(expression),
			Gesture:    v.Render(label.Gesture(pose, t)),
			Confidence: label.PoseConfidence(pose, t),
		})
	}

	for i, obj := range r.Objects {
		best, ok := obj.Best()
		if !ok || best.Score <= t.ObjectConfidenceFloor {
			continue
		}

		objects = append(objects, snapshot.ObjectRecord{
			ID:         fmt.Sprintf("object_%d", i+1),
			Category:   v.Category(best.Name),
			Movement:   v.Render(label.Movement(obj.Box, t)),
			Direction:  v.Render(label.Direction(obj.Box, t)),
			Speed:      v.Render(label.Speed(obj.Box, t)),
			Distance:   v.Render(label.ObjectDistance(obj.Box, t)),
			Confidence: best.Score,
		})
	}

	return persons, objects
}
