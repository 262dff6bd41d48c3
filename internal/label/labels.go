// Package label turns raw landmark, blendshape and box geometry into the small
// vocabulary of labels shown to users. Every function here is pure and never
// fails: missing input produces a sentinel label instead.
package label

import (
	"fmt"
	"sort"
	"sync"
)

// Key is a language-neutral label. Keys with no vocabulary entry (distance
// and speed buckets, unknown categories) render as themselves.
type Key string

// Position labels.
const (
	Left    Key = "left"
	Right   Key = "right"
	Front   Key = "front"
	Unknown Key = "unknown"
)

// Expression labels.
const (
	Happy       Key = "happy"
	Sad         Key = "sad"
	Surprised   Key = "surprised"
	Angry       Key = "angry"
	Neutral     Key = "neutral"
	NotDetected Key = "not_detected"
)

// Gesture labels.
const (
	HandsUp          Key = "hands_up"
	HandRaised       Key = "hand_raised"
	ArmExtended      Key = "arm_extended"
	ArmsDown         Key = "arms_down"
	PositionDetected Key = "position_detected"
	None             Key = "none"
)

// Object movement and direction labels.
const (
	ApproachingLeft  Key = "approaching_left"
	ApproachingRight Key = "approaching_right"
	Static           Key = "static"
	Center           Key = "center"
	ZeroSpeed        Key = "0 m/s"
)

// Vocabulary names.
const (
	English = "en"
	Spanish = "es"
)

// Vocabulary renders keys and detector category names for display.
// It is safe for concurrent use.
type Vocabulary struct {
	name       string
	words      map[Key]string
	categories map[string]string

	mu        sync.RWMutex
	overrides map[string]string
}

// NewVocabulary returns the named vocabulary.
func NewVocabulary(name string) (*Vocabulary, error) {
	switch name {
	case English, "":
		return &Vocabulary{name: English}, nil
	case Spanish:
		return &Vocabulary{
			name:       Spanish,
			words:      spanishWords,
			categories: spanishCategories,
		}, nil
	default:
		return nil, fmt.Errorf("unknown vocabulary %q", name)
	}
}

// MustVocabulary is NewVocabulary for names known at compile time.
func MustVocabulary(name string) *Vocabulary {
	v, err := NewVocabulary(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Vocabularies lists the supported vocabulary names.
func Vocabularies() []string {
	return []string{English, Spanish}
}

// Name returns the vocabulary name.
func (v *Vocabulary) Name() string {
	return v.name
}

// Render returns the display form of k.
func (v *Vocabulary) Render(k Key) string {
	if w, ok := v.words[k]; ok {
		return w
	}
	return string(k)
}

// Category translates a detector category name. Operator overrides win over
// the built-in dictionary; unknown names pass through unchanged.
func (v *Vocabulary) Category(name string) string {
	v.mu.RLock()
	o, ok := v.overrides[name]
	v.mu.RUnlock()
	if ok {
		return o
	}

	if c, ok := v.categories[name]; ok {
		return c
	}
	return name
}

// SetOverrides replaces the operator category overrides.
func (v *Vocabulary) SetOverrides(overrides map[string]string) {
	cp := make(map[string]string, len(overrides))
	for k, val := range overrides {
		cp[k] = val
	}

	v.mu.Lock()
	v.overrides = cp
	v.mu.Unlock()
}

// Categories returns the built-in dictionary entries sorted by name.
func (v *Vocabulary) Categories() []string {
	names := make([]string, 0, len(v.categories))
	for n := range v.categories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var spanishWords = map[Key]string{
	Left:    "izquierda",
	Right:   "derecha",
	Front:   "frente",
	Unknown: "desconocido",

	Happy:       "feliz",
	Sad:         "triste",
	Surprised:   "sorprendido",
	Angry:       "enojado",
	Neutral:     "neutral",
	NotDetected: "no_detectada",

	HandsUp:          "manos_arriba",
	HandRaised:       "mano_levantada",
	ArmExtended:      "brazo_extendido",
	ArmsDown:         "brazos_abajo",
	PositionDetected: "posicion_detectada",
	None:             "ninguno",

	ApproachingLeft:  "se_acerca_izq",
	ApproachingRight: "se_acerca_der",
	Static:           "estatico",
	Center:           "centro",
}

var spanishCategories = map[string]string{
	"person":     "persona",
	"bicycle":    "bicicleta",
	"car":        "coche",
	"motorcycle": "motocicleta",
	"bus":        "autobus",
	"truck":      "camion",
	"chair":      "silla",
	"table":      "mesa",
	"bottle":     "botella",
	"cup":        "taza",
	"phone":      "telefono",
	"laptop":     "laptop",
	"book":       "libro",
	"clock":      "reloj",
	"dog":        "perro",
	"cat":        "gato",
	"bird":       "pajaro",
}
