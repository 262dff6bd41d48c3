package label

import (
	"strings"

	"github.com/ayusman/intelevision/internal/detector"
)

// Expression infers an emotion from blendshape scores.
//
// Each blendshape feeds the first rule whose pattern its name contains, and
// scores are summed per emotion before comparing. The largest sum wins if it
// is strictly above the floor; otherwise the face is neutral. Nil blendshapes
// mean the runtime produced no face data.
func Expression(blendshapes []detector.Category, t Tuning) Key {
	if blendshapes == nil {
		return NotDetected
	}

	sums := make([]float64, len(t.Emotions))
	for _, c := range blendshapes {
		name := strings.ToLower(c.Name)
		if i := matchRule(name, t.Emotions); i >= 0 {
			sums[i] += c.Score
		}
	}

	best := Neutral
	bestScore := t.ExpressionFloor
	for i, rule := range t.Emotions {
		if sums[i] > bestScore {
			best = rule.Emotion
			bestScore = sums[i]
		}
	}

	return best
}

func matchRule(name string, rules []EmotionRule) int {
	for i, rule := range rules {
		for _, p := range rule.Patterns {
			if strings.Contains(name, p) {
				return i
			}
		}
	}
	return -1
}
