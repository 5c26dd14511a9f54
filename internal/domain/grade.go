package domain

// Grade is a qualitative rank. Tier 1 is the best.
type Grade struct {
	Tier  int    `json:"tier"`
	Label string `json:"label"`
}

// gradeThresholds are the minimum percentages of tiers 1 to 4; anything below
// the last one falls into tier 5.
var gradeThresholds = [...]int{90, 70, 50, 30}

// GradeScale holds the five labels, best first.
type GradeScale [5]string

// DefaultGradeScale uses Starfleet ranks.
var DefaultGradeScale = GradeScale{
	"Amiral",
	"Capitaine",
	"Commandant",
	"Lieutenant",
	"Enseigne",
}

// NewGradeScale builds a scale from configured labels. Missing or blank
// entries fall back to the default ranks.
func NewGradeScale(labels []string) GradeScale {
	scale := DefaultGradeScale
	for i := 0; i < len(scale) && i < len(labels); i++ {
		if labels[i] != "" {
			scale[i] = labels[i]
		}
	}
	return scale
}

// Grade returns the first tier whose threshold the percentage reaches.
func (s GradeScale) Grade(percentage int) Grade {
	for i, threshold := range gradeThresholds {
		if percentage >= threshold {
			return Grade{Tier: i + 1, Label: s[i]}
		}
	}
	last := len(s) - 1
	return Grade{Tier: last + 1, Label: s[last]}
}
