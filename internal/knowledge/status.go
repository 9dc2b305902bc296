package knowledge

import "fmt"

// MasteryStatus is a learner's progress tag for one knowledge point.
type MasteryStatus string

const (
	StatusUnlearned MasteryStatus = "unlearned"
	StatusLearning  MasteryStatus = "learning"
	StatusDifficult MasteryStatus = "difficult"
	StatusMastered  MasteryStatus = "mastered"
)

// AllStatuses returns every mastery status in lifecycle order.
func AllStatuses() []MasteryStatus {
	return []MasteryStatus{StatusUnlearned, StatusLearning, StatusDifficult, StatusMastered}
}

// ParseMasteryStatus converts a string to a MasteryStatus.
func ParseMasteryStatus(s string) (MasteryStatus, error) {
	for _, st := range AllStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown mastery status: %q", s)
}

// Label returns the display label for a status.
func (s MasteryStatus) Label() string {
	switch s {
	case StatusUnlearned:
		return "Unlearned"
	case StatusLearning:
		return "Learning"
	case StatusDifficult:
		return "Difficult"
	case StatusMastered:
		return "Mastered"
	default:
		return "Unknown"
	}
}

// StatusOf returns the status for id, defaulting to unlearned.
func StatusOf(statuses map[int64]MasteryStatus, id int64) MasteryStatus {
	if s, ok := statuses[id]; ok && s != "" {
		return s
	}
	return StatusUnlearned
}

// Difficulty is the intrinsic difficulty level of a knowledge point.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty converts a string to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty: %q", s)
}

// Weight returns the ordering weight: easy=1, medium=2, hard=3.
// Unknown levels weigh as medium.
func (d Difficulty) Weight() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyHard:
		return 3
	default:
		return 2
	}
}

// DifficultyOf returns the difficulty for id, defaulting to medium.
func DifficultyOf(levels map[int64]Difficulty, id int64) Difficulty {
	if d, ok := levels[id]; ok && d != "" {
		return d
	}
	return DifficultyMedium
}
