// Package mastery reads and records per-learner mastery status.
package mastery

import "github.com/abhisek/kpath/internal/knowledge"

// Trigger names what caused a mastery change.
type Trigger string

const (
	TriggerCompleted Trigger = "completed"
	TriggerMastered  Trigger = "mastered"
	TriggerDifficult Trigger = "difficult"
	TriggerManual    Trigger = "manual"
)

// Transition records a mastery status change for display and event logging.
type Transition struct {
	LearnerID        string                  `json:"learner_id"`
	KnowledgePointID int64                   `json:"knowledge_point_id"`
	From             knowledge.MasteryStatus `json:"from"`
	To               knowledge.MasteryStatus `json:"to"`
	Trigger          Trigger                 `json:"trigger"`
}

// Implied returns the status change a trigger implies for a point currently
// at from. It reports false when the status stays as is: completing a point
// only moves it out of unlearned, and a manual trigger carries its own status.
func Implied(from knowledge.MasteryStatus, trigger Trigger) (knowledge.MasteryStatus, bool) {
	if from == "" {
		from = knowledge.StatusUnlearned
	}
	var to knowledge.MasteryStatus
	switch trigger {
	case TriggerMastered:
		to = knowledge.StatusMastered
	case TriggerDifficult:
		to = knowledge.StatusDifficult
	case TriggerCompleted:
		if from != knowledge.StatusUnlearned {
			return from, false
		}
		to = knowledge.StatusLearning
	default:
		return from, false
	}
	return to, to != from
}
