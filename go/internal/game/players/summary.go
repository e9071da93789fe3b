package players

import (
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Summary counts how many active participants satisfy a predicate.
type Summary struct {
	Total          int      `json:"total"`
	Count          int      `json:"count"`
	Percentage     float64  `json:"percentage"`
	AllSatisfied   bool     `json:"all_satisfied"`
	SatisfiedIDs   []string `json:"satisfied_ids"`
	UnsatisfiedIDs []string `json:"unsatisfied_ids"`
}

// ReadinessSummary reports who is ready.
func (m *Manager) ReadinessSummary() Summary {
	return m.summarize(func(p models.Participant) bool {
		return p.IsReady
	})
}

// SubmissionSummary reports who has handed in a drawing.
func (m *Manager) SubmissionSummary() Summary {
	return m.summarize(func(p models.Participant) bool {
		return hasSubmitted(m.state, p.UserID)
	})
}

// VotingSummary reports who has voted.
func (m *Manager) VotingSummary() Summary {
	return m.summarize(func(p models.Participant) bool {
		return hasVoted(m.state, p.UserID)
	})
}

// BoosterPackSummary reports who has picked a booster pack.
func (m *Manager) BoosterPackSummary() Summary {
	return m.summarize(models.Participant.HasPack)
}

// summarize always counts against the live roster. AllSatisfied is false for
// an empty roster.
func (m *Manager) summarize(satisfied func(models.Participant) bool) Summary {
	active := m.activeParticipants()
	s := Summary{
		Total:          len(active),
		SatisfiedIDs:   []string{},
		UnsatisfiedIDs: []string{},
	}

	for _, p := range active {
		if satisfied(p) {
			s.SatisfiedIDs = append(s.SatisfiedIDs, p.UserID)
		} else {
			s.UnsatisfiedIDs = append(s.UnsatisfiedIDs, p.UserID)
		}
	}

	s.Count = len(s.SatisfiedIDs)
	if s.Total > 0 {
		s.Percentage = float64(s.Count) * 100 / float64(s.Total)
	}
	s.AllSatisfied = s.Total > 0 && s.Count == s.Total
	return s
}
