// Package provisioning keeps a deal's training sessions in line with the
// quantities purchased on its plannable product lines.
package provisioning

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/training-erp/internal/persistence"
)

// Rules decides which product lines produce sessions.
type Rules struct {
	PlannablePrefixes []string
	ExcludedPrefixes  []string
}

// DefaultRules returns the prefixes used when none are configured.
func DefaultRules() Rules {
	return Rules{
		PlannablePrefixes: []string{"FOR-", "CUR-"},
		ExcludedPrefixes:  []string{"FOR-MAT-"},
	}
}

// IsPlannable reports whether code starts with a plannable prefix and with no
// excluded prefix. Matching ignores case.
func (r Rules) IsPlannable(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, prefix := range r.ExcludedPrefixes {
		if prefix != "" && strings.HasPrefix(code, strings.ToUpper(prefix)) {
			return false
		}
	}
	for _, prefix := range r.PlannablePrefixes {
		if prefix != "" && strings.HasPrefix(code, strings.ToUpper(prefix)) {
			return true
		}
	}
	return false
}

// PlannableLines filters lines down to the plannable ones, keeping order.
func (r Rules) PlannableLines(lines []persistence.ProductLine) []persistence.ProductLine {
	var plannable []persistence.ProductLine
	for _, line := range lines {
		if r.IsPlannable(line.ProductCode) {
			plannable = append(plannable, line)
		}
	}
	return plannable
}

// MaxSessionsPerLine caps the sessions a single product line can require.
// Deal input above it is rejected; RequiredSessions clamps to it for lines
// stored before the cap existed.
const MaxSessionsPerLine = 500

var maxSessionsPerLine = decimal.NewFromInt(MaxSessionsPerLine)

// RequiredSessions is the quantity rounded half away from zero, floored at 0
// and capped at MaxSessionsPerLine.
func RequiredSessions(line persistence.ProductLine) int {
	rounded := line.Quantity.Round(0)
	if rounded.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	if rounded.GreaterThan(maxSessionsPerLine) {
		return MaxSessionsPerLine
	}
	return int(rounded.IntPart())
}

// SessionState is the part of a session the plan looks at.
type SessionState struct {
	ID            string
	ProductLineID string
	CreatedAt     time.Time
	Empty         bool
}

// StatesFor derives plan input from stored sessions.
func StatesFor(sessions []persistence.Session) []SessionState {
	states := make([]SessionState, 0, len(sessions))
	for _, session := range sessions {
		state := SessionState{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			Empty:     session.IsEmpty(),
		}
		if session.ProductLineID != nil {
			state.ProductLineID = *session.ProductLineID
		}
		states = append(states, state)
	}
	return states
}

// Creation asks for Count new empty sessions on Line.
type Creation struct {
	Line  persistence.ProductLine
	Count int
}

// Plan is the outcome of comparing sessions against purchased quantities.
type Plan struct {
	ToCreate []Creation
	ToDelete []string
	ToFlag   []string
}

// IsNoop reports whether applying the plan would change nothing.
func (p Plan) IsNoop() bool {
	return len(p.ToCreate) == 0 && len(p.ToDelete) == 0
}

// CreateCount is the total number of sessions to create.
func (p Plan) CreateCount() int {
	total := 0
	for _, creation := range p.ToCreate {
		total += creation.Count
	}
	return total
}

// Flagged reports whether the session exceeds its line's quantity.
func (p Plan) Flagged(sessionID string) bool {
	for _, id := range p.ToFlag {
		if id == sessionID {
			return true
		}
	}
	return false
}

// Compute builds the plan for the given plannable lines. Sessions are ordered
// by creation time then id; the oldest are kept and the newest are deleted or
// flagged first. Sessions of other lines are ignored.
func Compute(lines []persistence.ProductLine, sessions []SessionState) Plan {
	ordered := make([]SessionState, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	byLine := make(map[string][]SessionState)
	for _, session := range ordered {
		if session.ProductLineID != "" {
			byLine[session.ProductLineID] = append(byLine[session.ProductLineID], session)
		}
	}

	var plan Plan
	for _, line := range lines {
		lineSessions := byLine[line.ID]
		required := RequiredSessions(line)

		excess := len(lineSessions) - required
		deleted := make(map[string]bool)
		for i := len(lineSessions) - 1; i >= 0 && excess > 0; i-- {
			if lineSessions[i].Empty {
				deleted[lineSessions[i].ID] = true
				plan.ToDelete = append(plan.ToDelete, lineSessions[i].ID)
				excess--
			}
		}

		remaining := make([]SessionState, 0, len(lineSessions))
		for _, session := range lineSessions {
			if !deleted[session.ID] {
				remaining = append(remaining, session)
			}
		}

		if len(remaining) > required {
			for _, session := range remaining[required:] {
				plan.ToFlag = append(plan.ToFlag, session.ID)
			}
		}

		if missing := required - len(remaining); missing > 0 {
			plan.ToCreate = append(plan.ToCreate, Creation{Line: line, Count: missing})
		}
	}
	return plan
}
