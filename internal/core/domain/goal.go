package domain

import (
	"errors"
	"math"
	"strings"
)

var (
	ErrGoalNameEmpty      = errors.New("goal name cannot be empty")
	ErrGoalNameTooLong    = errors.New("goal name is too long (max 100 chars)")
	ErrGoalStatRequired   = errors.New("quantitative goal must reference a stat")
	ErrGoalTargetRequired = errors.New("quantitative goal must have a target value")
	ErrGoalNotQualitative = errors.New("goal is not task-based")
)

const MaxGoalNameLen = 100

// Goal is a target inside a category. Quantitative goals track a named stat
// against a numeric threshold; qualitative goals are manually toggled tasks.
//
// CurrentValue is a cached copy of the referenced stat's value at the last
// write, not re-derived on read. Whoever changes the stat must push the new
// value through Category.SetStat so dependent goals stay consistent.
//
// For qualitative goals Completed mirrors Achieved by construction. The
// redundancy is kept because stored documents always carry both fields.
type Goal struct {
	Name          string `json:"name"`
	IsQualitative bool   `json:"is_qualitative"`
	Stat          string `json:"stat,omitempty"`
	CurrentValue  string `json:"current_value,omitempty"`
	TargetValue   string `json:"target_value,omitempty"`
	Completed     bool   `json:"completed"`
	Achieved      bool   `json:"achieved"`
}

func validateGoalName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrGoalNameEmpty
	}
	if len(trimmed) > MaxGoalNameLen {
		return "", ErrGoalNameTooLong
	}
	return trimmed, nil
}

// NewQuantitativeGoal builds a stat-linked goal. current is the referenced
// stat's value at creation time; an empty current is seeded as "0".
func NewQuantitativeGoal(name, stat, current, target string) (*Goal, error) {
	cleanName, err := validateGoalName(name)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(stat) == "" {
		return nil, ErrGoalStatRequired
	}
	if strings.TrimSpace(target) == "" {
		return nil, ErrGoalTargetRequired
	}

	if current == "" {
		current = "0"
	}

	g := &Goal{
		Name:         cleanName,
		Stat:         stat,
		CurrentValue: current,
		TargetValue:  target,
	}
	g.recompute()

	return g, nil
}

// NewQualitativeGoal builds a task-based goal, initially not completed.
func NewQualitativeGoal(name string) (*Goal, error) {
	cleanName, err := validateGoalName(name)
	if err != nil {
		return nil, err
	}

	return &Goal{
		Name:          cleanName,
		IsQualitative: true,
	}, nil
}

// recompute re-derives Achieved from the cached current value and the target.
// A non-numeric value on either side, or a zero target, always reads as not
// achieved.
func (g *Goal) recompute() {
	if g.IsQualitative {
		return
	}

	cur, okCur := ParseNumeric(g.CurrentValue)
	tgt, okTgt := ParseNumeric(g.TargetValue)

	g.Achieved = okCur && okTgt && tgt != 0 && cur >= tgt
}

// Progress reports completion as a percentage in [0,100]. Qualitative goals
// have no numeric scale; callers should branch on IsQualitative first, and
// get 0 if they don't. Unparseable values and a zero target also yield 0.
func (g *Goal) Progress() int {
	if g.IsQualitative {
		return 0
	}

	cur, okCur := ParseNumeric(g.CurrentValue)
	tgt, okTgt := ParseNumeric(g.TargetValue)
	if !okCur || !okTgt || tgt == 0 {
		return 0
	}

	p := int(math.Round(math.Min(cur/tgt, 1) * 100))
	if p < 0 {
		return 0
	}
	return p
}

// Toggle flips a task-based goal between done and not done. Completed is
// kept equal to Achieved; toggling twice restores the original state.
func (g *Goal) Toggle() error {
	if !g.IsQualitative {
		return ErrGoalNotQualitative
	}

	g.Achieved = !g.Achieved
	g.Completed = g.Achieved
	return nil
}

// clone returns an independent copy, so view-level filtering and snapshot
// handling never alias stored goals.
func (g *Goal) clone() *Goal {
	cp := *g
	return &cp
}
