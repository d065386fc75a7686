package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCategoryNameEmpty    = errors.New("category name cannot be empty")
	ErrCategoryNameTooLong  = errors.New("category name is too long (max 100 chars)")
	ErrCategoryInvalidOwner = errors.New("invalid owner id")
	ErrStatNameEmpty        = errors.New("stat name cannot be empty")
	ErrStatNotFound         = errors.New("stat not found")
	ErrStatAlreadyExists    = errors.New("a stat with that name already exists")
	ErrGoalNotFound         = errors.New("goal not found")
	ErrGoalAlreadyExists    = errors.New("a goal with that name already exists")
)

const MaxCategoryNameLen = 100

// Category is the root aggregate of the tracker: a named grouping of
// string-valued stats and of goals, each with an explicit order list that
// imposes a stable display order over the otherwise unordered maps.
//
// The order lists are repaired by Reconcile so that each one holds exactly
// the key set of its companion map, keeping existing relative order.
type Category struct {
	ID         string            `json:"id"`
	OwnerID    string            `json:"owner_id"`
	Name       string            `json:"name"`
	Stats      map[string]string `json:"stats"`
	StatsOrder []string          `json:"stats_order"`
	Goals      map[string]*Goal  `json:"goals"`
	GoalsOrder []string          `json:"goals_order"`
	Version    int               `json:"version"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func NewCategory(ownerID, name string) (*Category, error) {
	if ownerID == "" {
		return nil, ErrCategoryInvalidOwner
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrCategoryNameEmpty
	}
	if len(trimmed) > MaxCategoryNameLen {
		return nil, ErrCategoryNameTooLong
	}

	now := time.Now().UTC()

	return &Category{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       trimmed,
		Stats:      make(map[string]string),
		StatsOrder: []string{},
		Goals:      make(map[string]*Goal),
		GoalsOrder: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (c *Category) touch() {
	c.UpdatedAt = time.Now().UTC()
}

// reconcileOrder rebuilds an order list against the given key set: duplicates
// and stale entries are dropped, surviving entries keep their relative order,
// and keys missing from the list are appended sorted so the result is
// deterministic regardless of map iteration order.
func reconcileOrder(order []string, keys []string) []string {
	inMap := make(map[string]bool, len(keys))
	for _, k := range keys {
		inMap[k] = true
	}

	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, name := range order {
		if inMap[name] && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	var missing []string
	for _, k := range keys {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)

	return append(out, missing...)
}

func (c *Category) statKeys() []string {
	keys := make([]string, 0, len(c.Stats))
	for k := range c.Stats {
		keys = append(keys, k)
	}
	return keys
}

func (c *Category) goalKeys() []string {
	keys := make([]string, 0, len(c.Goals))
	for k := range c.Goals {
		keys = append(keys, k)
	}
	return keys
}

// Reconcile repairs both order lists so each is an exact, duplicate-free
// permutation of its map's key set. Run on every load and after any
// mutation that could leave the lists stale.
func (c *Category) Reconcile() {
	if c.Stats == nil {
		c.Stats = make(map[string]string)
	}
	if c.Goals == nil {
		c.Goals = make(map[string]*Goal)
	}

	c.StatsOrder = reconcileOrder(c.StatsOrder, c.statKeys())
	c.GoalsOrder = reconcileOrder(c.GoalsOrder, c.goalKeys())
}

// OrderedStats returns the stat names in display order without mutating the
// stored order list. Names listed but absent from the map are skipped; names
// present in the map but missing from the list sort after all listed ones.
func (c *Category) OrderedStats() []string {
	return reconcileOrder(c.StatsOrder, c.statKeys())
}

// OrderedGoals is OrderedStats for the goals map.
func (c *Category) OrderedGoals() []string {
	return reconcileOrder(c.GoalsOrder, c.goalKeys())
}

// SetStat adds a new stat or updates an existing one's value, then pushes
// the value into every quantitative goal referencing it. A new stat is
// appended to the end of the display order.
func (c *Category) SetStat(name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrStatNameEmpty
	}

	if c.Stats == nil {
		c.Stats = make(map[string]string)
	}

	if _, exists := c.Stats[name]; !exists {
		c.StatsOrder = append(c.StatsOrder, name)
	}
	c.Stats[name] = value

	c.cascadeStatValue(name, value)
	c.touch()
	return nil
}

// cascadeStatValue refreshes the cached current value and achievement of
// every quantitative goal pointing at the stat. Goals referencing other
// stats are untouched; running it twice with the same value is a no-op.
func (c *Category) cascadeStatValue(name, value string) {
	for _, g := range c.Goals {
		if g.IsQualitative || g.Stat != name {
			continue
		}
		g.CurrentValue = value
		g.recompute()
	}
}

// RenameStat moves a stat to a new key, keeping its position in the display
// order and re-pointing every goal that referenced the old name. The cached
// goal values are deliberately not refreshed here: a rename commit that also
// changes the value calls SetStat afterwards.
func (c *Category) RenameStat(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrStatNameEmpty
	}
	if oldName == newName {
		return nil
	}

	value, ok := c.Stats[oldName]
	if !ok {
		return ErrStatNotFound
	}
	if _, exists := c.Stats[newName]; exists {
		return ErrStatAlreadyExists
	}

	delete(c.Stats, oldName)
	c.Stats[newName] = value

	replaced := false
	for i, n := range c.StatsOrder {
		if n == oldName {
			c.StatsOrder[i] = newName
			replaced = true
			break
		}
	}
	if !replaced {
		c.StatsOrder = append(c.StatsOrder, newName)
	}

	for _, g := range c.Goals {
		if !g.IsQualitative && g.Stat == oldName {
			g.Stat = newName
		}
	}

	c.touch()
	return nil
}

// RemoveStat deletes a stat and its single order entry. Goals referencing
// the stat are kept as-is: their reference now dangles and reads as "no
// data" (progress 0, not achieved) until re-pointed.
func (c *Category) RemoveStat(name string) error {
	if _, ok := c.Stats[name]; !ok {
		return ErrStatNotFound
	}

	delete(c.Stats, name)

	for i, n := range c.StatsOrder {
		if n == name {
			c.StatsOrder = append(c.StatsOrder[:i], c.StatsOrder[i+1:]...)
			break
		}
	}

	for _, g := range c.Goals {
		if !g.IsQualitative && g.Stat == name {
			g.recomputeDangling(c.Stats)
		}
	}

	c.touch()
	return nil
}

// recomputeDangling re-derives Achieved treating a missing referenced stat
// as no data.
func (g *Goal) recomputeDangling(stats map[string]string) {
	if g.IsQualitative {
		return
	}
	if _, ok := stats[g.Stat]; !ok {
		g.Achieved = false
		return
	}
	g.recompute()
}

// AddQuantitativeGoal creates a stat-linked goal, seeding its current value
// from the referenced stat ("0" when the stat is absent).
func (c *Category) AddQuantitativeGoal(name, stat, target string) (*Goal, error) {
	current := ""
	if c.Stats != nil {
		current = c.Stats[stat]
	}

	g, err := NewQuantitativeGoal(name, stat, current, target)
	if err != nil {
		return nil, err
	}

	if err := c.insertGoal(g); err != nil {
		return nil, err
	}
	return g, nil
}

// AddQualitativeGoal creates a task-based goal.
func (c *Category) AddQualitativeGoal(name string) (*Goal, error) {
	g, err := NewQualitativeGoal(name)
	if err != nil {
		return nil, err
	}

	if err := c.insertGoal(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (c *Category) insertGoal(g *Goal) error {
	if c.Goals == nil {
		c.Goals = make(map[string]*Goal)
	}
	if _, exists := c.Goals[g.Name]; exists {
		return ErrGoalAlreadyExists
	}

	c.Goals[g.Name] = g
	c.GoalsOrder = append(c.GoalsOrder, g.Name)
	c.touch()
	return nil
}

// RenameGoal moves a goal to a new key, preserving its display-order index.
func (c *Category) RenameGoal(oldName, newName string) error {
	cleanName, err := validateGoalName(newName)
	if err != nil {
		return err
	}
	if oldName == cleanName {
		return nil
	}

	g, ok := c.Goals[oldName]
	if !ok {
		return ErrGoalNotFound
	}
	if _, exists := c.Goals[cleanName]; exists {
		return ErrGoalAlreadyExists
	}

	delete(c.Goals, oldName)
	g.Name = cleanName
	c.Goals[cleanName] = g

	replaced := false
	for i, n := range c.GoalsOrder {
		if n == oldName {
			c.GoalsOrder[i] = cleanName
			replaced = true
			break
		}
	}
	if !replaced {
		c.GoalsOrder = append(c.GoalsOrder, cleanName)
	}

	c.touch()
	return nil
}

// RetargetGoal changes a quantitative goal's target threshold and re-derives
// its achievement.
func (c *Category) RetargetGoal(name, target string) error {
	g, ok := c.Goals[name]
	if !ok {
		return ErrGoalNotFound
	}
	if g.IsQualitative {
		return ErrGoalStatRequired
	}
	if strings.TrimSpace(target) == "" {
		return ErrGoalTargetRequired
	}

	g.TargetValue = target
	g.recompute()
	c.touch()
	return nil
}

// RepointGoal re-links a quantitative goal to a different stat, refreshing
// its cached current value from that stat ("0" when absent).
func (c *Category) RepointGoal(name, stat string) error {
	g, ok := c.Goals[name]
	if !ok {
		return ErrGoalNotFound
	}
	if g.IsQualitative {
		return ErrGoalStatRequired
	}
	if strings.TrimSpace(stat) == "" {
		return ErrGoalStatRequired
	}

	current := c.Stats[stat]
	if current == "" {
		current = "0"
	}

	g.Stat = stat
	g.CurrentValue = current
	g.recompute()
	c.touch()
	return nil
}

// ToggleGoal flips a task-based goal's completion.
func (c *Category) ToggleGoal(name string) (*Goal, error) {
	g, ok := c.Goals[name]
	if !ok {
		return nil, ErrGoalNotFound
	}
	if err := g.Toggle(); err != nil {
		return nil, err
	}
	c.touch()
	return g, nil
}

// RemoveGoal deletes a goal and its single order entry.
func (c *Category) RemoveGoal(name string) error {
	if _, ok := c.Goals[name]; !ok {
		return ErrGoalNotFound
	}

	delete(c.Goals, name)

	for i, n := range c.GoalsOrder {
		if n == name {
			c.GoalsOrder = append(c.GoalsOrder[:i], c.GoalsOrder[i+1:]...)
			break
		}
	}

	c.touch()
	return nil
}

// GoalProgress reports a goal's progress in category context. A quantitative
// goal whose referenced stat no longer exists in the stats map reads as 0,
// regardless of what its cached current value still parses to.
func (c *Category) GoalProgress(name string) (int, error) {
	g, ok := c.Goals[name]
	if !ok {
		return 0, ErrGoalNotFound
	}

	if !g.IsQualitative {
		if _, ok := c.Stats[g.Stat]; !ok {
			return 0, nil
		}
	}

	return g.Progress(), nil
}

// RecomputeAchievements re-derives Achieved for every quantitative goal,
// treating dangling stat references as no data. Used by the background
// reconciler after stat writes.
func (c *Category) RecomputeAchievements() {
	for _, g := range c.Goals {
		g.recomputeDangling(c.Stats)
	}
}

// VisibleGoals returns goals in display order, optionally hiding achieved
// ones. Purely presentational: the returned goals are copies and the stored
// aggregate is never mutated.
func (c *Category) VisibleGoals(hideCompleted bool) []*Goal {
	names := c.OrderedGoals()
	out := make([]*Goal, 0, len(names))
	for _, name := range names {
		g := c.Goals[name]
		if g == nil {
			continue
		}
		if hideCompleted && g.Achieved {
			continue
		}
		out = append(out, g.clone())
	}
	return out
}

// Clone deep-copies the aggregate. Snapshot consumers get independent state.
func (c *Category) Clone() *Category {
	cp := *c

	cp.Stats = make(map[string]string, len(c.Stats))
	for k, v := range c.Stats {
		cp.Stats[k] = v
	}

	cp.Goals = make(map[string]*Goal, len(c.Goals))
	for k, g := range c.Goals {
		cp.Goals[k] = g.clone()
	}

	// Length-preserving copies: reconciled aggregates hold empty, non-nil
	// order lists, and a clone must compare DeepEqual to its source.
	cp.StatsOrder = make([]string, len(c.StatsOrder))
	copy(cp.StatsOrder, c.StatsOrder)
	cp.GoalsOrder = make([]string, len(c.GoalsOrder))
	copy(cp.GoalsOrder, c.GoalsOrder)

	return &cp
}
