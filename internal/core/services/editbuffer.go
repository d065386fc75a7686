package services

import (
	"context"
	"sync"

	"github.com/statline/statline-engine/internal/core/domain"
)

// FieldKind names the editable fields of a category record.
type FieldKind string

const (
	FieldStatName   FieldKind = "stat_name"
	FieldStatValue  FieldKind = "stat_value"
	FieldGoalName   FieldKind = "goal_name"
	FieldGoalTarget FieldKind = "goal_target"
	FieldGoalStat   FieldKind = "goal_stat"
)

// FieldKey addresses one independent edit state machine: a single editable
// field of a single stat or goal within a single category.
type FieldKey struct {
	CategoryID string
	Kind       FieldKind
	Key        string
}

// Committer is the slice of CategoryService the buffer needs to apply a
// commit. Stat commits are mutually exclusive per field group: one commit
// either renames (staged name differs from the key) or updates the value.
type Committer interface {
	SetStat(ctx context.Context, id, ownerID, name, value string) (*domain.Category, error)
	RenameStat(ctx context.Context, id, ownerID, oldName, newName string, value *string) (*domain.Category, error)
	UpdateGoal(ctx context.Context, input UpdateGoalInput) (*domain.Goal, error)
}

type fieldState struct {
	canonical string
	staged    string
}

// EditBuffer stages in-progress field edits so that typing never issues a
// write. A field is Clean while untouched or staged back to its canonical
// value, Dirty once it differs, and returns to Clean only after a commit is
// accepted. A failed commit leaves the field Dirty for retry; an inbound
// snapshot that moved the canonical value discards the staged one, because a
// later snapshot always wins over local optimism.
type EditBuffer struct {
	mu        sync.Mutex
	committer Committer
	fields    map[FieldKey]*fieldState
}

func NewEditBuffer(committer Committer) *EditBuffer {
	return &EditBuffer{
		committer: committer,
		fields:    make(map[FieldKey]*fieldState),
	}
}

// Stage records a keystroke-level edit. canonical is the field's value in
// the last snapshot the caller rendered from. Staging the canonical value
// back transitions the field to Clean.
func (b *EditBuffer) Stage(key FieldKey, canonical, typed string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if typed == canonical {
		delete(b.fields, key)
		return
	}

	if st, ok := b.fields[key]; ok {
		st.staged = typed
		return
	}
	b.fields[key] = &fieldState{canonical: canonical, staged: typed}
}

// Staged returns the staged value for a Dirty field.
func (b *EditBuffer) Staged(key FieldKey) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.fields[key]
	if !ok {
		return "", false
	}
	return st.staged, true
}

func (b *EditBuffer) IsDirty(key FieldKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.fields[key]
	return ok
}

func (b *EditBuffer) Discard(key FieldKey) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.fields, key)
}

// Commit applies the staged edits of the field group key belongs to. A
// Clean field commits as a no-op. On success the group's fields return to
// Clean; on failure they stay Dirty and the error is returned.
func (b *EditBuffer) Commit(ctx context.Context, ownerID string, key FieldKey) error {
	switch key.Kind {
	case FieldStatName, FieldStatValue:
		return b.commitStat(ctx, ownerID, key.CategoryID, key.Key)
	case FieldGoalName, FieldGoalTarget, FieldGoalStat:
		return b.commitGoal(ctx, ownerID, key.CategoryID, key.Key)
	default:
		return nil
	}
}

func (b *EditBuffer) take(key FieldKey) (string, bool) {
	st, ok := b.fields[key]
	if !ok {
		return "", false
	}
	return st.staged, true
}

// commitStat resolves the rename-vs-value-update disambiguation for one
// stat: a staged name differing from the key makes the whole commit a
// structural rename (carrying any staged value along); otherwise only the
// value is written. The two paths are mutually exclusive.
func (b *EditBuffer) commitStat(ctx context.Context, ownerID, categoryID, statKey string) error {
	nameKey := FieldKey{CategoryID: categoryID, Kind: FieldStatName, Key: statKey}
	valueKey := FieldKey{CategoryID: categoryID, Kind: FieldStatValue, Key: statKey}

	b.mu.Lock()
	stagedName, hasName := b.take(nameKey)
	stagedValue, hasValue := b.take(valueKey)
	b.mu.Unlock()

	if !hasName && !hasValue {
		return nil
	}

	var err error
	switch {
	case hasName && stagedName != statKey:
		// A staged value rides along even when it is a clear; nil means
		// the value field was never touched.
		var value *string
		if hasValue {
			value = &stagedValue
		}
		_, err = b.committer.RenameStat(ctx, categoryID, ownerID, statKey, stagedName, value)
	case hasValue:
		_, err = b.committer.SetStat(ctx, categoryID, ownerID, statKey, stagedValue)
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	delete(b.fields, nameKey)
	delete(b.fields, valueKey)
	b.mu.Unlock()
	return nil
}

// commitGoal applies every staged field of one goal as a single commit,
// renaming last so the other edits land under the original key.
func (b *EditBuffer) commitGoal(ctx context.Context, ownerID, categoryID, goalKey string) error {
	nameKey := FieldKey{CategoryID: categoryID, Kind: FieldGoalName, Key: goalKey}
	targetKey := FieldKey{CategoryID: categoryID, Kind: FieldGoalTarget, Key: goalKey}
	statKey := FieldKey{CategoryID: categoryID, Kind: FieldGoalStat, Key: goalKey}

	b.mu.Lock()
	stagedName, hasName := b.take(nameKey)
	stagedTarget, hasTarget := b.take(targetKey)
	stagedStat, hasStat := b.take(statKey)
	b.mu.Unlock()

	if !hasName && !hasTarget && !hasStat {
		return nil
	}

	input := UpdateGoalInput{
		CategoryID: categoryID,
		OwnerID:    ownerID,
		Name:       goalKey,
	}
	if hasTarget {
		input.Target = &stagedTarget
	}
	if hasStat {
		input.Stat = &stagedStat
	}
	if hasName && stagedName != goalKey {
		input.NewName = stagedName
	}

	if _, err := b.committer.UpdateGoal(ctx, input); err != nil {
		return err
	}

	b.mu.Lock()
	delete(b.fields, nameKey)
	delete(b.fields, targetKey)
	delete(b.fields, statKey)
	b.mu.Unlock()
	return nil
}

// ReconcileSnapshot folds a fresh collection snapshot into the buffer.
// Staged edits survive only while their field still exists and its
// canonical value is the one they were staged against; anything the remote
// side moved or deleted is dropped, even if a local write is in flight.
func (b *EditBuffer) ReconcileSnapshot(cats []*domain.Category) {
	byID := make(map[string]*domain.Category, len(cats))
	for _, cat := range cats {
		byID[cat.ID] = cat
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for key, st := range b.fields {
		cat, ok := byID[key.CategoryID]
		if !ok {
			delete(b.fields, key)
			continue
		}

		canonical, ok := canonicalFieldValue(cat, key)
		if !ok || canonical != st.canonical {
			delete(b.fields, key)
		}
	}
}

func canonicalFieldValue(cat *domain.Category, key FieldKey) (string, bool) {
	switch key.Kind {
	case FieldStatName:
		_, ok := cat.Stats[key.Key]
		return key.Key, ok
	case FieldStatValue:
		v, ok := cat.Stats[key.Key]
		return v, ok
	case FieldGoalName:
		_, ok := cat.Goals[key.Key]
		return key.Key, ok
	case FieldGoalTarget:
		g, ok := cat.Goals[key.Key]
		if !ok {
			return "", false
		}
		return g.TargetValue, true
	case FieldGoalStat:
		g, ok := cat.Goals[key.Key]
		if !ok {
			return "", false
		}
		return g.Stat, true
	}
	return "", false
}
