package through

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SyncOption configures a single Replace, ReplaceIDs, ReplaceLoose or
// Append call.
type SyncOption func(*syncOptions)

type syncOptions struct {
	atomic bool
	dedupe bool
}

// Atomic runs the whole sync inside Transactor.InTransaction so that a
// failed insert also undoes the deletes before it. The join store must
// implement Transactor.
func Atomic() SyncOption {
	return func(o *syncOptions) { o.atomic = true }
}

// Deduplicate also deletes surplus join rows for targets that stay related,
// leaving one row per (host, target) pair.
func Deduplicate() SyncOption {
	return func(o *syncOptions) { o.dedupe = true }
}

// Replace makes refs the complete set of targets related to h.
//
// Current target ids are read from the join rows, diffed against refs, and
// only the difference is written: matching join rows are deleted first,
// then one join row is created per added target. When nothing differs no
// write is issued. Without Atomic a failure part way through is returned
// as is and the writes already made stay in place.
func (a *Association[H, T, J, ID]) Replace(ctx context.Context, h *H, refs []Ref[T, ID], opts ...SyncOption) error {
	desired, err := Normalize(refs, a.m.TargetID)
	if err != nil {
		return fmt.Errorf("through: %s: %w", a.desc, err)
	}
	return a.sync(ctx, a.m.HostID(h), desired, false, opts)
}

// ReplaceIDs is Replace with plain target ids.
func (a *Association[H, T, J, ID]) ReplaceIDs(ctx context.Context, h *H, ids []ID, opts ...SyncOption) error {
	return a.Replace(ctx, h, IDRefs[T](ids), opts...)
}

// ReplaceLoose is Replace for untyped input, read with NormalizeLoose.
func (a *Association[H, T, J, ID]) ReplaceLoose(ctx context.Context, h *H, items []any, opts ...SyncOption) error {
	desired, err := NormalizeLoose(items, a.m.TargetID)
	if err != nil {
		return fmt.Errorf("through: %s: %w", a.desc, err)
	}
	return a.sync(ctx, a.m.HostID(h), desired, false, opts)
}

// Append relates the given targets to h, keeping the existing ones.
// Targets that are already related are left alone.
func (a *Association[H, T, J, ID]) Append(ctx context.Context, h *H, refs []Ref[T, ID], opts ...SyncOption) error {
	desired, err := Normalize(refs, a.m.TargetID)
	if err != nil {
		return fmt.Errorf("through: %s: %w", a.desc, err)
	}
	return a.sync(ctx, a.m.HostID(h), desired, true, opts)
}

// Plan returns the Diff that Replace(ctx, h, refs) would apply, without
// writing anything.
func (a *Association[H, T, J, ID]) Plan(ctx context.Context, h *H, refs []Ref[T, ID]) (Diff[ID], error) {
	desired, err := Normalize(refs, a.m.TargetID)
	if err != nil {
		return Diff[ID]{}, fmt.Errorf("through: %s: %w", a.desc, err)
	}
	joins, err := a.loadJoins(ctx, a.joins, a.m.HostID(h))
	if err != nil {
		return Diff[ID]{}, err
	}
	return ComputeDiff(a.targetIDs(joins), desired), nil
}

func (a *Association[H, T, J, ID]) sync(ctx context.Context, hostID ID, desired []ID, additive bool, opts []SyncOption) error {
	var o syncOptions
	for _, opt := range opts {
		opt(&o)
	}

	run := func(store JoinStore[J, ID]) error {
		return a.apply(ctx, store, hostID, desired, additive, o)
	}
	if !o.atomic {
		return run(a.joins)
	}
	tx, ok := a.joins.(Transactor[J, ID])
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransactionUnsupported, a.desc)
	}
	return tx.InTransaction(ctx, run) //nolint:wrapcheck // errors from run are already wrapped
}

func (a *Association[H, T, J, ID]) apply(
	ctx context.Context, store JoinStore[J, ID], hostID ID, desired []ID, additive bool, o syncOptions,
) error {
	joins, err := a.loadJoins(ctx, store, hostID)
	if err != nil {
		return err
	}

	diff := ComputeDiff(a.targetIDs(joins), desired)
	if additive {
		diff.Removed = nil
	}
	var surplus []J
	if o.dedupe {
		surplus = a.surplusJoins(joins, diff.Removed)
	}
	if diff.Empty() && len(surplus) == 0 {
		a.logger.Debug("association already in sync", zap.Any("host", hostID))
		return nil
	}

	doomed := surplus
	if len(diff.Removed) > 0 {
		rows, err := store.FindJoinsByKeys(ctx, a.desc, hostID, diff.Removed)
		if err != nil {
			return fmt.Errorf("through: %s: find joins to remove: %w", a.desc, err)
		}
		doomed = append(doomed, rows...)
	}
	if len(doomed) > 0 {
		if err := store.DeleteJoins(ctx, a.desc, doomed); err != nil {
			return fmt.Errorf("through: %s: delete joins: %w", a.desc, err)
		}
	}

	for _, id := range diff.Added {
		j := a.m.NewJoin(hostID, id)
		if err := store.CreateJoin(ctx, a.desc, &j); err != nil {
			return fmt.Errorf("through: %s: add target %v to host %v: %w", a.desc, id, hostID, err)
		}
	}

	a.logger.Debug("association synced",
		zap.Any("host", hostID),
		zap.Any("added", diff.Added),
		zap.Any("removed", diff.Removed),
		zap.Int("duplicates_removed", len(surplus)),
	)
	return nil
}

func (a *Association[H, T, J, ID]) targetIDs(joins []J) []ID {
	ids := make([]ID, len(joins))
	for i := range joins {
		ids[i] = a.m.JoinKeys(&joins[i]).Target
	}
	return ids
}

// surplusJoins returns every join row after the first for each target that
// is not being removed anyway.
func (a *Association[H, T, J, ID]) surplusJoins(joins []J, removed []ID) []J {
	skip := toSet(removed)
	seen := make(map[ID]struct{}, len(joins))
	var out []J
	for i := range joins {
		target := a.m.JoinKeys(&joins[i]).Target
		if _, ok := skip[target]; ok {
			continue
		}
		if _, dup := seen[target]; dup {
			out = append(out, joins[i])
			continue
		}
		seen[target] = struct{}{}
	}
	return out
}
