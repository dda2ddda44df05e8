// Package through keeps many-to-many associations in sync through an
// explicit join table.
//
// An Association is declared once per (host, name) in a Registry and bound
// to a JoinStore and a TargetFinder. It reads the related collection by
// loading the host's join rows and then their targets, and it replaces the
// collection by diffing target ids and issuing only the join-row deletes
// and inserts that are needed.
package through

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Option configures an Association.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for sync and lookup diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Association is the accessor set of one declared association between host
// type H and target type T through join type J. It holds no per-host state
// and may be shared between goroutines.
type Association[H, T, J any, ID Identifier] struct {
	desc    Descriptor
	joins   JoinStore[J, ID]
	targets TargetFinder[T, ID]
	m       Mapping[H, T, J, ID]
	logger  *zap.Logger
}

// New builds an Association for d.
func New[H, T, J any, ID Identifier](
	d Descriptor,
	joins JoinStore[J, ID],
	targets TargetFinder[T, ID],
	m Mapping[H, T, J, ID],
	opts ...Option,
) (*Association[H, T, J, ID], error) {
	if d.Join == "" || d.HostForeignKey == "" || d.TargetForeignKey == "" {
		return nil, fmt.Errorf("%w: descriptor %q is incomplete", ErrConfiguration, d.Name)
	}
	if joins == nil || targets == nil {
		return nil, fmt.Errorf("%w: %s needs a join store and a target finder", ErrConfiguration, d)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Association[H, T, J, ID]{
		desc:    d,
		joins:   joins,
		targets: targets,
		m:       m,
		logger:  o.logger.With(zap.String("association", d.String())),
	}, nil
}

// Bind builds an Association for an association already declared in r.
func Bind[H, T, J any, ID Identifier](
	r *Registry,
	host, name string,
	joins JoinStore[J, ID],
	targets TargetFinder[T, ID],
	m Mapping[H, T, J, ID],
	opts ...Option,
) (*Association[H, T, J, ID], error) {
	d, ok := r.Lookup(host, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, host, name)
	}
	return New(d, joins, targets, m, opts...)
}

// Register declares decl in r and binds it. When it fails, nothing is
// declared.
func Register[H, T, J any, ID Identifier](
	r *Registry,
	decl Declaration,
	joins JoinStore[J, ID],
	targets TargetFinder[T, ID],
	m Mapping[H, T, J, ID],
	opts ...Option,
) (*Association[H, T, J, ID], error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	if joins == nil || targets == nil {
		return nil, fmt.Errorf("%w: %s.%s needs a join store and a target finder", ErrConfiguration, decl.Host, decl.Name)
	}
	d, err := r.Declare(decl)
	if err != nil {
		return nil, err
	}
	return New(d, joins, targets, m, opts...)
}

// Descriptor returns the association's metadata.
func (a *Association[H, T, J, ID]) Descriptor() Descriptor { return a.desc }

// Collection returns the targets related to h, in join-row order.
// Duplicate join rows yield duplicate targets. Join rows whose target no
// longer exists are skipped.
func (a *Association[H, T, J, ID]) Collection(ctx context.Context, h *H) ([]T, error) {
	hostID := a.m.HostID(h)
	joins, err := a.loadJoins(ctx, a.joins, hostID)
	if err != nil {
		return nil, err
	}
	if len(joins) == 0 {
		return []T{}, nil
	}

	targetIDs := a.targetIDs(joins)
	found, err := a.targets.FindTargets(ctx, a.desc, unique(targetIDs))
	if err != nil {
		return nil, fmt.Errorf("through: %s: find targets: %w", a.desc, err)
	}
	byID := make(map[ID]int, len(found))
	for i := range found {
		byID[a.m.TargetID(&found[i])] = i
	}

	out := make([]T, 0, len(targetIDs))
	var missing []ID
	for _, id := range targetIDs {
		i, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, found[i])
	}
	if len(missing) > 0 {
		a.logger.Debug("join rows reference missing targets",
			zap.Any("host", hostID), zap.Any("targets", missing))
	}
	return out, nil
}

// IDs returns the ids of Collection(h), in the same order.
func (a *Association[H, T, J, ID]) IDs(ctx context.Context, h *H) ([]ID, error) {
	targets, err := a.Collection(ctx, h)
	if err != nil {
		return nil, err
	}
	ids := make([]ID, len(targets))
	for i := range targets {
		ids[i] = a.m.TargetID(&targets[i])
	}
	return ids, nil
}

// Size returns len(Collection(h)).
func (a *Association[H, T, J, ID]) Size(ctx context.Context, h *H) (int, error) {
	targets, err := a.Collection(ctx, h)
	if err != nil {
		return 0, err
	}
	return len(targets), nil
}

// Empty reports whether h has no related targets.
func (a *Association[H, T, J, ID]) Empty(ctx context.Context, h *H) (bool, error) {
	n, err := a.Size(ctx, h)
	return n == 0, err
}

// loadJoins reads the host's join rows straight from the store.
func (a *Association[H, T, J, ID]) loadJoins(ctx context.Context, store JoinStore[J, ID], hostID ID) ([]J, error) {
	ids, err := store.JoinIDs(ctx, a.desc, hostID)
	if err != nil {
		return nil, fmt.Errorf("through: %s: load join ids: %w", a.desc, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	joins, err := store.FindJoins(ctx, a.desc, ids)
	if err != nil {
		return nil, fmt.Errorf("through: %s: find joins: %w", a.desc, err)
	}
	return joins, nil
}

func errMissingAccessor(name string) error {
	return fmt.Errorf("%w: Mapping.%s is required", ErrConfiguration, name)
}

