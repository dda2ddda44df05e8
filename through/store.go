package through

import "context"

// JoinStore reads and writes the join rows of an association.
// Missing ids are absent from results, never an error.
type JoinStore[J any, ID Identifier] interface {
	// JoinIDs returns the primary keys of the join rows whose host foreign
	// key equals hostID.
	JoinIDs(ctx context.Context, d Descriptor, hostID ID) ([]ID, error)

	// FindJoins loads join rows by primary key.
	FindJoins(ctx context.Context, d Descriptor, ids []ID) ([]J, error)

	// FindJoinsByKeys loads the join rows for hostID whose target foreign
	// key is one of targetIDs.
	FindJoinsByKeys(ctx context.Context, d Descriptor, hostID ID, targetIDs []ID) ([]J, error)

	// CreateJoin persists a new join row and sets its primary key.
	CreateJoin(ctx context.Context, d Descriptor, j *J) error

	// DeleteJoins removes the given join rows.
	DeleteJoins(ctx context.Context, d Descriptor, joins []J) error
}

// TargetFinder loads target entities by primary key.
type TargetFinder[T any, ID Identifier] interface {
	FindTargets(ctx context.Context, d Descriptor, ids []ID) ([]T, error)
}

// Transactor is implemented by join stores that can run a group of calls
// atomically. fn receives a store bound to the transaction; returning an
// error from fn rolls it back.
type Transactor[J any, ID Identifier] interface {
	InTransaction(ctx context.Context, fn func(JoinStore[J, ID]) error) error
}

// JoinKeysFunc extracts the keys of a join row.
type JoinKeysFunc[J any, ID Identifier] func(j *J) JoinKey[ID]

// Mapping tells an Association how to read keys from the caller's types
// and how to build a new join row.
type Mapping[H, T, J any, ID Identifier] struct {
	HostID   func(h *H) ID
	TargetID func(t *T) ID
	JoinKeys JoinKeysFunc[J, ID]
	NewJoin  func(hostID, targetID ID) J
}

func (m Mapping[H, T, J, ID]) validate() error {
	switch {
	case m.HostID == nil:
		return errMissingAccessor("HostID")
	case m.TargetID == nil:
		return errMissingAccessor("TargetID")
	case m.JoinKeys == nil:
		return errMissingAccessor("JoinKeys")
	case m.NewJoin == nil:
		return errMissingAccessor("NewJoin")
	}
	return nil
}
