package through

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when an association declaration is
	// incomplete, e.g. when no join type is given.
	ErrConfiguration = errors.New("through: invalid association configuration")

	// ErrDuplicateAssociation is returned when a host type already has an
	// association with the same name. It wraps ErrConfiguration.
	ErrDuplicateAssociation = fmt.Errorf("%w: duplicate association", ErrConfiguration)

	// ErrRegistrySealed is returned when declaring into a sealed Registry.
	ErrRegistrySealed = errors.New("through: registry is sealed")

	// ErrUnknownAssociation is returned by Bind when no descriptor matches.
	ErrUnknownAssociation = errors.New("through: unknown association")

	// ErrNilReference is returned when an entity reference points at nothing.
	ErrNilReference = errors.New("through: nil entity reference")

	// ErrUnconvertible is returned by NormalizeLoose when an item cannot be
	// read under the interpretation chosen for its batch.
	ErrUnconvertible = errors.New("through: unconvertible identifier")

	// ErrTransactionUnsupported is returned for Atomic syncs against a store
	// that does not implement Transactor.
	ErrTransactionUnsupported = errors.New("through: store does not support transactions")
)
