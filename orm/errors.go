package orm

import "errors"

var (
	// ErrNotFound is returned when a query expects exactly one row but finds none.
	ErrNotFound = errors.New("orm: not found")

	// ErrUnboundedDelete is returned by Delete when no WHERE clause is set.
	ErrUnboundedDelete = errors.New("orm: Delete without WHERE clause is not allowed")

	// ErrNoTransactions is returned by Transact for a Querier that can
	// neither begin a transaction nor is already inside one.
	ErrNoTransactions = errors.New("orm: querier does not support transactions")
)
