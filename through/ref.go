package through

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Identifier is the set of key types an association can be keyed by.
// Host, target and join rows of one association share a single ID type.
type Identifier interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~string
}

// JoinKey holds the primary key and both foreign keys of one join row.
type JoinKey[ID Identifier] struct {
	ID     ID
	Host   ID
	Target ID
}

// Ref refers to a target either by identifier or by entity.
// Build one with IDRef or EntityRef.
type Ref[T any, ID Identifier] struct {
	id       ID
	entity   *T
	byEntity bool
}

// IDRef refers to a target by its identifier.
func IDRef[T any, ID Identifier](id ID) Ref[T, ID] {
	return Ref[T, ID]{id: id}
}

// EntityRef refers to a target by entity; its identifier is read through
// the association's Mapping.TargetID.
func EntityRef[T any, ID Identifier](t *T) Ref[T, ID] {
	return Ref[T, ID]{entity: t, byEntity: true}
}

// IDRefs wraps every id in an IDRef.
func IDRefs[T any, ID Identifier](ids []ID) []Ref[T, ID] {
	refs := make([]Ref[T, ID], len(ids))
	for i, id := range ids {
		refs[i] = IDRef[T](id)
	}
	return refs
}

// EntityRefs wraps every element of targets in an EntityRef.
func EntityRefs[T any, ID Identifier](targets []T) []Ref[T, ID] {
	refs := make([]Ref[T, ID], len(targets))
	for i := range targets {
		refs[i] = EntityRef[T, ID](&targets[i])
	}
	return refs
}

// IsEntity reports whether r was built with EntityRef.
func (r Ref[T, ID]) IsEntity() bool { return r.byEntity }

// Normalize converts refs into a canonical identifier sequence.
// Empty string identifiers are dropped; order and duplicates are kept.
func Normalize[T any, ID Identifier](refs []Ref[T, ID], targetID func(*T) ID) ([]ID, error) {
	ids := make([]ID, 0, len(refs))
	for i, r := range refs {
		if r.byEntity {
			if r.entity == nil {
				return nil, fmt.Errorf("%w at index %d", ErrNilReference, i)
			}
			ids = append(ids, targetID(r.entity))
			continue
		}
		if isBlank(r.id) {
			continue
		}
		ids = append(ids, r.id)
	}
	return ids, nil
}

// NormalizeLoose converts untyped input into identifiers. nil items and
// empty strings are dropped, then the first remaining item decides how the
// whole batch is read:
//
//   - a string: every item is an identifier in string form
//   - an integer: every item is coerced to an integer identifier
//   - anything else: every item is a T or *T whose id is taken
//
// Mixed batches follow the first item. Strings and integers convert into
// each other, but an entity in an id batch or an id in an entity batch
// fails with ErrUnconvertible instead of being passed through unchecked.
func NormalizeLoose[T any, ID Identifier](items []any, targetID func(*T) ID) ([]ID, error) {
	retained := make([]any, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if rv := reflect.ValueOf(item); rv.Kind() == reflect.String && rv.String() == "" {
			continue
		}
		retained = append(retained, item)
	}
	if len(retained) == 0 {
		return []ID{}, nil
	}

	var convert func(item any) (ID, error)
	switch first := reflect.ValueOf(retained[0]); {
	case first.Kind() == reflect.String:
		convert = idFromStringItem[ID]
	case isIntegerKind(first.Kind()):
		convert = idFromIntegerItem[ID]
	default:
		convert = func(item any) (ID, error) {
			switch v := item.(type) {
			case *T:
				if v == nil {
					return zeroID[ID](), ErrNilReference
				}
				return targetID(v), nil
			case T:
				return targetID(&v), nil
			}
			return zeroID[ID](), fmt.Errorf("%w: %T is not a target entity", ErrUnconvertible, item)
		}
	}

	ids := make([]ID, len(retained))
	for i, item := range retained {
		id, err := convert(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func idFromStringItem[ID Identifier](item any) (ID, error) {
	rv := reflect.ValueOf(item)
	switch {
	case rv.Kind() == reflect.String:
		return parseID[ID](rv.String())
	case isIntegerKind(rv.Kind()):
		return idFromIntegerItem[ID](item)
	}
	return zeroID[ID](), fmt.Errorf("%w: %T in a string batch", ErrUnconvertible, item)
}

func idFromIntegerItem[ID Identifier](item any) (ID, error) {
	rv := reflect.ValueOf(item)
	var id ID
	out := reflect.ValueOf(&id).Elem()

	switch {
	case rv.Kind() == reflect.String:
		s := strings.TrimSpace(rv.String())
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			if _, uerr := strconv.ParseUint(s, 10, 64); uerr != nil {
				return id, fmt.Errorf("%w: %q is not an integer", ErrUnconvertible, s)
			}
		}
		return parseID[ID](s)
	case isSignedKind(rv.Kind()):
		n := rv.Int()
		switch {
		case out.Kind() == reflect.String:
			out.SetString(strconv.FormatInt(n, 10))
		case isSignedKind(out.Kind()):
			if out.OverflowInt(n) {
				return id, fmt.Errorf("%w: %d overflows %s", ErrUnconvertible, n, out.Type())
			}
			out.SetInt(n)
		default:
			if n < 0 || out.OverflowUint(uint64(n)) {
				return id, fmt.Errorf("%w: %d overflows %s", ErrUnconvertible, n, out.Type())
			}
			out.SetUint(uint64(n))
		}
		return id, nil
	case isIntegerKind(rv.Kind()):
		n := rv.Uint()
		switch {
		case out.Kind() == reflect.String:
			out.SetString(strconv.FormatUint(n, 10))
		case isSignedKind(out.Kind()):
			if n > 1<<63-1 || out.OverflowInt(int64(n)) {
				return id, fmt.Errorf("%w: %d overflows %s", ErrUnconvertible, n, out.Type())
			}
			out.SetInt(int64(n))
		default:
			if out.OverflowUint(n) {
				return id, fmt.Errorf("%w: %d overflows %s", ErrUnconvertible, n, out.Type())
			}
			out.SetUint(n)
		}
		return id, nil
	}
	return id, fmt.Errorf("%w: %T in an integer batch", ErrUnconvertible, item)
}

// parseID reads an identifier from its string form.
func parseID[ID Identifier](s string) (ID, error) {
	var id ID
	out := reflect.ValueOf(&id).Elem()
	switch {
	case out.Kind() == reflect.String:
		out.SetString(s)
	case isSignedKind(out.Kind()):
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, out.Type().Bits())
		if err != nil {
			return id, fmt.Errorf("%w: %q: %w", ErrUnconvertible, s, err)
		}
		out.SetInt(n)
	default:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, out.Type().Bits())
		if err != nil {
			return id, fmt.Errorf("%w: %q: %w", ErrUnconvertible, s, err)
		}
		out.SetUint(n)
	}
	return id, nil
}

func isBlank[ID Identifier](id ID) bool {
	rv := reflect.ValueOf(id)
	return rv.Kind() == reflect.String && rv.String() == ""
}

func zeroID[ID Identifier]() ID {
	var zero ID
	return zero
}

func isSignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return isSignedKind(k)
	}
}
