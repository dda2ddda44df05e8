// Package redisstore keeps join rows in Redis.
//
// Every join table uses three keys under a common prefix:
//
//	<prefix><join>:rows          hash, join primary key -> JSON row
//	<prefix><join>:host:<host>   sorted set of join primary keys, scored by creation order
//	<prefix><join>:seq           creation counter
//
// The store does not implement through.Transactor, so Atomic syncs are
// rejected with through.ErrTransactionUnsupported.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mickamy/manythrough/through"
)

// DefaultPrefix is prepended to every key unless WithPrefix says otherwise.
const DefaultPrefix = "manythrough:"

// Joins is a through.JoinStore backed by Redis.
type Joins[J any, ID through.Identifier] struct {
	rdb    redis.UniversalClient
	keys   through.JoinKeysFunc[J, ID]
	setID  func(j *J, id ID)
	nextID func(seq int64) ID
	prefix string
}

// Option configures Joins.
type Option func(*options)

type options struct {
	prefix string
}

// WithPrefix namespaces every key written by the store.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// NewClient connects to a single Redis server.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewJoins returns a join store writing through rdb. nextID derives the
// primary key of a new row from the table's creation counter; see
// Sequence and UUIDs.
func NewJoins[J any, ID through.Identifier](
	rdb redis.UniversalClient,
	keys through.JoinKeysFunc[J, ID],
	setID func(j *J, id ID),
	nextID func(seq int64) ID,
	opts ...Option,
) *Joins[J, ID] {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return &Joins[J, ID]{rdb: rdb, keys: keys, setID: setID, nextID: nextID, prefix: o.prefix}
}

func (s *Joins[J, ID]) JoinIDs(ctx context.Context, d through.Descriptor, hostID ID) ([]ID, error) {
	rows, err := s.hostRows(ctx, d, hostID)
	if err != nil {
		return nil, err
	}
	ids := make([]ID, len(rows))
	for i := range rows {
		ids[i] = s.keys(&rows[i]).ID
	}
	return ids, nil
}

func (s *Joins[J, ID]) FindJoins(ctx context.Context, d through.Descriptor, ids []ID) ([]J, error) {
	if len(ids) == 0 {
		return []J{}, nil
	}
	return s.load(ctx, d, members(ids))
}

func (s *Joins[J, ID]) FindJoinsByKeys(ctx context.Context, d through.Descriptor, hostID ID, targetIDs []ID) ([]J, error) {
	if len(targetIDs) == 0 {
		return []J{}, nil
	}
	want := make(map[ID]struct{}, len(targetIDs))
	for _, id := range targetIDs {
		want[id] = struct{}{}
	}

	rows, err := s.hostRows(ctx, d, hostID)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for i := range rows {
		if _, ok := want[s.keys(&rows[i]).Target]; ok {
			out = append(out, rows[i])
		}
	}
	return out, nil
}

func (s *Joins[J, ID]) CreateJoin(ctx context.Context, d through.Descriptor, j *J) error {
	seq, err := s.rdb.Incr(ctx, s.seqKey(d)).Result()
	if err != nil {
		return fmt.Errorf("redisstore: next id for %s: %w", d.Join, err)
	}
	s.setID(j, s.nextID(seq))

	k := s.keys(j)
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("redisstore: encode %s row: %w", d.Join, err)
	}
	member := fmt.Sprint(k.ID)

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.rowsKey(d), member, payload)
		pipe.ZAdd(ctx, s.hostKey(d, k.Host), redis.Z{Score: float64(seq), Member: member})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: create %s row: %w", d.Join, err)
	}
	return nil
}

func (s *Joins[J, ID]) DeleteJoins(ctx context.Context, d through.Descriptor, joins []J) error {
	if len(joins) == 0 {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range joins {
			k := s.keys(&joins[i])
			member := fmt.Sprint(k.ID)
			pipe.HDel(ctx, s.rowsKey(d), member)
			pipe.ZRem(ctx, s.hostKey(d, k.Host), member)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: delete %s rows: %w", d.Join, err)
	}
	return nil
}

// hostRows returns the rows of hostID in creation order.
func (s *Joins[J, ID]) hostRows(ctx context.Context, d through.Descriptor, hostID ID) ([]J, error) {
	ids, err := s.rdb.ZRange(ctx, s.hostKey(d, hostID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list %s rows: %w", d.Join, err)
	}
	if len(ids) == 0 {
		return []J{}, nil
	}
	return s.load(ctx, d, ids)
}

// load fetches rows by hash field, skipping ones that no longer exist.
func (s *Joins[J, ID]) load(ctx context.Context, d through.Descriptor, fields []string) ([]J, error) {
	vals, err := s.rdb.HMGet(ctx, s.rowsKey(d), fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: load %s rows: %w", d.Join, err)
	}
	out := make([]J, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // missing field
		}
		var j J
		if err := json.Unmarshal([]byte(raw), &j); err != nil {
			return nil, fmt.Errorf("redisstore: decode %s row: %w", d.Join, err)
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *Joins[J, ID]) rowsKey(d through.Descriptor) string {
	return s.prefix + d.Join + ":rows"
}

func (s *Joins[J, ID]) hostKey(d through.Descriptor, hostID ID) string {
	return fmt.Sprintf("%s%s:host:%v", s.prefix, d.Join, hostID)
}

func (s *Joins[J, ID]) seqKey(d through.Descriptor) string {
	return s.prefix + d.Join + ":seq"
}

// Sequence uses the creation counter itself as the primary key.
func Sequence[ID ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64]() func(seq int64) ID {
	return func(seq int64) ID { return ID(seq) }
}

// UUIDs ignores the counter and returns random UUID string keys.
func UUIDs[ID ~string]() func(seq int64) ID {
	return func(int64) ID { return ID(uuid.NewString()) }
}

func members[ID through.Identifier](ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprint(id)
	}
	return out
}

var _ through.JoinStore[struct{}, int64] = (*Joins[struct{}, int64])(nil)
