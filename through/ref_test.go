package through_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/manythrough/through"
)

type tag struct {
	Slug string
}

func tagSlug(t *tag) string { return t.Slug }

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()

		ids, err := through.Normalize[doctor, int64](nil, doctorID)
		require.NoError(t, err)
		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	})

	t.Run("ids and entities keep order and duplicates", func(t *testing.T) {
		t.Parallel()

		refs := []through.Ref[doctor, int64]{
			through.IDRef[doctor](int64(3)),
			through.EntityRef[doctor, int64](&doctor{ID: 1}),
			through.IDRef[doctor](int64(3)),
		}
		ids, err := through.Normalize(refs, doctorID)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 1, 3}, ids)
	})

	t.Run("blank string ids are dropped", func(t *testing.T) {
		t.Parallel()

		refs := through.IDRefs[tag]([]string{"", "go", ""})
		ids, err := through.Normalize(refs, tagSlug)
		require.NoError(t, err)
		assert.Equal(t, []string{"go"}, ids)
	})

	t.Run("zero integer ids are kept", func(t *testing.T) {
		t.Parallel()

		ids, err := through.Normalize(through.IDRefs[doctor]([]int64{0}), doctorID)
		require.NoError(t, err)
		assert.Equal(t, []int64{0}, ids)
	})

	t.Run("nil entity", func(t *testing.T) {
		t.Parallel()

		refs := []through.Ref[doctor, int64]{through.EntityRef[doctor, int64](nil)}
		_, err := through.Normalize(refs, doctorID)
		require.ErrorIs(t, err, through.ErrNilReference)
	})

	t.Run("entity refs from a slice", func(t *testing.T) {
		t.Parallel()

		refs := through.EntityRefs[doctor, int64]([]doctor{{ID: 7}, {ID: 8}})
		require.True(t, refs[0].IsEntity())
		ids, err := through.Normalize(refs, doctorID)
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 8}, ids)
	})
}

func TestNormalizeLoose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		items   []any
		want    []int64
		wantErr error
	}{
		{name: "nil", items: nil, want: []int64{}},
		{name: "only blanks", items: []any{"", nil, ""}, want: []int64{}},
		{name: "strings", items: []any{"", "10", " 20 "}, want: []int64{10, 20}},
		{name: "string batch accepts integers", items: []any{"10", 20}, want: []int64{10, 20}},
		{name: "integers", items: []any{10, int32(20), uint8(30)}, want: []int64{10, 20, 30}},
		{name: "integer batch parses strings", items: []any{10, "20"}, want: []int64{10, 20}},
		{name: "entities", items: []any{doctor{ID: 1}, &doctor{ID: 2}}, want: []int64{1, 2}},
		{name: "entity batch rejects ids", items: []any{doctor{ID: 1}, 2}, wantErr: through.ErrUnconvertible},
		{name: "integer batch rejects entities", items: []any{1, doctor{ID: 2}}, wantErr: through.ErrUnconvertible},
		{name: "string batch rejects entities", items: []any{"1", &doctor{ID: 2}}, wantErr: through.ErrUnconvertible},
		{name: "non numeric string", items: []any{"abc"}, wantErr: through.ErrUnconvertible},
		{name: "integer batch non numeric string", items: []any{1, "abc"}, wantErr: through.ErrUnconvertible},
		{name: "nil entity pointer", items: []any{&doctor{ID: 1}, (*doctor)(nil)}, wantErr: through.ErrNilReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := through.NormalizeLoose[doctor, int64](tt.items, doctorID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeLooseStringIDs(t *testing.T) {
	t.Parallel()

	got, err := through.NormalizeLoose[tag, string]([]any{7, "8", uint(9)}, tagSlug)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "8", "9"}, got)

	got, err = through.NormalizeLoose[tag, string]([]any{tag{Slug: "go"}, &tag{Slug: "sql"}}, tagSlug)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql"}, got)
}

func TestNormalizeLooseOverflow(t *testing.T) {
	t.Parallel()

	_, err := through.NormalizeLoose[struct{}, int8]([]any{300}, nil)
	require.ErrorIs(t, err, through.ErrUnconvertible)

	_, err = through.NormalizeLoose[struct{}, uint32]([]any{-1}, nil)
	require.ErrorIs(t, err, through.ErrUnconvertible)

	_, err = through.NormalizeLoose[struct{}, int8]([]any{"300"}, nil)
	require.ErrorIs(t, err, through.ErrUnconvertible)

	got, err := through.NormalizeLoose[struct{}, uint32]([]any{uint64(42)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{42}, got)
}
