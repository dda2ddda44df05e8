package through_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/manythrough/through"
)

func TestDeclareDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		decl through.Declaration
		want through.Descriptor
	}{
		{
			name: "type names",
			decl: through.Declaration{Host: "Hospital", Name: "Doctors", Through: "HospitalDoctor"},
			want: through.Descriptor{
				Name: "doctors", Host: "hospitals", Target: "doctors", Join: "hospital_doctors",
				HostForeignKey: "hospital_id", TargetForeignKey: "doctor_id",
				JoinPrimaryKey: "id", TargetPrimaryKey: "id",
			},
		},
		{
			name: "table names",
			decl: through.Declaration{Host: "hospitals", Name: "doctors", Through: "hospital_doctors"},
			want: through.Descriptor{
				Name: "doctors", Host: "hospitals", Target: "doctors", Join: "hospital_doctors",
				HostForeignKey: "hospital_id", TargetForeignKey: "doctor_id",
				JoinPrimaryKey: "id", TargetPrimaryKey: "id",
			},
		},
		{
			name: "explicit target and keys",
			decl: through.Declaration{
				Host: "users", Name: "followers", Target: "User", Through: "follows",
				HostForeignKey: "followee_id", TargetForeignKey: "follower_id",
				JoinPrimaryKey: "follow_id", TargetPrimaryKey: "user_id",
			},
			want: through.Descriptor{
				Name: "followers", Host: "users", Target: "users", Join: "follows",
				HostForeignKey: "followee_id", TargetForeignKey: "follower_id",
				JoinPrimaryKey: "follow_id", TargetPrimaryKey: "user_id",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := through.Describe(tt.decl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeclareInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		decl through.Declaration
	}{
		{name: "missing through", decl: through.Declaration{Host: "hospitals", Name: "doctors"}},
		{name: "blank through", decl: through.Declaration{Host: "hospitals", Name: "doctors", Through: "  "}},
		{name: "missing host", decl: through.Declaration{Name: "doctors", Through: "hospital_doctors"}},
		{name: "missing name", decl: through.Declaration{Host: "hospitals", Through: "hospital_doctors"}},
		{
			name: "self referencing without keys",
			decl: through.Declaration{Host: "users", Name: "users", Through: "friendships"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := through.NewRegistry()
			_, err := r.Declare(tt.decl)
			require.ErrorIs(t, err, through.ErrConfiguration)
			assert.Empty(t, r.Hosts())
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := through.NewRegistry()
	_, err := r.Declare(through.Declaration{Host: "Hospital", Name: "doctors", Through: "HospitalDoctor"})
	require.NoError(t, err)
	_, err = r.Declare(through.Declaration{Host: "Hospital", Name: "nurses", Through: "HospitalNurse"})
	require.NoError(t, err)
	_, err = r.Declare(through.Declaration{Host: "Doctor", Name: "hospitals", Through: "HospitalDoctor"})
	require.NoError(t, err)

	t.Run("duplicate", func(t *testing.T) {
		_, err := r.Declare(through.Declaration{Host: "hospitals", Name: "doctors", Through: "staff"})
		require.ErrorIs(t, err, through.ErrDuplicateAssociation)
		require.ErrorIs(t, err, through.ErrConfiguration)

		d, ok := r.Lookup("hospitals", "doctors")
		require.True(t, ok)
		assert.Equal(t, "hospital_doctors", d.Join)
	})

	t.Run("lookup", func(t *testing.T) {
		d, ok := r.Lookup("Hospital", "Doctors")
		require.True(t, ok)
		assert.Equal(t, "doctors", d.Name)
		assert.Equal(t, "doctor_ids", d.IDsName())
		assert.Equal(t, "hospitals.doctors through hospital_doctors", d.String())

		_, ok = r.Lookup("hospitals", "patients")
		assert.False(t, ok)
	})

	t.Run("listing", func(t *testing.T) {
		assert.Equal(t, []string{"doctors", "hospitals"}, r.Hosts())

		descs := r.Descriptors("hospitals")
		require.Len(t, descs, 2)
		assert.Equal(t, "doctors", descs[0].Name)
		assert.Equal(t, "nurses", descs[1].Name)
		assert.Empty(t, r.Descriptors("patients"))
	})
}

func TestRegistrySeal(t *testing.T) {
	t.Parallel()

	r := through.NewRegistry()
	_, err := r.Declare(through.Declaration{Host: "hospitals", Name: "doctors", Through: "hospital_doctors"})
	require.NoError(t, err)
	require.False(t, r.Sealed())

	r.Seal()
	require.True(t, r.Sealed())

	_, err = r.Declare(through.Declaration{Host: "hospitals", Name: "nurses", Through: "hospital_nurses"})
	require.ErrorIs(t, err, through.ErrRegistrySealed)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Lookup("hospitals", "doctors")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}
