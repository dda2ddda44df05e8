package sqlstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/manythrough/store/sqlstore"
	"github.com/mickamy/manythrough/through"
)

func TestEmptyInputsSkipQueries(t *testing.T) {
	t.Parallel()

	d, err := through.NewRegistry().Declare(through.Declaration{
		Host: "hospitals", Name: "doctors", Through: "hospital_doctors",
	})
	require.NoError(t, err)

	// A nil Querier panics on use, so these must return before touching it.
	joins := sqlstore.NewJoins[HospitalDoctor, int64](nil, HospitalDoctors, hospitalDoctorKeys)
	targets := sqlstore.NewTargets[Doctor, int64](nil, Doctors)

	found, err := joins.FindJoins(t.Context(), d, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = joins.FindJoinsByKeys(t.Context(), d, 1, []int64{})
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, joins.DeleteJoins(t.Context(), d, nil))

	doctors, err := targets.FindTargets(t.Context(), d, nil)
	require.NoError(t, err)
	assert.Empty(t, doctors)
}
