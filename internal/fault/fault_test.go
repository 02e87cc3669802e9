package fault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkplatoon/platoon/internal/fleet"
	"github.com/zkplatoon/platoon/pkg/core"
)

func TestMaybeInjectFault_Sequence(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		counter    int
		wantNext   int
		wantTarget core.EntityID
		wantOK     bool
	}{
		{"first trigger hits D", true, 0, 1, 3, true},
		{"second trigger hits E", true, 1, 2, 4, true},
		{"exhausted", true, 2, 2, 0, false},
		{"well past the schedule", true, 7, 7, 0, false},
		{"disabled", false, 0, 0, 0, false},
		{"negative counter", true, -1, -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, target, ok := MaybeInjectFault(tt.enabled, tt.counter)
			assert.Equal(t, tt.wantNext, next)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantTarget, target)
			}
		})
	}
}

func TestApply_MarksTargets(t *testing.T) {
	reg := fleet.New()
	in := NewInjector(nil)

	res, err := in.ApplyTo(reg, true, 0)
	require.NoError(t, err)
	assert.Equal(t, Result{Counter: 1, Target: 3, Consumed: true, Injected: true}, res)

	res, err = in.ApplyTo(reg, true, res.Counter)
	require.NoError(t, err)
	assert.Equal(t, Result{Counter: 2, Target: 4, Consumed: true, Injected: true}, res)

	res, err = in.ApplyTo(reg, true, res.Counter)
	require.NoError(t, err)
	assert.False(t, res.Consumed)
	assert.Equal(t, 2, res.Counter)

	for _, e := range reg.Snapshot() {
		assert.Equal(t, e.ID == 3 || e.ID == 4, e.Faulty, "entity %s", e.ID.Name())
	}
}

func TestApply_TargetsIdentityNotLabel(t *testing.T) {
	reg := fleet.New()
	// D now displays as "A" and A displays as "D"
	require.NoError(t, reg.RenameNonFaulty([]string{"D", "B", "C", "A", "E", "F"}))

	_, err := NewInjector(nil).ApplyTo(reg, true, 0)
	require.NoError(t, err)

	d, _ := reg.Get(3)
	a, _ := reg.Get(0)
	assert.True(t, d.Faulty)
	assert.Equal(t, "A", d.Label)
	assert.False(t, a.Faulty)
}

func TestApply_AlreadyFaultyStillConsumes(t *testing.T) {
	reg := fleet.New()
	require.NoError(t, reg.SetFaulty(3))
	before := reg.Snapshot()

	res, err := NewInjector(nil).ApplyTo(reg, true, 0)
	require.NoError(t, err)
	assert.True(t, res.Consumed)
	assert.False(t, res.Injected)
	assert.Equal(t, 1, res.Counter)
	assert.Equal(t, before, reg.Snapshot())
}

func TestApply_Disabled(t *testing.T) {
	reg := fleet.New()
	res, err := NewInjector(nil).ApplyTo(reg, false, 0)
	require.NoError(t, err)
	assert.False(t, res.Consumed)
	assert.Equal(t, 0, res.Counter)
	assert.Equal(t, core.FleetSize, reg.NonFaultyCount())
}

func TestApply_UnknownTarget(t *testing.T) {
	reg := fleet.New()
	in := NewInjector(Schedule{9})

	res, err := in.ApplyTo(reg, true, 0)
	require.ErrorIs(t, err, fleet.ErrInvalidIdentity)
	assert.Equal(t, 0, res.Counter)
}

func TestNewInjector_CustomSchedule(t *testing.T) {
	in := NewInjector(Schedule{0, 1, 2})
	assert.Equal(t, Schedule{0, 1, 2}, in.Schedule())

	reg := fleet.New()
	counter := 0
	for i := 0; i < 3; i++ {
		res, err := in.ApplyTo(reg, true, counter)
		require.NoError(t, err)
		counter = res.Counter
	}
	assert.Equal(t, 3, counter)
	assert.Equal(t, 3, reg.NonFaultyCount())
}
