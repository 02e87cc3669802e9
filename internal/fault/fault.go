// Package fault injects faults into fixed trucks of the platoon.
package fault

import (
	"github.com/zkplatoon/platoon/internal/fleet"
	"github.com/zkplatoon/platoon/pkg/core"
)

// Schedule lists the trucks to fail, one per consumed trigger.
// Targets are stable identities, so a shuffle never redirects a fault.
type Schedule []core.EntityID

// DefaultSchedule fails D, then E.
var DefaultSchedule = Schedule{3, 4}

// Next applies the schedule rule to an external counter. ok is false
// when the trigger is disabled or the schedule is exhausted, in which
// case the counter is returned unchanged.
func (s Schedule) Next(enabled bool, counter int) (next int, target core.EntityID, ok bool) {
	if !enabled || counter < 0 || counter >= len(s) {
		return counter, 0, false
	}
	return counter + 1, s[counter], true
}

// MaybeInjectFault evaluates the default schedule.
func MaybeInjectFault(enabled bool, counter int) (int, core.EntityID, bool) {
	return DefaultSchedule.Next(enabled, counter)
}

// Result describes one consumed trigger.
type Result struct {
	Counter  int
	Target   core.EntityID
	Consumed bool
	// Injected is false when the target was already faulty.
	Injected bool
}

// Injector applies a schedule to a registry.
type Injector struct {
	schedule Schedule
}

// NewInjector creates an injector. An empty schedule uses DefaultSchedule.
func NewInjector(schedule Schedule) *Injector {
	if len(schedule) == 0 {
		schedule = DefaultSchedule
	}
	return &Injector{schedule: schedule}
}

// Schedule returns the injector's schedule.
func (in *Injector) Schedule() Schedule {
	return in.schedule
}

// Apply consumes one trigger against tx. The counter advances even when
// the target is already faulty.
func (in *Injector) Apply(tx *fleet.Tx, enabled bool, counter int) (Result, error) {
	next, target, ok := in.schedule.Next(enabled, counter)
	if !ok {
		return Result{Counter: counter}, nil
	}

	res := Result{Counter: next, Target: target, Consumed: true}
	e, found := tx.Get(target)
	if !found {
		return Result{Counter: counter}, fleet.ErrInvalidIdentity
	}
	if !e.Faulty {
		if err := tx.SetFaulty(target); err != nil {
			return Result{Counter: counter}, err
		}
		res.Injected = true
	}
	return res, nil
}

// ApplyTo is Apply for callers without an open transaction.
func (in *Injector) ApplyTo(reg *fleet.Registry, enabled bool, counter int) (Result, error) {
	var res Result
	err := reg.Update(func(tx *fleet.Tx) error {
		var err error
		res, err = in.Apply(tx, enabled, counter)
		return err
	})
	return res, err
}
