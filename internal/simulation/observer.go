package simulation

import "github.com/zkplatoon/platoon/pkg/core"

// Observer receives simulation events. Callbacks run while the controller
// holds its lock: they must not block and must not call back into the
// controller.
type Observer interface {
	OnStart(run core.Run, snap core.Snapshot)
	OnTick(snap core.Snapshot)
	OnFault(ev core.FaultEvent)
	OnShuffle(ev core.ShuffleEvent)
	OnStop(run core.Run, final core.Snapshot)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Start   func(run core.Run, snap core.Snapshot)
	Tick    func(snap core.Snapshot)
	Fault   func(ev core.FaultEvent)
	Shuffle func(ev core.ShuffleEvent)
	Stop    func(run core.Run, final core.Snapshot)
}

func (o ObserverFuncs) OnStart(run core.Run, snap core.Snapshot) {
	if o.Start != nil {
		o.Start(run, snap)
	}
}

func (o ObserverFuncs) OnTick(snap core.Snapshot) {
	if o.Tick != nil {
		o.Tick(snap)
	}
}

func (o ObserverFuncs) OnFault(ev core.FaultEvent) {
	if o.Fault != nil {
		o.Fault(ev)
	}
}

func (o ObserverFuncs) OnShuffle(ev core.ShuffleEvent) {
	if o.Shuffle != nil {
		o.Shuffle(ev)
	}
}

func (o ObserverFuncs) OnStop(run core.Run, final core.Snapshot) {
	if o.Stop != nil {
		o.Stop(run, final)
	}
}
