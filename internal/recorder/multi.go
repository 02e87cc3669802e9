package recorder

import (
	"errors"

	"github.com/zkplatoon/platoon/pkg/core"
)

// Multi fans every call out to several backends. All backends are
// called even when one fails; the errors are joined.
type Multi []Backend

func (m Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Init() error  { return m.each(Backend.Init) }
func (m Multi) Close() error { return m.each(Backend.Close) }

func (m Multi) StartRun(run *core.Run, snap *core.Snapshot) error {
	return m.each(func(b Backend) error { return b.StartRun(run, snap) })
}

func (m Multi) EndRun(final *core.Snapshot) error {
	return m.each(func(b Backend) error { return b.EndRun(final) })
}

func (m Multi) RecordTick(snap *core.Snapshot) error {
	return m.each(func(b Backend) error { return b.RecordTick(snap) })
}

func (m Multi) RecordFault(ev *core.FaultEvent) error {
	return m.each(func(b Backend) error { return b.RecordFault(ev) })
}

func (m Multi) RecordShuffle(ev *core.ShuffleEvent) error {
	return m.each(func(b Backend) error { return b.RecordShuffle(ev) })
}

// ExportedFilePath returns the first export path reported by a member.
func (m Multi) ExportedFilePath() string {
	for _, b := range m {
		if e, ok := b.(Exporter); ok {
			if p := e.ExportedFilePath(); p != "" {
				return p
			}
		}
	}
	return ""
}
