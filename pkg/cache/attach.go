package cache

import (
	"fmt"

	"github.com/dtnkit/bpcache/pkg/config"
	"github.com/dtnkit/bpcache/pkg/events"
	"github.com/dtnkit/bpcache/pkg/route"
)

// Attach registers a new cache State as a storage data service at
// cfg.SelfAddr on table, wiring its egress and event handlers, and
// returns the live State (spec.md §4.6).
//
// The four block kinds spec.md's original allocator registers
// (STATE, ENTRY, QUEUE, BLOCKREF) correspond here to the three typed
// arenas State owns (entries, queues, bundles) plus the State value
// itself — all constructed together in NewState, since mpool.Arena's
// Go façade needs no separate kind-registration step.
func Attach(table route.Table, cfg config.Config, bus *events.Broker) (*State, error) {
	s := NewState(cfg, bus)

	handle, err := table.Attach(cfg.SelfAddr, route.Handlers{
		Egress: s.EgressImpl,
		Event:  s.EventImpl,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: attach %s: %w: %w", cfg.SelfAddr, ErrInvalidHandle, err)
	}
	s.handle = handle
	s.selfLog.Info().Msg("storage interface attached")
	return s, nil
}

// Detach releases the interface's attach handle, breaking the
// self-reference that keeps it alive; the state may be Destruct'd once
// it is otherwise idle. A well-behaved caller drains pending/idle
// lists and custody entries before calling Destruct.
func Detach(table route.Table, s *State) error {
	if err := table.Detach(s.cfg.SelfAddr); err != nil {
		return fmt.Errorf("cache: detach %s: %w: %w", s.cfg.SelfAddr, ErrInvalidHandle, err)
	}
	s.handle.Release()
	s.selfLog.Info().Msg("storage interface detached")
	return nil
}
