package system

import (
	"context"
	"time"

	"github.com/l1jgo/simkernel/internal/core/ecs"
	"github.com/l1jgo/simkernel/internal/core/event"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/persist"
	"go.uber.org/zap"
)

// JournalWriter persists a batch of journal entries atomically.
type JournalWriter interface {
	WriteJournal(ctx context.Context, entries []persist.JournalEntry) error
}

// JournalSystem records region crossings and script faults from the bus and
// writes them in batches. Phase 3 (Persist).
type JournalSystem struct {
	scene      *ecs.Scene
	writer     JournalWriter
	log        *zap.Logger
	pending    []persist.JournalEntry
	subs       []event.Subscription
	tickCount  int
	flushEvery int
}

func NewJournalSystem(scene *ecs.Scene, w JournalWriter, log *zap.Logger, flushEvery int) *JournalSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if flushEvery <= 0 {
		flushEvery = 1
	}
	s := &JournalSystem{scene: scene, writer: w, log: log, flushEvery: flushEvery}
	bus := scene.Bus()
	s.subs = append(s.subs,
		event.Subscribe(bus, func(ev event.RegionEnter) {
			s.record(ev.Step, "region_enter", ev.EntityID, ev.RegionID, "")
		}),
		event.Subscribe(bus, func(ev event.RegionExit) {
			s.record(ev.Step, "region_exit", ev.EntityID, ev.RegionID, "")
		}),
		event.Subscribe(bus, func(ev event.ScriptFault) {
			detail := ""
			if ev.Err != nil {
				detail = ev.Err.Error()
			}
			s.record(ev.Step, "script_fault", ev.EntityID, ev.Stage, detail)
		}),
	)
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) record(step uint64, kind, entityID, subjectID, detail string) {
	s.pending = append(s.pending, persist.JournalEntry{
		LevelID:   s.scene.ID,
		Step:      step,
		Kind:      kind,
		EntityID:  entityID,
		SubjectID: subjectID,
		Detail:    detail,
	})
}

// Pending reports the number of buffered entries.
func (s *JournalSystem) Pending() int { return len(s.pending) }

func (s *JournalSystem) Update(_ float64) {
	s.tickCount++
	if s.tickCount < s.flushEvery {
		return
	}
	s.tickCount = 0
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Error("journal flush failed", zap.Int("pending", len(s.pending)), zap.Error(err))
	}
}

// Flush writes all buffered entries. On failure the buffer is kept and
// retried on the next flush.
func (s *JournalSystem) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.writer.WriteJournal(ctx, s.pending); err != nil {
		return err
	}
	s.log.Debug("journal flushed", zap.Int("entries", len(s.pending)))
	s.pending = nil
	return nil
}

// Close stops recording. Buffered entries stay until the next Flush.
func (s *JournalSystem) Close() {
	for _, sub := range s.subs {
		s.scene.Bus().Unsubscribe(sub)
	}
	s.subs = nil
}
