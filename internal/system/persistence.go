package system

import (
	"context"
	"time"

	"github.com/l1jgo/simkernel/internal/core/ecs"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/persist"
	"go.uber.org/zap"
)

// LevelSaver stores a level snapshot. Implemented by persist.LevelRepo and
// persist.FileStore.
type LevelSaver interface {
	Save(ctx context.Context, doc *persist.LevelDocument) error
}

// PersistenceSystem periodically snapshots the scene's base data.
// Phase 3 (Persist).
type PersistenceSystem struct {
	scene     *ecs.Scene
	saver     LevelSaver
	log       *zap.Logger
	tickCount int
	interval  int // auto-save every N steps; 0 disables
}

func NewPersistenceSystem(scene *ecs.Scene, saver LevelSaver, log *zap.Logger, intervalSteps int) *PersistenceSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &PersistenceSystem{scene: scene, saver: saver, log: log, interval: intervalSteps}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ float64) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.SaveNow(ctx); err != nil {
		s.log.Error("autosave failed", zap.String("level", s.scene.ID), zap.Error(err))
	}
}

// SaveNow snapshots and stores the scene immediately. Used on shutdown.
func (s *PersistenceSystem) SaveNow(ctx context.Context) error {
	doc := persist.Snapshot(s.scene)
	if err := s.saver.Save(ctx, doc); err != nil {
		return err
	}
	s.log.Debug("level saved", zap.String("level", doc.ID), zap.Int("entities", len(doc.Entities)))
	return nil
}
