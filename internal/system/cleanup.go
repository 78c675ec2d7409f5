package system

import (
	"github.com/l1jgo/simkernel/internal/core/ecs"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred entity destruction queue at step end.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	scene *ecs.Scene
	log   *zap.Logger
}

func NewCleanupSystem(scene *ecs.Scene, log *zap.Logger) *CleanupSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupSystem{scene: scene, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ float64) {
	if n := s.scene.FlushDestroyQueue(); n > 0 {
		s.log.Debug("destroyed queued entities", zap.Int("count", n))
	}
}
