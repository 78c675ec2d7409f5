package system

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

const DefaultStep = 1.0 / 60.0

type SchedulerConfig struct {
	// Step is the fixed simulation step in seconds.
	Step float64
	// MaxStepsPerFrame caps catch-up steps per display frame; 0 means no cap.
	MaxStepsPerFrame int
	TimeScale        float64
	// ScaleSource, if set, is read every frame and multiplies TimeScale.
	// Non-positive or NaN readings count as 1.
	ScaleSource func() float64
}

// Scheduler decouples fixed-step simulation from the variable display frame
// rate with an accumulator. Each display frame adds its delta; every whole
// step in the accumulator runs the Runner once.
type Scheduler struct {
	runner    *Runner
	step      float64
	maxSteps  int
	timeScale float64
	source    func() float64

	acc     float64
	steps   uint64
	simTime float64
	log     *zap.Logger
}

func NewScheduler(runner *Runner, cfg SchedulerConfig, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	step := cfg.Step
	if step <= 0 {
		step = DefaultStep
	}
	ts := cfg.TimeScale
	if ts <= 0 {
		ts = 1
	}
	return &Scheduler{
		runner:    runner,
		step:      step,
		maxSteps:  cfg.MaxStepsPerFrame,
		timeScale: ts,
		source:    cfg.ScaleSource,
		log:       log,
	}
}

func (s *Scheduler) FixedStep() float64 { return s.step }

// Steps is the number of fixed steps executed so far.
func (s *Scheduler) Steps() uint64 { return s.steps }

// SimTime is the simulated time in seconds (Steps * FixedStep).
func (s *Scheduler) SimTime() float64 { return s.simTime }

// Accumulated is the leftover time not yet consumed by a whole step.
func (s *Scheduler) Accumulated() float64 { return s.acc }

// Alpha is the fraction of a step left in the accumulator, for renderers
// that want to interpolate between the last two steps.
func (s *Scheduler) Alpha() float64 { return s.acc / s.step }

func (s *Scheduler) SetTimeScale(f float64) {
	if f > 0 {
		s.timeScale = f
	}
}

func (s *Scheduler) scale() float64 {
	if s.source == nil {
		return s.timeScale
	}
	if f := s.source(); f > 0 {
		return s.timeScale * f
	}
	return s.timeScale
}

// Step runs exactly one fixed step, bypassing the accumulator.
func (s *Scheduler) Step() {
	s.runner.Tick(s.step)
	s.steps++
	s.simTime = float64(s.steps) * s.step
}

// Advance feeds one display-frame delta (seconds) and runs as many fixed
// steps as fit. It returns the number of steps run, possibly zero.
func (s *Scheduler) Advance(frameDt float64) int {
	if math.IsNaN(frameDt) || math.IsInf(frameDt, 0) || frameDt < 0 {
		s.log.Warn("ignoring invalid frame delta", zap.Float64("dt", frameDt))
		return 0
	}
	s.acc += frameDt * s.scale()
	n := 0
	for s.acc >= s.step {
		if s.maxSteps > 0 && n >= s.maxSteps {
			dropped := math.Floor(s.acc / s.step)
			s.acc -= dropped * s.step
			if s.acc < 0 {
				s.acc = 0
			}
			s.log.Warn("simulation falling behind, dropping steps",
				zap.Int("ran", n),
				zap.Float64("dropped", dropped),
			)
			break
		}
		s.Step()
		s.acc -= s.step
		n++
	}
	return n
}

// Run drives Advance from a wall-clock ticker at the given frame interval
// until ctx is cancelled. onFrame, if set, is called after each frame with
// the current Alpha; it stands in for the external render loop.
func (s *Scheduler) Run(ctx context.Context, frame time.Duration, onFrame func(alpha float64)) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Advance(now.Sub(last).Seconds())
			last = now
			if onFrame != nil {
				onFrame(s.Alpha())
			}
		}
	}
}
