package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/simkernel/internal/config"
	coresys "github.com/l1jgo/simkernel/internal/core/system"
	"github.com/l1jgo/simkernel/internal/persist"
	"github.com/l1jgo/simkernel/internal/scripting"
	"github.com/l1jgo/simkernel/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(level string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             simkernel  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      headless level simulation kernel     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mlevel:\033[0m %s\n\n", level)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation runner ──────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/simkernel.toml"
	if p := os.Getenv("SIMKERNEL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	levelName := cfg.Level.Path
	if cfg.Level.Source == "database" {
		levelName = cfg.Level.ID
	}
	printBanner(levelName)

	// 3. Optional PostgreSQL
	var db *persist.DB
	if cfg.Database.Enabled {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err = persist.Open(ctx, cfg.Database, log)
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected, migrations applied")
		fmt.Println()
	}

	// 4. Load level
	printSection("level")
	doc, err := loadLevel(cfg, db)
	if err != nil {
		return err
	}
	scene, err := persist.Restore(doc, log)
	if err != nil {
		return fmt.Errorf("restore level: %w", err)
	}
	defer scene.Dispose()
	log = log.With(zap.String("scene", scene.ID))
	printStat("entities", scene.Len())
	printStat("seed", int(scene.Seed()))
	fmt.Println()

	// 5. Scripting
	engine, err := scripting.NewEngine(scripting.Options{
		Timeout:       cfg.Scripting.Timeout,
		CallStackSize: cfg.Scripting.CallStackSize,
		RegistrySize:  cfg.Scripting.RegistrySize,
	}, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()

	// 6. Systems, registered in phase order for readability; the runner
	// sorts by phase regardless.
	runner := coresys.NewRunner()
	runner.Register(system.NewRegionSystem(scene, log))
	runner.Register(system.NewLogicSystem(scene, engine, log))
	runner.Register(system.NewPhysicsSystem(scene, system.PhysicsConfig{
		FloorEnabled: cfg.Physics.FloorEnabled,
		FloorY:       cfg.Physics.FloorY,
	}))

	saver := levelSaver(cfg, db)
	var persistSys *system.PersistenceSystem
	if saver != nil {
		persistSys = system.NewPersistenceSystem(scene, saver, log, cfg.Simulation.AutosaveEvery)
		runner.Register(persistSys)
	}
	var journal *system.JournalSystem
	if cfg.Journal.Enabled && db != nil {
		journal = system.NewJournalSystem(scene, db.Journal(), log, cfg.Journal.FlushEvery)
		runner.Register(journal)
	}
	runner.Register(system.NewCleanupSystem(scene, log))

	sched := coresys.NewScheduler(runner, coresys.SchedulerConfig{
		Step:             cfg.Simulation.FixedStep(),
		MaxStepsPerFrame: cfg.Simulation.MaxStepsPerFrame,
		TimeScale:        cfg.Simulation.TimeScale,
		ScaleSource:      func() float64 { return scene.TimeScale },
	}, log)

	// 7. Run until signalled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printSection("running")
	printReady(fmt.Sprintf("fixed step %.4fs, frame %s", sched.FixedStep(), cfg.Simulation.FrameInterval()))
	fmt.Println()

	sched.Run(ctx, cfg.Simulation.FrameInterval(), nil)
	log.Info("shutdown signal received",
		zap.Uint64("steps", sched.Steps()),
		zap.Float64("sim_time", sched.SimTime()),
	)

	// 8. Flush journal and save on exit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if journal != nil {
		journal.Close()
		if err := journal.Flush(shutdownCtx); err != nil {
			log.Error("final journal flush failed", zap.Error(err))
		}
	}
	if persistSys != nil && cfg.Level.SaveOnExit {
		if err := persistSys.SaveNow(shutdownCtx); err != nil {
			log.Error("save on exit failed", zap.Error(err))
		} else {
			log.Info("level saved", zap.String("level", scene.ID))
		}
	}
	log.Info("simulation stopped")
	return nil
}

func loadLevel(cfg *config.Config, db *persist.DB) (*persist.LevelDocument, error) {
	if cfg.Level.Source == "database" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		doc, err := db.Levels().Load(ctx, cfg.Level.ID)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, fmt.Errorf("level %q not found in database", cfg.Level.ID)
		}
		printOK(fmt.Sprintf("loaded %q from database", doc.ID))
		return doc, nil
	}
	doc, err := persist.LoadFile(cfg.Level.Path)
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = strings.TrimSuffix(filepath.Base(cfg.Level.Path), filepath.Ext(cfg.Level.Path))
	}
	printOK(fmt.Sprintf("loaded %s", cfg.Level.Path))
	return doc, nil
}

// levelSaver picks where snapshots go: the level's own source, or nowhere
// when neither autosave nor save-on-exit is requested.
func levelSaver(cfg *config.Config, db *persist.DB) system.LevelSaver {
	if cfg.Simulation.AutosaveEvery <= 0 && !cfg.Level.SaveOnExit {
		return nil
	}
	if cfg.Level.Source == "database" {
		return db.Levels()
	}
	return persist.FileStore{Path: cfg.Level.Path}
}

// newLogger builds the process logger from [logging]. An unknown level is
// a configuration error.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format != "json" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build(zap.Fields(zap.String("app", "simkernel")))
}
