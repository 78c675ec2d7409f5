// levelconv converts level documents between JSON and YAML, and moves them
// in and out of the levels table.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/l1jgo/simkernel/internal/config"
	"github.com/l1jgo/simkernel/internal/persist"
	"go.uber.org/zap"
)

const usage = `Usage:
  levelconv <input.json|yaml> <output.json|yaml>
  levelconv -import <input.json|yaml>
  levelconv -export <level-id> <output.json|yaml>`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	switch {
	case len(args) == 2 && args[0] == "-import":
		return importLevel(args[1])
	case len(args) == 3 && args[0] == "-export":
		return exportLevel(args[1], args[2])
	case len(args) == 2:
		return convert(args[0], args[1])
	}
	return fmt.Errorf("%s", usage)
}

// normalize loads doc into a scene and snapshots it again, so the output
// carries component defaults and is rejected when it would not load.
func normalize(doc *persist.LevelDocument) (*persist.LevelDocument, error) {
	s, err := persist.Restore(doc, zap.NewNop())
	if err != nil {
		return nil, err
	}
	defer s.Dispose()
	return persist.Snapshot(s), nil
}

func convert(in, out string) error {
	doc, err := persist.LoadFile(in)
	if err != nil {
		return err
	}
	doc, err = normalize(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	if err := persist.SaveFile(out, doc); err != nil {
		return err
	}
	fmt.Printf("Wrote %d entities to %s\n", len(doc.Entities), out)
	return nil
}

func openDB(ctx context.Context) (*persist.DB, error) {
	cfgPath := "config/simkernel.toml"
	if p := os.Getenv("SIMKERNEL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return persist.Open(ctx, cfg.Database, zap.NewNop())
}

func importLevel(in string) error {
	doc, err := persist.LoadFile(in)
	if err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("%s: level has no id", in)
	}
	doc, err = normalize(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Levels().Save(ctx, doc); err != nil {
		return err
	}
	fmt.Printf("Imported level %q (%d entities)\n", doc.ID, len(doc.Entities))
	return nil
}

func exportLevel(id, out string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := db.Levels().Load(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("level %q not found", id)
	}
	if err := persist.SaveFile(out, doc); err != nil {
		return err
	}
	fmt.Printf("Exported level %q to %s\n", id, out)
	return nil
}
