package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a level document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("unknown level format for %s", path)
}

func Encode(doc *LevelDocument, f Format) ([]byte, error) {
	if f == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func Decode(data []byte, f Format) (*LevelDocument, error) {
	doc := &LevelDocument{}
	var err error
	if f == FormatYAML {
		err = yaml.Unmarshal(data, doc)
	} else {
		err = json.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func LoadFile(path string) (*LevelDocument, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	doc, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("parse level %s: %w", path, err)
	}
	return doc, nil
}

// SaveFile writes doc next to path and renames it into place.
func SaveFile(path string, doc *LevelDocument) error {
	f, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(doc, f)
	if err != nil {
		return fmt.Errorf("encode level %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write level %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write level %s: %w", path, err)
	}
	return nil
}

// FileStore saves snapshots to a single level file.
type FileStore struct {
	Path string
}

func (f FileStore) Save(_ context.Context, doc *LevelDocument) error {
	return SaveFile(f.Path, doc)
}
