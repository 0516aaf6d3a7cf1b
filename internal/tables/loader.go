package tables

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

var ErrUnsupportedFormat = errors.New("unsupported table format")

// Provider resolves the tables referenced by a weapon profile.
type Provider interface {
	Tables(ctx context.Context, weaponID string, paths core.TablePaths) (Set, error)
}

// FileLoader reads tables from disk. Relative paths resolve against Dir.
// Supported encodings are .json and .msgpack, each optionally zstd
// compressed with a trailing .zst.
type FileLoader struct {
	Dir string
}

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir}
}

func (l *FileLoader) Tables(ctx context.Context, weaponID string, paths core.TablePaths) (Set, error) {
	var set Set
	for _, arc := range []core.Arc{core.ArcDirect, core.ArcLow, core.ArcHigh} {
		if err := ctx.Err(); err != nil {
			return Set{}, err
		}
		path := paths.ForArc(arc)
		if path == "" {
			continue
		}
		t, err := l.LoadFile(path)
		if err != nil {
			return Set{}, fmt.Errorf("weapon %s %s table: %w", weaponID, arc.TableKey(), err)
		}
		switch arc {
		case core.ArcDirect:
			set.Direct = t
		case core.ArcLow:
			set.Low = t
		case core.ArcHigh:
			set.High = t
		}
	}
	return set, nil
}

// LoadFile reads and decodes a single table file.
func (l *FileLoader) LoadFile(path string) (*Table, error) {
	if !filepath.IsAbs(path) && l.Dir != "" {
		path = filepath.Join(l.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	f, err := Decode(filepath.Base(path), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return f.Build(), nil
}

// Decode parses a table stream, picking the codec from the file name.
func Decode(name string, r io.Reader) (File, error) {
	var f File
	name = strings.ToLower(name)
	if strings.HasSuffix(name, ".zst") {
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return f, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
		name = strings.TrimSuffix(name, ".zst")
	}

	switch filepath.Ext(name) {
	case ".json":
		if err := json.NewDecoder(r).Decode(&f); err != nil {
			return f, fmt.Errorf("failed to decode table: %w", err)
		}
	case ".msgpack":
		if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
			return f, fmt.Errorf("failed to decode table: %w", err)
		}
	default:
		return f, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// Encode writes a table file in the codec chosen by name.
func Encode(name string, w io.Writer, f File) error {
	name = strings.ToLower(name)
	if strings.HasSuffix(name, ".zst") {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		if err := Encode(strings.TrimSuffix(name, ".zst"), zw, f); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to close zstd writer: %w", err)
		}
		return nil
	}

	switch filepath.Ext(name) {
	case ".json":
		return json.NewEncoder(w).Encode(f)
	case ".msgpack":
		return msgpack.NewEncoder(w).Encode(f)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}
