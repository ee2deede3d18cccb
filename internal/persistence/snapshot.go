package persistence

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"voxelworld/internal/world"

	"github.com/klauspost/compress/zstd"
)

// Version is the snapshot format written by this package.
const Version = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Header is written as one JSON line ahead of the gob body so tools can
// identify a snapshot without decoding it.
type Header struct {
	Version int       `json:"version"`
	Seed    int64     `json:"seed"`
	Columns int       `json:"columns"`
	SavedAt time.Time `json:"saved_at"`
}

// Snapshot is a full copy of the loaded world keyed by column coordinate.
type Snapshot struct {
	Header  Header
	Seed    int64
	Columns []world.ColumnData
}

// NewSnapshot wraps exported columns for the given seed.
func NewSnapshot(seed int64, cols []world.ColumnData) *Snapshot {
	return &Snapshot{
		Header: Header{
			Version: Version,
			Seed:    seed,
			Columns: len(cols),
			SavedAt: time.Now().UTC(),
		},
		Seed:    seed,
		Columns: cols,
	}
}

// Write encodes snap as zstd(JSON header line + gob body).
func Write(w io.Writer, snap *Snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadHeader decodes only the header line.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	return readHeader(bufio.NewReader(dec))
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("snapshot version %d: %w", h.Version, ErrUnsupportedVersion)
	}
	return h, nil
}

// Read decodes a snapshot written by Write. Column shapes are not checked
// here; the store rejects mismatches on restore.
func Read(r io.Reader) (*Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	if _, err := readHeader(br); err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return &snap, nil
}

// WriteFile writes snap to path through a temporary file so a crash never
// leaves a truncated snapshot behind.
func WriteFile(path string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if err := Write(tmp, snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile reads a snapshot from path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	snap, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return snap, nil
}
