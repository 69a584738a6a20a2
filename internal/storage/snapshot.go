package storage

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/spinsim/internal/results"
)

const SnapshotVersion = 1

// MaxSnapshotSize bounds the decompressed payload (512MB).
const MaxSnapshotSize = 512 * 1024 * 1024

var nan = math.NaN()

// SnapshotHeader is the plain-text first line of a snapshot file.
type SnapshotHeader struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
	Names     []string  `json:"names"`
	Points    int       `json:"points"`
}

// Snapshot bundles named series for saving and restoring a session.
type Snapshot struct {
	CreatedAt time.Time         `json:"created_at"`
	Series    []*results.Series `json:"series"`
}

func (s *Snapshot) Names() []string {
	names := make([]string, len(s.Series))
	for i, sr := range s.Series {
		names[i] = sr.Name
	}
	return names
}

// Get returns the series with the given name, or nil.
func (s *Snapshot) Get(name string) *results.Series {
	for _, sr := range s.Series {
		if sr.Name == name {
			return sr
		}
	}
	return nil
}

// WriteSnapshot writes a header line followed by the gzip-compressed JSON
// payload. The header carries the sha256 of the compressed bytes.
func WriteSnapshot(path string, snap *Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	points := 0
	for _, sr := range snap.Series {
		points += sr.Len()
	}
	header := SnapshotHeader{
		Version:   SnapshotVersion,
		CreatedAt: snap.CreatedAt,
		Checksum:  checksum(compressed.Bytes()),
		Names:     snap.Names(),
		Points:    points,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(headerBytes, '\n')); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	return f.Close()
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func readHeader(r *bufio.Reader) (*SnapshotHeader, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var header SnapshotHeader
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}
	return &header, nil
}

// ReadSnapshotHeader reads only the first line.
func ReadSnapshotHeader(path string) (*SnapshotHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// ReadSnapshot verifies the checksum before decompressing.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	compressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if got := checksum(compressed); got != header.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, got)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	data, err := io.ReadAll(io.LimitReader(gzr, MaxSnapshotSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if len(data) > MaxSnapshotSize {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", MaxSnapshotSize)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snap, nil
}
