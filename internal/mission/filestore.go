package mission

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OCAP2/launch-telemetry/pkg/core"
)

const (
	jsonExt   = ".json"
	gzipExt   = ".json.gz"
	idMaxSize = 127
)

// FileStore loads missions from <dir>/<missionId>.json or .json.gz.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load reads and decodes the mission file for missionID.
func (s *FileStore) Load(ctx context.Context, missionID string) (*core.Mission, error) {
	if err := checkID(missionID); err != nil {
		return nil, err
	}

	for _, ext := range []string{jsonExt, gzipExt} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, missionID+ext)
		m, err := ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if m.MissionID == "" {
			m.MissionID = missionID
		}
		return m, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, missionID)
}

// List returns the summaries of every mission file in the store directory.
func (s *FileStore) List(ctx context.Context) ([]core.MissionSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read mission dir: %w", err)
	}

	var summaries []core.MissionSummary
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, jsonExt) || strings.HasSuffix(name, gzipExt)) {
			continue
		}
		m, err := ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		summary := m.MissionSummary
		if summary.MissionID == "" {
			summary.MissionID = strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), jsonExt)
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LaunchDateMs < summaries[j].LaunchDateMs
	})
	return summaries, nil
}

// ReadFile decodes a single mission file, gunzipping names ending in .gz.
func ReadFile(path string) (*core.Mission, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", filepath.Base(path), err)
		}
		defer gz.Close()
		r = gz
	}

	var m core.Mission
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &m, nil
}

// checkID rejects ids that could escape the store directory.
func checkID(missionID string) error {
	if missionID == "" || len(missionID) > idMaxSize ||
		missionID != filepath.Base(missionID) || strings.ContainsAny(missionID, `/\`) || strings.HasPrefix(missionID, ".") {
		return fmt.Errorf("%w: invalid id %q", ErrNotFound, missionID)
	}
	return nil
}
