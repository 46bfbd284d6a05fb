package manager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clipchain/clipchain/internal/types"
)

// The store is one pretty-printed JSON file per clip, <local_id>.json next
// to <local_id>.mp4 inside the data directory. No database, no lock file;
// the single-operator workflow accepts the check-then-write race.

func (m *Manager) clipPath(localID string) string {
	return filepath.Join(m.dataDir, localID+mediaExt)
}

func (m *Manager) metadataPath(localID string) string {
	return filepath.Join(m.dataDir, localID+".json")
}

func (m *Manager) metadataExists(localID string) bool {
	_, err := os.Stat(m.metadataPath(localID))
	return err == nil
}

func (m *Manager) ensureDataDir() error {
	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", m.dataDir, err)
	}
	return nil
}

// saveMetadata writes through a temp file and renames so a crash mid-write
// never leaves a half-parseable record behind.
func (m *Manager) saveMetadata(md types.ClipMetadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", md.LocalID, err)
	}
	data = append(data, '\n')

	path := m.metadataPath(md.LocalID)
	tmp, err := os.CreateTemp(m.dataDir, ".clipchain-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename metadata for %s: %w", path, err)
	}
	return nil
}

func (m *Manager) loadMetadata(localID string) (types.ClipMetadata, error) {
	data, err := os.ReadFile(m.metadataPath(localID))
	if err != nil {
		return types.ClipMetadata{}, fmt.Errorf("clip %q: %w", localID, ErrMetadataNotFound)
	}
	var md types.ClipMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return types.ClipMetadata{}, fmt.Errorf("parse metadata for %q: %w", localID, err)
	}
	return md, nil
}

// listMetadata enumerates every readable record; corrupt or partial files
// are skipped so one bad write never hides the rest of the library.
func (m *Manager) listMetadata() ([]types.ClipMetadata, error) {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", m.dataDir, err)
	}

	out := make([]types.ClipMetadata, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		md, err := m.loadMetadata(strings.TrimSuffix(name, ".json"))
		if err != nil {
			m.log.Debug("skipping unreadable metadata file", "file", name, "error", err)
			continue
		}
		out = append(out, md)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LocalID < out[j].LocalID })
	return out, nil
}
