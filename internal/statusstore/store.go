// Package statusstore persists the per-root shot status ledger.
//
// The ledger is a cache: scans rewrite it in full and the filesystem always
// wins when the two disagree. Reads never fail; a missing or corrupt
// document behaves like an empty one.
package statusstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sbsconv/internal/fileutil"
	"sbsconv/internal/shot"
)

// FileName is the ledger document name inside the source root.
const FileName = ".sbs_status.json"

// Record is the persisted view of one shot.
type Record struct {
	Path           string  `json:"path"`
	FrameCount     int     `json:"frameCount"`
	ConvertedCount int     `json:"convertedCount"`
	IsMoved        bool    `json:"isMoved"`
	MovedPath      string  `json:"movedPath,omitempty"`
	SyncStatus     string  `json:"syncStatus"`
	SyncProgress   float64 `json:"syncProgress"`
}

// Path returns the ledger location for a source root.
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Load reads the ledger for root. Missing, unreadable or malformed
// documents yield an empty map.
func Load(root string) map[string]Record {
	records := make(map[string]Record)
	data, err := os.ReadFile(Path(root))
	if err != nil || len(data) == 0 {
		return records
	}
	var decoded map[string]Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		return records
	}
	for name, record := range decoded {
		if name != "" {
			records[name] = record
		}
	}
	return records
}

// Save replaces the ledger for root. A failed write leaves the previous
// document in place.
func Save(root string, records map[string]Record) error {
	if records == nil {
		records = map[string]Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status store: %w", err)
	}
	if err := fileutil.WriteFileAtomic(Path(root), data, 0o644); err != nil {
		return fmt.Errorf("write status store: %w", err)
	}
	return nil
}

// FromShot converts a scanned shot into its persisted record.
func FromShot(s shot.Shot) Record {
	record := Record{
		Path:           s.SourcePath,
		FrameCount:     s.FrameCount,
		ConvertedCount: s.ConvertedCount,
		IsMoved:        s.IsMoved,
		SyncStatus:     s.SyncStatus.String(),
		SyncProgress:   s.SyncProgress,
	}
	if s.IsMoved {
		record.MovedPath = s.MovedPath
	}
	return record
}

// ToShot rebuilds a shot from a record. Used for ghost entries whose
// source directory no longer exists.
func (r Record) ToShot(name string) shot.Shot {
	s := shot.Shot{
		Name:           name,
		SourcePath:     r.Path,
		FrameCount:     r.FrameCount,
		ConvertedCount: r.ConvertedCount,
		IsMoved:        r.IsMoved,
		SyncStatus:     shot.ParseSyncStatus(r.SyncStatus),
		SyncProgress:   r.SyncProgress,
	}
	if r.IsMoved {
		s.MovedPath = r.MovedPath
		s.Location = shot.LocationDestination
	}
	return s
}

// MarkMoved loads the ledger, flags name as moved to destRoot and saves it.
func MarkMoved(root, name, destRoot string) error {
	records := Load(root)
	record := records[name]
	record.IsMoved = true
	record.MovedPath = destRoot
	records[name] = record
	return Save(root, records)
}
