package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/atarist-core/emucore/curated"
)

// IndexEntry is one snapshot's listing in the on-disk index. The index
// enumerates snapshots independently of any single record so a corrupt
// record never hides its siblings.
type IndexEntry struct {
	SnapshotID string `json:"snapshot_id"`
	Name       string `json:"name"`
	Profile    string `json:"profile"`
	SHA256     string `json:"sha256"`
	SavedAtUs  int64  `json:"saved_at_us"`
	SizeBytes  int64  `json:"size_bytes"`
}

// Index is the persisted ledger of snapshot records under one root.
type Index struct {
	mu      sync.Mutex
	root    string
	entries []IndexEntry
}

func indexPath(root string) string {
	return filepath.Join(Dir(root), "index.json")
}

// LoadIndex reads the index under root, returning an empty index if none
// exists yet.
func LoadIndex(root string) (*Index, error) {
	idx := &Index{root: root}

	data, err := os.ReadFile(indexPath(root))
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, saveError(err)
	}
	if err := json.Unmarshal(data, &idx.entries); err != nil {
		return nil, saveError(err)
	}
	return idx, nil
}

// Add records entry and rewrites the index atomically. An entry with an
// id already present replaces the old entry.
func (idx *Index) Add(entry IndexEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	replaced := false
	for i := range idx.entries {
		if idx.entries[i].SnapshotID == entry.SnapshotID {
			idx.entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.entries = append(idx.entries, entry)
	}
	return idx.rewrite()
}

// List returns the entries, newest first.
func (idx *Index) List() []IndexEntry {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	out := make([]IndexEntry, len(idx.entries))
	copy(out, idx.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAtUs > out[j].SavedAtUs })
	return out
}

// Find returns the entry for id.
func (idx *Index) Find(id string) (IndexEntry, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, e := range idx.entries {
		if e.SnapshotID == id {
			return e, nil
		}
	}
	return IndexEntry{}, curated.New(curated.CategorySnapshot, curated.CodeSnapshotNotFound, false,
		"snapshot: no index entry for %s", id)
}

// Prune removes all but the keep newest entries, deleting their record
// files, and rewrites the index. Returns the removed entries.
func (idx *Index) Prune(keep int) ([]IndexEntry, error) {
	if keep < 0 {
		keep = 0
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.entries) <= keep {
		return nil, nil
	}

	sort.Slice(idx.entries, func(i, j int) bool {
		return idx.entries[i].SavedAtUs > idx.entries[j].SavedAtUs
	})

	removed := idx.entries[keep:]
	idx.entries = idx.entries[:keep]

	for _, e := range removed {
		os.Remove(Path(idx.root, e.SnapshotID))
	}

	if err := idx.rewrite(); err != nil {
		return nil, err
	}
	return removed, nil
}

// rewrite persists the index with the same stage-and-rename discipline as
// the records themselves. Callers hold the mutex.
func (idx *Index) rewrite() error {
	data, err := json.MarshalIndent(idx.entries, "", "  ")
	if err != nil {
		return saveError(err)
	}

	if err := os.MkdirAll(Dir(idx.root), 0o755); err != nil {
		return saveError(err)
	}

	tmp := indexPath(idx.root) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return saveError(err)
	}
	if err := os.Rename(tmp, indexPath(idx.root)); err != nil {
		os.Remove(tmp)
		return saveError(err)
	}
	return nil
}
