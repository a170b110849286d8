package input

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/logger"
)

// Store persists mapping profiles under <root>/input/mappings/<machine>/
// with one JSON document per profile. Documents are rewritten atomically;
// once Watch is running, externally edited files are picked up by the
// fsnotify watcher and replace the in-memory profile as written, revision
// included.
type Store struct {
	root string

	mu       sync.RWMutex
	profiles map[string]*Profile // key: machine + "/" + id

	now func() int64

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func storeKey(machine, id string) string { return machine + "/" + id }

func notFound(machine, id string) error {
	return curated.New(curated.CategoryInput, curated.CodeInputMappingNotFound, false,
		"input: no mapping profile %s for machine %s", id, machine)
}

// NewStore loads every persisted profile under root. now supplies
// updated_at timestamps.
func NewStore(root string, now func() int64) (*Store, error) {
	s := &Store{
		root:     root,
		profiles: make(map[string]*Profile),
		now:      now,
	}

	machinesDir := s.mappingsDir()
	machines, err := os.ReadDir(machinesDir)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}

	for _, m := range machines {
		if !m.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(machinesDir, m.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			if err := s.loadFile(filepath.Join(machinesDir, m.Name(), f.Name())); err != nil {
				logger.Logf(logger.Allow, "input", "skipping %s: %v", f.Name(), err)
			}
		}
	}
	return s, nil
}

func (s *Store) mappingsDir() string {
	return filepath.Join(s.root, "input", "mappings")
}

func (s *Store) profilePath(machine, id string) string {
	return filepath.Join(s.mappingsDir(), machine, id+".json")
}

func (s *Store) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.MappingProfileID == "" || p.Machine == "" {
		return curated.Errorf("input: %s has no id/machine", path)
	}

	s.mu.Lock()
	s.profiles[storeKey(p.Machine, p.MappingProfileID)] = &p
	s.mu.Unlock()
	return nil
}

// Get returns the current immutable snapshot of the named profile.
func (s *Store) Get(machine, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[storeKey(machine, id)]
	if !ok {
		return nil, notFound(machine, id)
	}
	return p, nil
}

// List returns the machine's profiles sorted by id.
func (s *Store) List(machine string) []*Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Profile
	for _, p := range s.profiles {
		if p.Machine == machine {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MappingProfileID < out[j].MappingProfileID
	})
	return out
}

// Create persists a new profile at revision 1. Creating an id that already
// exists is a conflict.
func (s *Store) Create(p Profile) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(p.Machine, p.MappingProfileID)
	if _, ok := s.profiles[key]; ok {
		return nil, curated.New(curated.CategoryInput, curated.CodeConflict, false,
			"input: mapping profile %s already exists", p.MappingProfileID)
	}

	p.SchemaVersion = SchemaVersion
	p.Revision = 1
	p.UpdatedAtUs = s.now()

	if err := s.persistLocked(&p); err != nil {
		return nil, err
	}
	s.profiles[key] = &p
	return &p, nil
}

// Update replaces the profile's entries. The revision is bumped only when
// the effective map actually changes; a no-op rewrite returns the current
// snapshot untouched.
func (s *Store) Update(machine, id string, entries []Entry) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(machine, id)
	old, ok := s.profiles[key]
	if !ok {
		return nil, notFound(machine, id)
	}

	if entriesEqual(old.Entries, entries) {
		return old, nil
	}

	next := *old
	next.Entries = entries
	next.Revision = old.Revision + 1
	next.UpdatedAtUs = s.now()

	if err := s.persistLocked(&next); err != nil {
		return nil, err
	}
	s.profiles[key] = &next
	return &next, nil
}

// Delete removes the profile from the store and from disk.
func (s *Store) Delete(machine, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(machine, id)
	if _, ok := s.profiles[key]; !ok {
		return notFound(machine, id)
	}
	delete(s.profiles, key)
	if err := os.Remove(s.profilePath(machine, id)); err != nil && !os.IsNotExist(err) {
		return curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}
	return nil
}

// persistLocked writes the profile document with the stage-and-rename
// discipline. Callers hold the mutex.
func (s *Store) persistLocked(p *Profile) error {
	dir := filepath.Join(s.mappingsDir(), p.Machine)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}

	path := s.profilePath(p.Machine, p.MappingProfileID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}
	return nil
}

// Watch reloads profile files edited outside the engine. Each reload
// becomes the profile's new in-memory snapshot; active mappings keep their
// own snapshot until the next cutover.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}
	s.watcher = w
	s.done = make(chan struct{})

	if err := os.MkdirAll(s.mappingsDir(), 0o755); err != nil {
		w.Close()
		return curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}
	if err := w.Add(s.mappingsDir()); err != nil {
		w.Close()
		return curated.New(curated.CategoryInput, curated.CodeInternalError, false,
			"input: %v", err)
	}
	machines, _ := os.ReadDir(s.mappingsDir())
	for _, m := range machines {
		if m.IsDir() {
			w.Add(filepath.Join(s.mappingsDir(), m.Name()))
		}
	}

	go func() {
		for {
			select {
			case <-s.done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				switch {
				case ev.Op.Has(fsnotify.Create) && filepath.Ext(ev.Name) == "":
					w.Add(ev.Name) // a new machine directory
				case ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create):
					if strings.HasSuffix(ev.Name, ".json") {
						if err := s.loadFile(ev.Name); err != nil {
							logger.Logf(logger.Allow, "input", "reload %s: %v", ev.Name, err)
						} else {
							logger.Logf(logger.Allow, "input", "reloaded %s", ev.Name)
						}
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Logf(logger.Allow, "input", "watcher: %v", err)
			}
		}
	}()
	return nil
}

// CloseWatch stops the fsnotify watcher started by Watch.
func (s *Store) CloseWatch() {
	if s.watcher == nil {
		return
	}
	close(s.done)
	s.watcher.Close()
	s.watcher = nil
}
