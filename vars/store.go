package vars

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/logger"
)

// Store holds prompt variables backed by one TOML file per variable in a
// directory. Reads are concurrent; the watcher goroutine is the only
// writer after startup apart from explicit Save calls.
type Store struct {
	dir string
	gen ValueGenerator

	mu   sync.RWMutex
	vars map[string]Variable

	watcher        *fsnotify.Watcher
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	watchMu        sync.Mutex
}

// NewStore loads every variable definition under dir. A missing
// directory is created empty rather than treated as an error.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create vars directory %s", dir)
	}
	s := &Store{
		dir:            dir,
		vars:           make(map[string]Variable),
		debouncePeriod: 500 * time.Millisecond,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetValueGenerator installs the hook used for undefined variables
func (s *Store) SetValueGenerator(gen ValueGenerator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen = gen
}

// Reload re-reads every variable file from disk
func (s *Store) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrapf(err, "failed to read vars directory %s", s.dir)
	}

	loaded := make(map[string]Variable)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".toml")
		path := filepath.Join(s.dir, entry.Name())

		var v Variable
		if _, err := toml.DecodeFile(path, &v); err != nil {
			logger.Warnw("Skipping malformed variable file",
				"file", path,
				"error", err)
			continue
		}
		v.Name = name
		loaded[name] = v
	}

	s.mu.Lock()
	s.vars = loaded
	s.mu.Unlock()

	logger.Debugw("Prompt variables loaded",
		"dir", s.dir,
		logger.FieldCount, len(loaded))
	return nil
}

// Get returns a variable definition by name
func (s *Store) Get(name string) (Variable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	return v, ok
}

// List returns all variables sorted by name
func (s *Store) List() []Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Variable, 0, len(s.vars))
	for _, v := range s.vars {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save writes a variable definition to its TOML file and updates the
// in-memory table
func (s *Store) Save(v Variable) error {
	if v.Name == "" {
		return errors.New("variable name must not be empty")
	}
	if len(v.Values) == 0 {
		return errors.Newf("variable %q must have at least one value", v.Name)
	}

	path := filepath.Join(s.dir, v.Name+".toml")
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create variable file %s", path)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(v); err != nil {
		return errors.Wrapf(err, "failed to encode variable %q", v.Name)
	}

	s.mu.Lock()
	s.vars[v.Name] = v
	s.mu.Unlock()
	return nil
}

// generator returns the installed value generator, if any
func (s *Store) generator() ValueGenerator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// values returns the value list for a name
func (s *Store) values(name string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	if !ok {
		return nil, false
	}
	return v.Values, true
}

// generate invokes the value generator and persists the result so the
// next substitution finds the variable defined
func (s *Store) generate(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	values, err := gen(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.Newf("generator returned no values for %q", name)
	}

	v := Variable{Name: name, Description: "auto-generated", Values: values}
	if err := s.Save(v); err != nil {
		logger.Warnw("Failed to persist generated variable",
			"name", name,
			"error", err)
	}
	logger.Infow("Generated prompt variable",
		"name", name,
		logger.FieldCount, len(values))
	return values, nil
}

// StartWatching begins reloading the store when files under the vars
// directory change. Rapid successive writes collapse into one reload.
func (s *Store) StartWatching() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "failed to watch vars directory %s", s.dir)
	}
	s.watcher = watcher

	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.scheduleReload(event.Name)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Vars watcher error",
				"error", err)
		}
	}
}

func (s *Store) scheduleReload(file string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debouncePeriod, func() {
		logger.Infow("Reloading prompt variables",
			"trigger", file)
		if err := s.Reload(); err != nil {
			logger.Errorw("Vars reload failed",
				"error", err)
		}
	})
}

// StopWatching stops the directory watcher
func (s *Store) StopWatching() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
