package ml

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State describes whether the cached model is usable.
type State int

const (
	// StateLoading means the background load has not finished yet.
	StateLoading State = iota
	// StateReady means the model is cached and usable.
	StateReady
	// StateFailed means the load failed; terminal for the process lifetime.
	StateFailed
)

// EnvModelPath overrides the artifact location when set.
const EnvModelPath = "MODEL_PATH"

// DefaultModelPath is the fallback artifact location relative to the
// working directory.
const DefaultModelPath = "models/best_gbt_model.json"

// ResolveModelPath picks the artifact path: explicit argument, then the
// MODEL_PATH environment variable, then the fixed default.
func ResolveModelPath(explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if env := getenv(EnvModelPath); env != "" {
		return env
	}
	return DefaultModelPath
}

// Store owns the cached model handle and its readiness state. It is
// constructed once at process start and passed into request-handling
// code; the background loader is the only writer on the startup path.
type Store struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	state   State
	handle  Handle
	loadErr string
}

// NewStore creates a store for the artifact at path. The store starts in
// StateLoading; call Load or LoadAsync to populate it.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger, state: StateLoading}
}

// Path returns the resolved artifact path.
func (s *Store) Path() string {
	return s.path
}

// LoadAsync runs the one-shot background load so the HTTP listener can
// come up immediately. No retries; a failure is terminal.
func (s *Store) LoadAsync() {
	go func() {
		if err := s.Load(); err != nil {
			s.logger.Error("model load failed", zap.String("path", s.path), zap.Error(err))
			return
		}
		s.logger.Info("model loaded", zap.String("path", s.path))
	}()
}

// Load reads the artifact and flips the readiness state accordingly.
func (s *Store) Load() error {
	handle, err := LoadModel(s.path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.loadErr = err.Error()
		return err
	}
	s.handle = handle
	s.state = StateReady
	s.loadErr = ""
	return nil
}

// Get returns the cached handle, loading it first when absent or when a
// reload is requested. A failed store stays failed; only an explicit
// reload attempts the load again.
func (s *Store) Get(reload bool) (Handle, error) {
	if !reload {
		s.mu.RLock()
		state := s.state
		handle := s.handle
		loadErr := s.loadErr
		s.mu.RUnlock()
		if handle != nil {
			return handle, nil
		}
		if state == StateFailed {
			return nil, fmt.Errorf("model unavailable: %s", loadErr)
		}
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle, nil
}

// Status snapshots the readiness state and the stored load error text.
func (s *Store) Status() (State, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.loadErr
}

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
