package ml

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validArtifact() modelArtifact {
	return modelArtifact{
		Format:       FormatEstimator,
		BaseScore:    10,
		NumFeatures:  2,
		FeatureNames: []string{"a", "b"},
		Trees:        testTrees(0),
	}
}

func TestLoadModelSelectsVariant(t *testing.T) {
	path := writeModelFile(t, validArtifact())
	handle, err := LoadModel(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := handle.(*Estimator); !ok {
		t.Fatalf("expected estimator, got %T", handle)
	}
	if handle.NumFeatures() != 2 {
		t.Fatalf("unexpected feature count: %d", handle.NumFeatures())
	}

	native := validArtifact()
	native.Format = FormatBooster
	native.FeatureNames = nil
	handle, err = LoadModel(writeModelFile(t, native))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := handle.(*Booster); !ok {
		t.Fatalf("expected booster, got %T", handle)
	}
	if handle.FeatureNames() != nil {
		t.Fatal("native handle should not expose feature names")
	}
}

func TestLoadModelClassifiesByNamesWithoutFormat(t *testing.T) {
	artifact := validArtifact()
	artifact.Format = ""
	handle, err := LoadModel(writeModelFile(t, artifact))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := handle.(*Estimator); !ok {
		t.Fatalf("expected estimator, got %T", handle)
	}
}

func TestLoadModelNotFound(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestLoadModelCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(path); !errors.Is(err, ErrModelCorrupt) {
		t.Fatalf("expected ErrModelCorrupt, got %v", err)
	}
}

func TestLoadModelInvalid(t *testing.T) {
	cases := map[string]func(*modelArtifact){
		"no trees":          func(a *modelArtifact) { a.Trees = nil },
		"bad feature count": func(a *modelArtifact) { a.NumFeatures = 0 },
		"name mismatch":     func(a *modelArtifact) { a.FeatureNames = []string{"a"} },
		"unknown format":    func(a *modelArtifact) { a.Format = "pickle" },
		"bad child index": func(a *modelArtifact) {
			a.Trees = [][]TreeNode{{{FeatureIdx: 0, Threshold: 1, LeftChild: 0, RightChild: 2}}}
		},
		"bad feature index": func(a *modelArtifact) {
			a.Trees[0][0].FeatureIdx = 9
		},
	}
	for name, mutate := range cases {
		artifact := validArtifact()
		mutate(&artifact)
		if _, err := LoadModel(writeModelFile(t, artifact)); !errors.Is(err, ErrModelInvalid) {
			t.Fatalf("%s: expected ErrModelInvalid, got %v", name, err)
		}
	}
}

func TestResolveModelPath(t *testing.T) {
	env := map[string]string{}
	getenv := func(key string) string { return env[key] }

	if got := ResolveModelPath("explicit.json", getenv); got != "explicit.json" {
		t.Fatalf("explicit path ignored: %s", got)
	}
	env[EnvModelPath] = "/opt/models/m.json"
	if got := ResolveModelPath("", getenv); got != "/opt/models/m.json" {
		t.Fatalf("env override ignored: %s", got)
	}
	delete(env, EnvModelPath)
	if got := ResolveModelPath("", getenv); got != DefaultModelPath {
		t.Fatalf("expected default path, got %s", got)
	}
}

func TestStoreReadinessTransitions(t *testing.T) {
	store := NewStore(writeModelFile(t, validArtifact()), nil)
	if state, _ := store.Status(); state != StateLoading {
		t.Fatalf("expected StateLoading before load, got %v", state)
	}

	if err := store.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, loadErr := store.Status()
	if state != StateReady || loadErr != "" {
		t.Fatalf("expected ready state, got %v %q", state, loadErr)
	}
}

func TestStoreLoadFailureIsTerminalState(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"), nil)
	if err := store.Load(); err == nil {
		t.Fatal("expected load error")
	}
	state, loadErr := store.Status()
	if state != StateFailed {
		t.Fatalf("expected StateFailed, got %v", state)
	}
	if loadErr == "" {
		t.Fatal("expected stored error detail")
	}
}

func TestStoreGetDoesNotRetryAfterFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	store := NewStore(path, nil)
	if err := store.Load(); err == nil {
		t.Fatal("expected load error")
	}

	// making the artifact appear later must not revive the store
	payload, err := json.Marshal(validArtifact())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(false); err == nil {
		t.Fatal("expected failed store to stay failed")
	}
	if state, _ := store.Status(); state != StateFailed {
		t.Fatalf("expected StateFailed, got %v", state)
	}

	if _, err := store.Get(true); err != nil {
		t.Fatalf("explicit reload should succeed: %v", err)
	}
}

func TestStoreGetCachesHandle(t *testing.T) {
	store := NewStore(writeModelFile(t, validArtifact()), nil)

	first, err := store.Get(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.Get(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("expected cached handle on second get")
	}

	reloaded, err := store.Get(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded == first {
		t.Fatal("expected a fresh handle on reload")
	}
}

func TestStoreLoadAsync(t *testing.T) {
	store := NewStore(writeModelFile(t, validArtifact()), nil)
	store.LoadAsync()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if state, _ := store.Status(); state == StateReady {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("model did not become ready in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
