package vars

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyros-projects/zxplorer/errors"
)

func writeVar(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0o644))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	writeVar(t, dir, "style", `
description = "art styles"
values = ["oil painting", "watercolor", "charcoal sketch"]
`)
	writeVar(t, dir, "mood", `values = ["serene", "stormy"]`)

	s, err := NewStore(dir)
	require.NoError(t, err)
	return s
}

func TestStoreLoad(t *testing.T) {
	s := newTestStore(t)

	v, ok := s.Get("style")
	require.True(t, ok)
	assert.Equal(t, "style", v.Name)
	assert.Equal(t, "art styles", v.Description)
	assert.Len(t, v.Values, 3)

	all := s.List()
	require.Len(t, all, 2)
	assert.Equal(t, "mood", all[0].Name)
	assert.Equal(t, "style", all[1].Name)
}

func TestStoreSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeVar(t, dir, "good", `values = ["a"]`)
	writeVar(t, dir, "broken", `values = [unclosed`)

	s, err := NewStore(dir)
	require.NoError(t, err)

	_, ok := s.Get("good")
	assert.True(t, ok)
	_, ok = s.Get("broken")
	assert.False(t, ok)
}

func TestStoreSave(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save(Variable{Name: "light", Values: []string{"golden hour", "neon"}}))

	v, ok := s.Get("light")
	require.True(t, ok)
	assert.Equal(t, []string{"golden hour", "neon"}, v.Values)

	// Round-trips through a fresh store
	fresh, err := NewStore(s.dir)
	require.NoError(t, err)
	v, ok = fresh.Get("light")
	require.True(t, ok)
	assert.Equal(t, []string{"golden hour", "neon"}, v.Values)
}

func TestStoreSaveRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Save(Variable{Name: "", Values: []string{"a"}}))
	assert.Error(t, s.Save(Variable{Name: "empty"}))
}

func TestPlaceholders(t *testing.T) {
	names := Placeholders("a __style__ portrait, __mood__ light, __style__ again")
	assert.Equal(t, []string{"style", "mood"}, names)

	assert.Empty(t, Placeholders("no variables here"))
}

func TestSubstituteDeterministicPerSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := s.Substitute(ctx, "a __style__ portrait in __mood__ light", 42)
	second := s.Substitute(ctx, "a __style__ portrait in __mood__ light", 42)

	assert.Equal(t, first.Result, second.Result)
	assert.Empty(t, first.Warnings)
	assert.NotContains(t, first.Result, "__")
	assert.Contains(t, first.Used, "style")
	assert.Contains(t, first.Used, "mood")
}

func TestSubstituteMissingVariableWarns(t *testing.T) {
	s := newTestStore(t)

	sub := s.Substitute(context.Background(), "a __nonexistent__ scene, __nonexistent__ again", 1)

	assert.Equal(t, "a nonexistent scene, nonexistent again", sub.Result)
	require.Len(t, sub.Warnings, 1)
	assert.Contains(t, sub.Warnings[0], "nonexistent")
}

func TestSubstituteValueGenerator(t *testing.T) {
	s := newTestStore(t)
	s.SetValueGenerator(func(ctx context.Context, name string) ([]string, error) {
		return []string{"generated-" + name}, nil
	})

	sub := s.Substitute(context.Background(), "__fresh__ vista", 1)

	assert.Equal(t, "generated-fresh vista", sub.Result)
	assert.Empty(t, sub.Warnings)

	// The generated variable persists for later lookups
	v, ok := s.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, []string{"generated-fresh"}, v.Values)
}

func TestSubstituteConcurrentWithSetValueGenerator(t *testing.T) {
	s := newTestStore(t)

	// Substitutions proceed while the generator is swapped out
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.SetValueGenerator(func(ctx context.Context, name string) ([]string, error) {
				return []string{name}, nil
			})
			s.SetValueGenerator(nil)
		}
	}()

	for i := 0; i < 100; i++ {
		sub := s.Substitute(context.Background(), "a __style__ portrait", int64(i))
		assert.NotContains(t, sub.Result, "__")
	}
	<-done
}

func TestSubstituteGeneratorFailureWarns(t *testing.T) {
	s := newTestStore(t)
	s.SetValueGenerator(func(ctx context.Context, name string) ([]string, error) {
		return nil, errors.New("llm offline")
	})

	sub := s.Substitute(context.Background(), "__fresh__ vista", 1)

	assert.Equal(t, "fresh vista", sub.Result)
	require.NotEmpty(t, sub.Warnings)
	assert.Contains(t, sub.Warnings[0], "llm offline")
}
