// Package vars implements prompt variables: named value lists stored as
// TOML files, substituted into prompt text via __name__ placeholders.
//
// Substitution is deterministic per seed so re-running a generation with
// the same seed reproduces the same prompt. Missing variables degrade
// gracefully: an injected ValueGenerator may synthesize values on the
// fly, otherwise the placeholder collapses to its bare name with a
// warning attached.
package vars

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// placeholderPattern matches __name__ markers inside prompt text
var placeholderPattern = regexp.MustCompile(`__([a-zA-Z0-9/\-]+(?:_[a-zA-Z0-9/\-]+)*)__`)

// Variable is a named list of candidate values
type Variable struct {
	Name        string   `toml:"-"`
	Description string   `toml:"description,omitempty"`
	Values      []string `toml:"values"`
}

// ValueGenerator synthesizes values for a variable that has no stored
// definition. External collaborators (an LLM bridge, typically) plug in
// here; the store persists whatever comes back.
type ValueGenerator func(ctx context.Context, name string) ([]string, error)

// Substitution is the outcome of resolving placeholders in prompt text
type Substitution struct {
	// Result is the prompt with every resolvable placeholder replaced
	Result string

	// Used maps variable name to the value chosen for it
	Used map[string]string

	// Warnings lists variables that could not be resolved
	Warnings []string
}

// Placeholders returns the variable names referenced by the text, in
// order of first appearance, without duplicates.
func Placeholders(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Substitute resolves every placeholder in text against the store.
//
// Picks are drawn from a seed-keyed RNG in placeholder order, so the
// same (text, seed) pair always yields the same prompt. A variable
// referenced twice gets an independent pick per occurrence.
func (s *Store) Substitute(ctx context.Context, text string, seed int64) *Substitution {
	sub := &Substitution{Used: make(map[string]string)}
	rng := rand.New(rand.NewSource(seed))
	warned := make(map[string]bool)

	sub.Result = placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.Trim(match, "_")

		values, ok := s.values(name)
		if !ok && s.generator() != nil {
			generated, err := s.generate(ctx, name)
			if err != nil {
				sub.Warnings = append(sub.Warnings, fmt.Sprintf("variable %q: generation failed: %v", name, err))
				warned[name] = true
			} else {
				values, ok = generated, true
			}
		}
		if !ok || len(values) == 0 {
			if !warned[name] {
				sub.Warnings = append(sub.Warnings, fmt.Sprintf("variable %q is not defined, using its name literally", name))
				warned[name] = true
			}
			return name
		}

		choice := values[rng.Intn(len(values))]
		sub.Used[name] = choice
		return choice
	})

	return sub
}
