// Package schema holds the collection registry: the mapping from collection
// slug to its compiled field definitions. Collections are registered
// explicitly at startup; there is no runtime interception or dynamic
// loading by name.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/inkhub/inkhub/internal/validate"
)

// Collection is one document type and its field definitions.
// Config points at the collection schema files loaded at startup.
type Config struct {
	Paths []string `conf:"paths" yaml:"paths" json:"paths"`
}

type Collection struct {
	Slug   string
	Fields []validate.Field
}

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Validate checks the collection definition itself.
func (c Collection) Validate() error {
	if !slugPattern.MatchString(c.Slug) {
		return fmt.Errorf("schema: invalid collection slug %q", c.Slug)
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema: collection %q has a field without a name", c.Slug)
		}

		if seen[f.Name] {
			return fmt.Errorf("schema: collection %q defines field %q twice", c.Slug, f.Name)
		}

		seen[f.Name] = true
	}

	return nil
}

// Registry maps collection slugs to their definitions. It is populated once
// at startup and read-only afterwards.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]Collection
}

func NewRegistry() *Registry {
	return &Registry{collections: make(map[string]Collection)}
}

// Register adds a collection. Registering the same slug twice is an error.
func (r *Registry) Register(c Collection) error {
	if err := c.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collections[c.Slug]; exists {
		return fmt.Errorf("schema: collection %q already registered", c.Slug)
	}

	r.collections[c.Slug] = c

	return nil
}

// Get returns the collection definition for slug.
func (r *Registry) Get(slug string) (Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[slug]

	return c, ok
}

// Slugs returns the registered collection slugs in sorted order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.collections))
	for slug := range r.collections {
		slugs = append(slugs, slug)
	}

	sort.Strings(slugs)

	return slugs
}
