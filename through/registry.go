package through

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mickamy/manythrough/internal/naming"
)

// Registry maps host tables to their declared associations.
// Declare everything at startup, then Seal; lookups are safe from any
// goroutine.
type Registry struct {
	mu     sync.RWMutex
	hosts  map[string]map[string]Descriptor
	sealed bool
}

// NewRegistry returns an empty, unsealed Registry.
func NewRegistry() *Registry {
	return &Registry{hosts: make(map[string]map[string]Descriptor)}
}

// Declare validates decl and records the resulting Descriptor.
// Nothing is recorded when an error is returned.
func (r *Registry) Declare(decl Declaration) (Descriptor, error) {
	d, err := describe(decl)
	if err != nil {
		return Descriptor{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return Descriptor{}, fmt.Errorf("%w: cannot declare %s", ErrRegistrySealed, d)
	}
	byName, ok := r.hosts[d.Host]
	if !ok {
		byName = make(map[string]Descriptor)
		r.hosts[d.Host] = byName
	}
	if _, dup := byName[d.Name]; dup {
		return Descriptor{}, fmt.Errorf("%w: %s.%s", ErrDuplicateAssociation, d.Host, d.Name)
	}
	byName[d.Name] = d
	return d, nil
}

// Seal makes the Registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the descriptor of host's association called name.
// Both arguments accept type names as well as table names.
func (r *Registry) Lookup(host, name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.hosts[naming.TableName(host)][naming.CamelToSnake(name)]
	return d, ok
}

// Descriptors returns host's associations sorted by name.
func (r *Registry) Descriptors(host string) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byName := r.hosts[naming.TableName(host)]
	out := make([]Descriptor, 0, len(byName))
	for _, d := range byName {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Descriptor) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Hosts returns every host table with at least one association, sorted.
func (r *Registry) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hosts := make([]string, 0, len(r.hosts))
	for h := range r.hosts {
		hosts = append(hosts, h)
	}
	slices.Sort(hosts)
	return hosts
}
