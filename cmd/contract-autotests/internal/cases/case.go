// Package cases holds the contract scenarios a suite can run. A case runs
// once per data row and reports its progress through a collector.
package cases

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stellar/go/support/errors"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
)

// Case is one contract scenario. Run returns an error when the scenario
// cannot go on; failed expectations are logged to c and do not stop it.
type Case interface {
	Run(ctx context.Context, env *Env, row datasource.Row, c *collector.Collector) error
}

// CaseFunc adapts a function to the Case interface.
type CaseFunc func(ctx context.Context, env *Env, row datasource.Row, c *collector.Collector) error

func (f CaseFunc) Run(ctx context.Context, env *Env, row datasource.Row, c *collector.Collector) error {
	return f(ctx, env, row, c)
}

type Factory func() Case

// Registry maps case kinds, as written in the suite manifest, to their
// implementation.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Default returns a registry holding every built-in case.
func Default() *Registry {
	r := NewRegistry()
	r.Register(KindVIDToken, func() Case { return vidToken{} })
	r.Register(KindOrderDao, func() Case { return orderDao{} })
	r.Register(KindInvoke, func() Case { return invoke{} })
	return r
}

// Register adds a case kind. Registering a kind twice panics.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[kind]; ok {
		panic(fmt.Sprintf("case kind %s registered twice", kind))
	}
	r.factories[kind] = factory
}

func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) New(kind string) (Case, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown case kind %q", kind)
	}
	return factory(), nil
}
