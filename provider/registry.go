// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"

	"github.com/canonical/sqlbind/internal/errors"
)

// Registry maps driver, connector and driver connection types to the
// Provider that handles them. Registration is append-only.
type Registry struct {
	mutex     sync.RWMutex
	providers map[reflect.Type]Provider
	names     map[string]Provider
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: map[reflect.Type]Provider{},
		names:     map[string]Provider{},
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry populated by the adapter
// packages.
func Default() *Registry {
	return defaultRegistry
}

// Register adds p to the default registry. It is called from the init
// function of each adapter package.
func Register(p Provider) {
	defaultRegistry.Register(p)
}

// Register adds p to r for each of its supported types. It panics if a type
// is already claimed by a different provider.
func (r *Registry) Register(p Provider) {
	if p == nil {
		panic("sqlbind: Register provider is nil")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, t := range p.SupportedTypes() {
		if existing, ok := r.providers[t]; ok && existing != p {
			panic(fmt.Sprintf("sqlbind: type %s claimed by providers %q and %q", t, existing.Name(), p.Name()))
		}
		r.providers[t] = p
	}
	r.names[p.Name()] = p
}

// ByName returns the provider registered under name.
func (r *Registry) ByName(name string) (Provider, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	p, ok := r.names[name]
	return p, ok
}

// Names returns the names of the registered providers in no particular
// order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	return names
}

// LookupType returns the provider that claims t.
func (r *Registry) LookupType(t reflect.Type) (Provider, error) {
	if t == nil {
		return nil, errors.New(errors.ArgumentNull, "provider.LookupType", "type is nil")
	}
	r.mutex.RLock()
	p, ok := r.providers[t]
	r.mutex.RUnlock()
	if !ok {
		return nil, errors.New(errors.UnsupportedProvider, "provider.LookupType", "no provider for "+t.String())
	}
	return p, nil
}

// Lookup returns the provider for conn. conn may be a driver.Driver,
// driver.Connector, driver.Conn, *sql.DB or *sql.Conn.
func (r *Registry) Lookup(conn any) (Provider, error) {
	const op = "provider.Lookup"
	if isNil(conn) {
		return nil, errors.New(errors.ArgumentNull, op, "connection is nil")
	}
	switch c := conn.(type) {
	case *sql.DB:
		return r.LookupType(reflect.TypeOf(c.Driver()))
	case *sql.Conn:
		var p Provider
		var lerr error
		err := c.Raw(func(dc any) error {
			p, lerr = r.LookupType(reflect.TypeOf(dc))
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.UnsupportedProvider, op, "cannot inspect driver connection")
		}
		return p, lerr
	case driver.Connector:
		if p, err := r.LookupType(reflect.TypeOf(c)); err == nil {
			return p, nil
		}
		return r.LookupType(reflect.TypeOf(c.Driver()))
	}
	return r.LookupType(reflect.TypeOf(conn))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
