// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"github.com/hashicorp/go-hclog"

	"github.com/canonical/sqlbind/provider"
)

// Option configures a DB.
type Option func(*options)

type options struct {
	logger   hclog.Logger
	registry *provider.Registry
	strict   bool
}

func getOpts(opt ...Option) options {
	opts := options{
		logger:   hclog.NewNullLogger(),
		registry: provider.Default(),
	}
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

// WithLogger sets the logger. Cache activity and skipped fields are logged
// at trace level, bulk copies at debug level. The default discards output.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegistry sets the registry providers are looked up in. The default
// is provider.Default().
func WithRegistry(r *provider.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithStrictProcedureBinding makes a source field that matches no parameter
// of a stored procedure an error. By default such fields are skipped.
func WithStrictProcedureBinding(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}
