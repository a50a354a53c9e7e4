// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package bind turns a parameter source into the parameters of a command.
//
// A parameter source is a struct (or pointer to one), a map with string keys,
// or any value implementing typeinfo.FieldSource. For text commands one input
// parameter is created for each field named by an @name placeholder. For
// stored procedures the parameters derived from the catalog are bound in
// place; parameters with no matching field are left unbound so that the
// procedure's declared default applies.
package bind

import (
	"github.com/hashicorp/go-hclog"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/internal/typeinfo"
	"github.com/canonical/sqlbind/provider"
)

// Options control binding.
type Options struct {
	// StrictProcedureBinding makes a source field with no matching procedure
	// parameter an error. Otherwise the field is skipped.
	StrictProcedureBinding bool
	// Logger receives trace output about skipped fields. A nil Logger
	// discards it.
	Logger hclog.Logger
}

// Materialize binds the fields of source to cmd using p to convert values.
// A nil source binds no fields.
func Materialize(source any, cmd *provider.Command, p provider.Provider, opts Options) error {
	const op = "bind.Materialize"
	if cmd == nil {
		return errors.New(errors.ArgumentNull, op, "command is nil", errors.WithName("cmd"))
	}
	if p == nil {
		return errors.New(errors.ArgumentNull, op, "provider is nil", errors.WithName("p"))
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	var fields []typeinfo.Field
	if source != nil {
		if typeinfo.KindOf(source) == typeinfo.Unsupported {
			return errors.New(errors.UnsupportedParameterSource, op, "need struct, map or field source, got "+typeName(source))
		}
		var err error
		fields, err = typeinfo.Fields(source)
		if err != nil {
			return errors.Wrap(err, errors.UnsupportedParameterSource, op, "")
		}
	}

	if cmd.Type == provider.StoredProcedure {
		return bindProcedure(fields, cmd, p, opts)
	}
	return bindText(fields, cmd, p)
}

func bindProcedure(fields []typeinfo.Field, cmd *provider.Command, p provider.Provider, opts Options) error {
	const op = "bind.bindProcedure"
	if !cmd.Derived {
		return errors.New(errors.ParameterBinding, op, "parameters of stored procedure must be derived before binding", errors.WithName(cmd.Text))
	}
	seen := map[string]string{}
	for _, f := range fields {
		param, ok := cmd.Parameter(f.Name)
		if !ok || param.Direction == provider.ReturnValue {
			if opts.StrictProcedureBinding {
				return errors.New(errors.ParameterBinding, op, "no parameter of "+cmd.Text+" matches field", errors.WithName(f.Name))
			}
			opts.Logger.Trace("skipping unmatched field", "procedure", cmd.Text, "field", f.Name)
			continue
		}
		if other, ok := seen[param.Name]; ok {
			return errors.New(errors.ParameterBinding, op, "fields "+other+" and "+f.Name+" bind the same parameter", errors.WithName(param.Name))
		}
		seen[param.Name] = f.Name
		v, err := convert(cmd, param, f.Value, p)
		if err != nil {
			return errors.Wrap(err, errors.ParameterBinding, op, "", errors.WithName(param.Name))
		}
		param.Value = v
		param.Bound = true
	}
	return nil
}

func bindText(fields []typeinfo.Field, cmd *provider.Command, p provider.Provider) error {
	const op = "bind.bindText"
	ps, err := provider.Parse(cmd.Text)
	if err != nil {
		return errors.Wrap(err, errors.ParameterBinding, op, "")
	}
	placeholders := map[string]bool{}
	for _, name := range ps.Placeholders() {
		placeholders[typeinfo.Fold(name)] = true
	}

	var params []*provider.Parameter
	seen := map[string]string{}
	for _, f := range fields {
		name := provider.TrimPrefix(f.Name)
		folded := typeinfo.Fold(name)
		if !placeholders[folded] {
			continue
		}
		if other, ok := seen[folded]; ok {
			return errors.New(errors.ParameterBinding, op, "fields "+other+" and "+f.Name+" bind the same placeholder", errors.WithName(name))
		}
		seen[folded] = f.Name
		param := &provider.Parameter{
			Name:      name,
			DBType:    provider.InferDBType(f.Value),
			Direction: provider.Input,
			Bound:     true,
		}
		v, err := convert(cmd, param, f.Value, p)
		if err != nil {
			return errors.Wrap(err, errors.ParameterBinding, op, "", errors.WithName(name))
		}
		param.Value = v
		params = append(params, param)
	}
	cmd.Parameters = params
	return nil
}

// convert returns the driver value of v for param.
func convert(cmd *provider.Command, param *provider.Parameter, v any, p provider.Provider) (any, error) {
	target := param
	isXML, err := p.IsXMLParameter(cmd, param)
	if err != nil {
		return nil, err
	}
	if isXML && param.DBType != provider.XMLType {
		c := *param
		c.DBType = provider.XMLType
		target = &c
	}
	cv, err := provider.ConvertValue(target, v)
	if err != nil {
		return nil, err
	}
	return p.NormalizeValue(target, cv)
}
