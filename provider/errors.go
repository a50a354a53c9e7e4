// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import "github.com/canonical/sqlbind/internal/errors"

// Error is the coded error returned by providers.
type Error = errors.Error

var (
	ErrUnsupportedParameterSource = errors.ErrUnsupportedParameterSource
	ErrUnsupportedSource          = errors.ErrUnsupportedSource
	ErrParameterBinding           = errors.ErrParameterBinding
	ErrArgumentNull               = errors.ErrArgumentNull
	ErrKeyNotFound                = errors.ErrKeyNotFound
	ErrProcedureNotFound          = errors.ErrProcedureNotFound
	ErrUnsupportedOperation       = errors.ErrUnsupportedOperation
	ErrUnsupportedProvider        = errors.ErrUnsupportedProvider
)

// CheckCommand returns ErrArgumentNull if cmd is nil.
func CheckCommand(op errors.Op, cmd *Command) error {
	if cmd == nil {
		return errors.New(errors.ArgumentNull, op, "command is nil", errors.WithName("cmd"))
	}
	return nil
}

// CheckParameter returns ErrArgumentNull if cmd or p is nil.
func CheckParameter(op errors.Op, cmd *Command, p *Parameter) error {
	if err := CheckCommand(op, cmd); err != nil {
		return err
	}
	if p == nil {
		return errors.New(errors.ArgumentNull, op, "parameter is nil", errors.WithName("p"))
	}
	return nil
}

// ProcedureNotFound returns an error matching ErrProcedureNotFound for the
// named procedure.
func ProcedureNotFound(op errors.Op, name string) error {
	return errors.New(errors.ProcedureNotFound, op, "no catalog entry for stored procedure", errors.WithName(name))
}

// RejectExternalTx returns ErrUnsupportedOperation if tx is not nil. Adapters
// that cannot bulk load under a caller's transaction call it before reading
// any row.
func RejectExternalTx(op errors.Op, provider string, tx any) error {
	if isNil(tx) {
		return nil
	}
	return errors.New(errors.UnsupportedOperation, op, provider+" cannot bulk copy within an external transaction")
}
