// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"database/sql"

	"github.com/canonical/sqlbind/internal/errors"
)

// Error is the type of the errors raised by sqlbind. Its Code says which
// stage failed and Name, if set, the field or parameter involved.
type Error = errors.Error

var ErrNoRows = sql.ErrNoRows
var ErrTXDone = sql.ErrTxDone

// Errors that may be tested for with errors.Is.
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
