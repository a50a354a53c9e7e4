// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/canonical/sqlbind/internal/bind"
	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

// Command is a SQL statement or stored procedure call. Commands built with
// SQL and Procedure are templates: each query binds a copy.
type Command = provider.Command

// SQL returns a command running text. Parameters are written @name.
func SQL(text string) *Command {
	return &Command{Text: text, Type: provider.Text}
}

// Procedure returns a command calling the named stored procedure. Its
// parameters are read from the database catalog the first time it is run on
// a DB.
func Procedure(name string) *Command {
	return &Command{Text: name, Type: provider.StoredProcedure}
}

// paramCache stores the derived parameters of the stored procedures called on
// each DB.
var paramCache = newParameterCache()

type DB struct {
	// cacheID is used to look up the derived procedure parameters cached for
	// this database.
	cacheID int64
	// sqldb is the underlying database/sql DB object.
	sqldb    *sql.DB
	provider provider.Provider
	opts     options
	// owned is true if sqldb was opened by Open.
	owned bool
}

// NewDB creates a new [sqlbind.DB] from a [sql.DB]. The provider is chosen by
// the type of the database driver. It returns an error matching
// ErrUnsupportedProvider if no provider handles the driver.
func NewDB(sqldb *sql.DB, opts ...Option) (*DB, error) {
	if sqldb == nil {
		return nil, errors.New(errors.ArgumentNull, "sqlbind.NewDB", "database is nil", errors.WithName("sqldb"))
	}
	o := getOpts(opts...)
	p, err := o.registry.Lookup(sqldb)
	if err != nil {
		return nil, err
	}
	return paramCache.newDB(sqldb, p, o, false), nil
}

// Open opens a database. name is either the name of a registered provider,
// e.g. "sqlite", or a database/sql driver name.
func Open(name, dsn string, opts ...Option) (*DB, error) {
	o := getOpts(opts...)
	var (
		sqldb *sql.DB
		err   error
	)
	if p, ok := o.registry.ByName(name); ok {
		sqldb, err = p.Open(dsn)
	} else {
		sqldb, err = sql.Open(name, dsn)
	}
	if err != nil {
		return nil, err
	}
	p, err := o.registry.Lookup(sqldb)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	return paramCache.newDB(sqldb, p, o, true), nil
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// Provider returns the provider used for the database.
func (db *DB) Provider() provider.Provider {
	return db.provider
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.sqldb.Close()
}

// ForgetProcedure drops the cached parameters of the named stored procedure,
// so that they are read from the catalog again on the next call.
func (db *DB) ForgetProcedure(name string) {
	paramCache.forget(db, name)
}

// Parameters returns the parameters of the named stored procedure as read
// from the catalog, none of them bound.
func (db *DB) Parameters(ctx context.Context, name string) ([]*provider.Parameter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd, err := paramCache.command(ctx, db, db.sqldb, name)
	if err != nil {
		return nil, err
	}
	return cmd.Parameters, nil
}

// runner is a *sql.DB or a *sql.Tx.
type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Query represents a query on a database. It is designed to be run once.
type Query struct {
	ctx context.Context
	r   runner
	db  *DB
	// cmd is the bound copy of the command.
	cmd  *provider.Command
	sql  string
	args []any
	err  error
}

// Query builds a new query from a context, a [Command] and a parameter
// source. The source is a struct, a map with string keys or a [Record]; nil
// binds no parameters. The query is run on the database when one of
// [Query.Iter], [Query.Run], [Query.Get], [Query.GetAll] or [Query.Records]
// is executed.
func (db *DB) Query(ctx context.Context, cmd *Command, source any) *Query {
	return db.query(ctx, db.sqldb, cmd, source)
}

func (db *DB) query(ctx context.Context, r runner, cmd *Command, source any) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	q := &Query{ctx: ctx, r: r, db: db}
	q.cmd, q.err = db.bound(ctx, r, cmd, source)
	if q.err == nil {
		q.sql, q.args, q.err = db.provider.Render(q.cmd)
	}
	return q
}

// bound returns a copy of cmd with the fields of source bound to its
// parameters.
func (db *DB) bound(ctx context.Context, q provider.Querier, cmd *Command, source any) (*provider.Command, error) {
	if cmd == nil {
		return nil, errors.New(errors.ArgumentNull, "sqlbind.Query", "command is nil", errors.WithName("cmd"))
	}
	var c *provider.Command
	if cmd.Type == provider.StoredProcedure {
		var err error
		c, err = paramCache.command(ctx, db, q, cmd.Text)
		if err != nil {
			return nil, err
		}
	} else {
		c = &provider.Command{Text: cmd.Text, Type: provider.Text}
	}
	err := bind.Materialize(source, c, db.provider, bind.Options{
		StrictProcedureBinding: db.opts.strict,
		Logger:                 db.opts.logger,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Iterator is used to iterate over the results of the query.
type Iterator struct {
	cmd     *provider.Command
	args    []any
	rows    *sql.Rows
	cols    []string
	xml     []bool
	schema  []provider.Column
	err     error
	outcome *Outcome
	started bool
}

// Run is used to run a query on a database and disregard any results.
// Run is an alias for [Query.Get] that takes no arguments.
func (q *Query) Run() error {
	return q.Get()
}

// Get runs the query and reads the first row returned into the provided
// output arguments, each a *[Record] or a map[string]any. It returns
// [ErrNoRows] if output arguments were provided but no results were found.
//
// A pointer to an empty [Outcome] struct may be provided as the first output
// variable to fill it with information about query execution. Without row
// outputs the query is executed as a statement, so the [Outcome] result holds
// the number of rows affected.
func (q *Query) Get(outputArgs ...any) error {
	if q.err != nil {
		return q.err
	}
	var outcome *Outcome
	if len(outputArgs) > 0 {
		if oc, ok := outputArgs[0].(*Outcome); ok {
			outcome = oc
			outputArgs = outputArgs[1:]
		}
	}
	if len(outputArgs) == 0 {
		return q.exec(outcome)
	}

	var err error
	iter := q.Iter()
	if outcome != nil {
		err = iter.Get(outcome)
	}
	if err == nil && !iter.Next() {
		err = iter.Close()
		if err == nil {
			err = ErrNoRows
		}
		return err
	}
	if err == nil {
		err = iter.Get(outputArgs...)
	}
	if cerr := iter.Close(); err == nil {
		err = cerr
	}
	return err
}

func (q *Query) exec(outcome *Outcome) error {
	result, err := q.r.ExecContext(q.ctx, q.sql, q.args...)
	if err != nil {
		return err
	}
	provider.CopyOutputs(q.cmd, q.args)
	if outcome != nil {
		outcome.result = result
		outcome.cmd = q.cmd
	}
	return nil
}

// Iter returns an [Iterator] to iterate through the results row by row.
// [Iterator.Close] must be run once iteration is finished.
func (q *Query) Iter() *Iterator {
	if q.err != nil {
		return &Iterator{err: q.err}
	}
	iter := &Iterator{cmd: q.cmd, args: q.args}
	rows, err := q.r.QueryContext(q.ctx, q.sql, q.args...)
	if err != nil {
		iter.err = err
		return iter
	}
	iter.rows = rows
	if iter.cols, err = rows.Columns(); err != nil {
		iter.err = err
		return iter
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		iter.err = err
		return iter
	}
	iter.schema = provider.ColumnsFromTypes(types)
	iter.xml = make([]bool, len(iter.schema))
	for i := range iter.schema {
		if iter.xml[i], err = q.db.provider.IsXMLColumn(q.cmd, iter.schema, i); err != nil {
			iter.err = err
			return iter
		}
	}
	return iter
}

// Schema returns the columns of the result.
func (iter *Iterator) Schema() []provider.Column {
	return iter.schema
}

// Next prepares the next row for [Iterator.Get]. If an error occurs during
// iteration it will be returned with [Iterator.Close].
func (iter *Iterator) Next() bool {
	iter.started = true
	if iter.err != nil || iter.rows == nil {
		return false
	}
	return iter.rows.Next()
}

// Get reads the row from the previous [Iterator.Next] call into the provided
// output arguments, each a *[Record] or a map[string]any. Columns holding XML
// are read as [provider.XML] values.
//
// Before the first call of [Iterator.Next] a pointer to an empty [Outcome]
// struct may be passed to Get as the only argument. It is filled when the
// iterator is closed.
func (iter *Iterator) Get(outputArgs ...any) (err error) {
	if iter.err != nil {
		return iter.err
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot get result: %w", err)
		}
	}()

	if !iter.started {
		if len(outputArgs) == 1 {
			if oc, ok := outputArgs[0].(*Outcome); ok {
				iter.outcome = oc
				return nil
			}
		}
		return fmt.Errorf("cannot call Get before Next unless getting outcome")
	}

	if iter.rows == nil {
		return fmt.Errorf("iteration ended")
	}

	values := make([]any, len(iter.cols))
	ptrs := make([]any, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := iter.rows.Scan(ptrs...); err != nil {
		return err
	}
	for i, v := range values {
		if !iter.xml[i] {
			continue
		}
		switch v := v.(type) {
		case string:
			values[i] = provider.XML(v)
		case []byte:
			values[i] = provider.XML(v)
		}
	}

	for _, arg := range outputArgs {
		switch out := arg.(type) {
		case *Record:
			if out == nil {
				return errors.New(errors.ArgumentNull, "sqlbind.Iterator.Get", "record is nil")
			}
			for i, col := range iter.cols {
				out.Set(col, values[i])
			}
		case map[string]any:
			if out == nil {
				return errors.New(errors.ArgumentNull, "sqlbind.Iterator.Get", "map is nil")
			}
			for i, col := range iter.cols {
				out[col] = values[i]
			}
		default:
			return errors.New(errors.UnsupportedOperation, "sqlbind.Iterator.Get", fmt.Sprintf("need *Record or map[string]any, got %T", arg))
		}
	}
	return nil
}

// Close finishes the iteration and returns any errors encountered. Close can
// be called multiple times on the [Iterator] and the same error will be
// returned.
func (iter *Iterator) Close() error {
	iter.started = true
	if iter.rows == nil {
		return iter.err
	}
	err := iter.rows.Close()
	iter.rows = nil
	if iter.err != nil {
		return iter.err
	}
	if err == nil {
		// Output parameters are set once all results are read.
		provider.CopyOutputs(iter.cmd, iter.args)
		if iter.outcome != nil {
			iter.outcome.cmd = iter.cmd
		}
	}
	return err
}

// Outcome holds metadata about executed queries, and can be provided as the
// first output argument to any of the Get methods to populate it with
// information about the query execution.
type Outcome struct {
	result sql.Result
	cmd    *provider.Command
}

// Result returns a [sql.Result] containing information about the query
// execution. It is only set for queries run without row outputs.
func (o *Outcome) Result() sql.Result {
	return o.result
}

// Parameters returns the parameters the command was run with. For a stored
// procedure, output parameters hold the values sent back by the database.
func (o *Outcome) Parameters() []*provider.Parameter {
	if o.cmd == nil {
		return nil
	}
	return o.cmd.Parameters
}

// Outputs returns the values of the output parameters and return value of
// a stored procedure call, by parameter name without its prefix.
func (o *Outcome) Outputs() *Record {
	r := NewRecord()
	for _, p := range o.Parameters() {
		if p.IsOutput() && p.Bound {
			r.Set(provider.TrimPrefix(p.Name), p.Value)
		}
	}
	return r
}

// GetAll iterates over the query and reads all rows into the provided
// slices. sliceArgs must be pointers to []*Record or []map[string]any.
// A pointer to an empty [Outcome] struct may be provided as the first output
// variable to get information about query execution.
//
// [ErrNoRows] will be returned if no rows are found.
func (q *Query) GetAll(sliceArgs ...any) (err error) {
	if q.err != nil {
		return q.err
	}

	var outcome *Outcome
	if len(sliceArgs) > 0 {
		if oc, ok := sliceArgs[0].(*Outcome); ok {
			outcome = oc
			sliceArgs = sliceArgs[1:]
		}
	}
	for _, arg := range sliceArgs {
		switch s := arg.(type) {
		case *[]*Record, *[]map[string]any:
			if reflect.ValueOf(s).IsNil() {
				return fmt.Errorf("need pointer to slice, got nil")
			}
		default:
			return fmt.Errorf("need *[]*Record or *[]map[string]any, got %T", arg)
		}
	}

	records := make([][]*Record, len(sliceArgs))
	maps := make([][]map[string]any, len(sliceArgs))

	rowsReturned := false
	iter := q.Iter()
	if outcome != nil {
		if err := iter.Get(outcome); err != nil {
			iter.Close()
			return err
		}
	}
	for iter.Next() {
		rowsReturned = true
		outputArgs := make([]any, len(sliceArgs))
		for i, arg := range sliceArgs {
			switch arg.(type) {
			case *[]*Record:
				r := NewRecord()
				records[i] = append(records[i], r)
				outputArgs[i] = r
			case *[]map[string]any:
				m := map[string]any{}
				maps[i] = append(maps[i], m)
				outputArgs[i] = m
			}
		}
		if err := iter.Get(outputArgs...); err != nil {
			iter.Close()
			return err
		}
	}
	err = iter.Close()
	if err != nil {
		return err
	} else if !rowsReturned {
		return ErrNoRows
	}

	for i, arg := range sliceArgs {
		switch s := arg.(type) {
		case *[]*Record:
			*s = append(*s, records[i]...)
		case *[]map[string]any:
			*s = append(*s, maps[i]...)
		}
	}
	return nil
}

// Records runs the query and returns every row. Unlike [Query.GetAll] it
// returns no error when there are no rows.
func (q *Query) Records() ([]*Record, error) {
	var rs []*Record
	if err := q.GetAll(&rs); err != nil && err != ErrNoRows {
		return nil, err
	}
	return rs, nil
}

// TX represents a transaction on the database.
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. A transaction must be ended
// with a [TX.Commit] or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, err
	}
	return &TX{sqltx: sqltx, db: db}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}

// Query builds a new query run in the transaction. Procedure parameters not
// yet cached are read from the catalog within the transaction.
func (tx *TX) Query(ctx context.Context, cmd *Command, source any) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx.isDone() {
		return &Query{ctx: ctx, err: ErrTXDone}
	}
	return tx.db.query(ctx, tx.sqltx, cmd, source)
}
