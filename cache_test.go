// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"context"
	"database/sql"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlbind/internal/typeinfo"
	"github.com/canonical/sqlbind/provider"
	"github.com/canonical/sqlbind/provider/sqlite"
)

type CacheSuite struct{}

var _ = Suite(&CacheSuite{})

// procProvider is a provider for sqlmock databases that knows a single
// stored procedure, add_person(@name, @id OUTPUT).
type procProvider struct {
	provider.Provider
	driver  reflect.Type
	derived int
}

func (p *procProvider) Name() string {
	return "proc"
}

func (p *procProvider) SupportedTypes() []reflect.Type {
	return []reflect.Type{p.driver}
}

func (p *procProvider) DeriveParameters(ctx context.Context, q provider.Querier, cmd *provider.Command) error {
	p.derived++
	if !typeinfo.SameName(cmd.Text, "add_person") {
		return provider.ProcedureNotFound("proc.DeriveParameters", cmd.Text)
	}
	cmd.Parameters = []*provider.Parameter{
		{Name: "@name", DBType: provider.String, Direction: provider.Input},
		{Name: "@id", DBType: provider.Int64, Direction: provider.Output},
	}
	cmd.Derived = true
	return nil
}

func (p *procProvider) CloneParameter(cmd *provider.Command, param *provider.Parameter) (*provider.Parameter, error) {
	return param.Clone(), nil
}

func (p *procProvider) Render(cmd *provider.Command) (string, []any, error) {
	if cmd.Type != provider.StoredProcedure {
		return p.Provider.Render(cmd)
	}
	var names []string
	var args []any
	for _, param := range provider.CallParameters(cmd) {
		name := provider.TrimPrefix(param.Name)
		names = append(names, "@"+name)
		if param.IsOutput() {
			out, err := provider.Out(name, param)
			if err != nil {
				return "", nil, err
			}
			args = append(args, out)
		} else {
			args = append(args, sql.Named(name, param.Value))
		}
	}
	return "CALL " + cmd.Text + "(" + strings.Join(names, ", ") + ")", args, nil
}

func (s *CacheSuite) openDB(c *C) (*DB, sqlmock.Sqlmock, *procProvider) {
	sqldb, mock, err := sqlmock.New()
	c.Assert(err, IsNil)
	p := &procProvider{Provider: sqlite.Provider, driver: reflect.TypeOf(sqldb.Driver())}
	r := provider.NewRegistry()
	r.Register(p)
	db, err := NewDB(sqldb, WithRegistry(r))
	c.Assert(err, IsNil)
	return db, mock, p
}

func (s *CacheSuite) TestDerivedParametersReuse(c *C) {
	db, mock, p := s.openDB(c)
	defer db.Close()

	mock.ExpectExec(`CALL add_person\(@name, @id\)`).WithArgs("Ann", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?i)CALL add_person\(@id\)`).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.Query(nil, Procedure("add_person"), map[string]any{"name": "Ann"}).Run()
	c.Assert(err, IsNil)
	// The procedure name is matched ignoring case.
	err = db.Query(nil, Procedure("ADD_PERSON"), nil).Run()
	c.Assert(err, IsNil)
	c.Check(p.derived, Equals, 1)
	c.Assert(mock.ExpectationsWereMet(), IsNil)

	// The cached parameters are never bound.
	tmpl := s.cached(c, db, "add_person")
	c.Assert(tmpl.Parameters, HasLen, 2)
	c.Check(tmpl.Parameters[0].Bound, Equals, false)
	c.Check(tmpl.Parameters[0].Value, IsNil)
}

func (s *CacheSuite) TestAbsentAndNullParameters(c *C) {
	db, mock, _ := s.openDB(c)
	defer db.Close()

	// An absent field leaves the parameter out of the call.
	mock.ExpectExec(`^CALL add_person\(@id\)$`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// A nil field passes NULL.
	mock.ExpectExec(`^CALL add_person\(@name, @id\)$`).
		WithArgs(sql.Named("name", nil), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^CALL add_person\(@name, @id\)$`).
		WithArgs(sql.Named("name", nil), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c.Assert(db.Query(nil, Procedure("add_person"), map[string]any{"other": 1}).Run(), IsNil)
	c.Assert(db.Query(nil, Procedure("add_person"), map[string]any{"name": nil}).Run(), IsNil)
	var name *string
	c.Assert(db.Query(nil, Procedure("add_person"), struct{ Name *string }{name}).Run(), IsNil)
	c.Assert(mock.ExpectationsWereMet(), IsNil)
}

func (s *CacheSuite) TestForgetProcedure(c *C) {
	db, mock, p := s.openDB(c)
	defer db.Close()

	mock.ExpectExec("CALL add_person").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("CALL add_person").WillReturnResult(sqlmock.NewResult(0, 1))

	c.Assert(db.Query(nil, Procedure("add_person"), nil).Run(), IsNil)
	db.ForgetProcedure("Add_Person")
	c.Assert(db.Query(nil, Procedure("add_person"), nil).Run(), IsNil)
	c.Check(p.derived, Equals, 2)
}

func (s *CacheSuite) TestDerivationFailureNotCached(c *C) {
	db, _, p := s.openDB(c)
	defer db.Close()

	for i := 0; i < 2; i++ {
		err := db.Query(nil, Procedure("missing"), nil).Run()
		c.Check(err, ErrorMatches, `proc.DeriveParameters: no catalog entry for stored procedure \(missing\)`)
	}
	c.Check(p.derived, Equals, 2)
	c.Check(s.cached(c, db, "missing"), IsNil)
}

func (s *CacheSuite) TestClosingDB(c *C) {
	var dbID int64
	// For a DB to be removed from the cache it needs to go out of scope and
	// be garbage collected. A function is used to "forget" the DB.
	func() {
		db, mock, _ := s.openDB(c)
		dbID = db.cacheID
		mock.ExpectExec("CALL add_person").WillReturnResult(sqlmock.NewResult(0, 1))
		c.Assert(db.Query(nil, Procedure("add_person"), nil).Run(), IsNil)
		c.Check(s.cached(c, db, "add_person"), NotNil)
	}()

	s.triggerFinalizers()
	paramCache.mutex.RLock()
	defer paramCache.mutex.RUnlock()
	_, ok := paramCache.commands[dbID]
	c.Check(ok, Equals, false)
}

func (s *CacheSuite) cached(c *C, db *DB, name string) *provider.Command {
	paramCache.mutex.RLock()
	defer paramCache.mutex.RUnlock()
	commands, ok := paramCache.commands[db.cacheID]
	c.Assert(ok, Equals, true)
	return commands[typeinfo.Fold(name)]
}

func (s *CacheSuite) triggerFinalizers() {
	// Try to run finalizers by calling GC several times.
	for i := 0; i <= 10; i++ {
		runtime.GC()
		time.Sleep(0)
	}
}
