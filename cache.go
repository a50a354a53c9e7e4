// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"context"
	"database/sql"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/canonical/sqlbind/internal/typeinfo"
	"github.com/canonical/sqlbind/provider"
)

// dbIDCount is used to generate unique DB IDs.
var dbIDCount int64

type dbID = int64

// parameterCache caches the parameters derived from the catalog for each
// stored procedure called on a DB. The cache is indexed by the DB ID and
// the folded procedure name. Cached commands are templates: every call
// binds clones of their parameters.
//
// A finalizer set on each DB removes its entries from the cache, and closes
// the sql.DB if it was opened by sqlbind.
//
// The mutex must be locked when accessing commands.
type parameterCache struct {
	commands map[dbID]map[string]*provider.Command
	mutex    sync.RWMutex
}

var once sync.Once
var singleParamCache *parameterCache

// newParameterCache returns the single instance of the parameter cache.
func newParameterCache() *parameterCache {
	once.Do(func() {
		singleParamCache = &parameterCache{
			commands: map[dbID]map[string]*provider.Command{},
		}
	})
	return singleParamCache
}

// newDB returns a new DB and allocates it in the cache.
func (pc *parameterCache) newDB(sqldb *sql.DB, p provider.Provider, opts options, owned bool) *DB {
	cacheID := atomic.AddInt64(&dbIDCount, 1)
	pc.mutex.Lock()
	pc.commands[cacheID] = map[string]*provider.Command{}
	pc.mutex.Unlock()
	db := &DB{sqldb: sqldb, provider: p, opts: opts, cacheID: cacheID, owned: owned}
	runtime.SetFinalizer(db, pc.getDBFinalizer(db))
	return db
}

// command returns a derived command for the named procedure with parameters
// ready to bind. The catalog is read through q the first time the procedure
// is called on db.
func (pc *parameterCache) command(ctx context.Context, db *DB, q provider.Querier, name string) (*provider.Command, error) {
	key := typeinfo.Fold(name)
	pc.mutex.RLock()
	tmpl, ok := pc.commands[db.cacheID][key]
	pc.mutex.RUnlock()
	if ok {
		db.opts.logger.Trace("derived parameters cached", "procedure", name)
	} else {
		db.opts.logger.Trace("deriving parameters", "procedure", name)
		tmpl = &provider.Command{Text: name, Type: provider.StoredProcedure}
		if err := db.provider.DeriveParameters(ctx, q, tmpl); err != nil {
			return nil, err
		}
		pc.mutex.Lock()
		// Check if the procedure has been derived by someone else since we
		// last checked.
		if alt, ok := pc.commands[db.cacheID][key]; ok {
			tmpl = alt
		} else {
			pc.commands[db.cacheID][key] = tmpl
		}
		pc.mutex.Unlock()
	}

	cmd := &provider.Command{Text: name, Type: provider.StoredProcedure, Derived: true, Routine: tmpl.Routine}
	cmd.Parameters = make([]*provider.Parameter, 0, len(tmpl.Parameters))
	for _, p := range tmpl.Parameters {
		c, err := db.provider.CloneParameter(tmpl, p)
		if err != nil {
			return nil, err
		}
		cmd.Parameters = append(cmd.Parameters, c)
	}
	return cmd, nil
}

// forget removes the cached parameters of the named procedure.
func (pc *parameterCache) forget(db *DB, name string) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()
	delete(pc.commands[db.cacheID], typeinfo.Fold(name))
}

// getDBFinalizer returns a finalizer that removes the database from the
// cache, then closes the sql.DB if sqlbind opened it.
func (pc *parameterCache) getDBFinalizer(db *DB) func(*DB) {
	return func(db *DB) {
		pc.mutex.Lock()
		delete(pc.commands, db.cacheID)
		pc.mutex.Unlock()
		if db.owned {
			db.sqldb.Close()
		}
	}
}
