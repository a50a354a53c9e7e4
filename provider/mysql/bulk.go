// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package mysql

import (
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cast"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

// Load is passed to the configure callback of a bulk copy. Changes made by
// the callback are used for the copy.
type Load struct {
	Table   string
	Columns []string
	// CharacterSet of the streamed data.
	CharacterSet string
	// Replace makes rows that duplicate an existing unique key replace the
	// existing row. Otherwise such rows are skipped.
	Replace bool
}

// statement returns the LOAD DATA statement reading from the named reader.
func (l *Load) statement(reader string) string {
	var b strings.Builder
	b.WriteString("LOAD DATA LOCAL INFILE 'Reader::" + reader + "'")
	if l.Replace {
		b.WriteString(" REPLACE")
	}
	b.WriteString(" INTO TABLE " + quote(l.Table))
	if l.CharacterSet != "" {
		b.WriteString(" CHARACTER SET " + l.CharacterSet)
	}
	b.WriteString(` FIELDS TERMINATED BY ',' OPTIONALLY ENCLOSED BY '"' ESCAPED BY '\\' LINES TERMINATED BY '\n'`)
	quoted := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		quoted[i] = quote(c)
	}
	b.WriteString(" (" + strings.Join(quoted, ", ") + ")")
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (mysqlProvider) BulkCopy(ctx context.Context, db *sql.DB, table string, rows provider.RowSource, configure provider.ConfigureFunc, opts provider.BulkOptions, tx *sql.Tx) (err error) {
	const op = "mysql.BulkCopy"
	if db == nil && tx == nil {
		return errors.New(errors.ArgumentNull, op, "database is nil", errors.WithName("db"))
	}
	if table == "" {
		return errors.New(errors.ArgumentNull, op, "table name is empty", errors.WithName("table"))
	}
	columns, err := provider.DestinationColumns(op, rows, opts)
	if err != nil {
		return err
	}
	load := &Load{Table: table, Columns: columns, CharacterSet: "utf8mb4"}
	if err := provider.Configure(op, configure, load); err != nil {
		return err
	}

	if tx != nil {
		return loadRows(ctx, tx, load, rows)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot get connection")
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()
	own, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot begin transaction")
	}
	if err := loadRows(ctx, own, load, rows); err != nil {
		if rerr := own.Rollback(); rerr != nil {
			err = multierror.Append(err, rerr)
		}
		return err
	}
	if err := own.Commit(); err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot commit")
	}
	return nil
}

// loadRows runs LOAD DATA while a goroutine writes rows to the reader the
// driver streams to the server.
func loadRows(ctx context.Context, e execer, load *Load, rows provider.RowSource) error {
	const op = "mysql.BulkCopy"
	name := "sqlbind-" + uuid.NewString()
	pr, pw := io.Pipe()
	mysql.RegisterReaderHandler(name, func() io.Reader { return pr })
	defer mysql.DeregisterReaderHandler(name)

	done := make(chan error, 1)
	go func() {
		err := writeCSV(pw, rows, len(load.Columns))
		pw.CloseWithError(err)
		done <- err
	}()

	_, err := e.ExecContext(ctx, load.statement(name))
	// Unblock the writer if the server stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	werr := <-done
	if err != nil {
		return errors.Wrap(err, errors.Unknown, op, "cannot load rows")
	}
	return werr
}

func writeCSV(w io.Writer, rows provider.RowSource, n int) error {
	const op = "mysql.BulkCopy"
	cw := csv.NewWriter(w)
	record := make([]string, n)
	_, err := provider.CopyRows(op, rows, n, func(values []any) error {
		for i, v := range values {
			s, err := field(v)
			if err != nil {
				return errors.Wrap(err, errors.UnsupportedSource, op, "cannot encode value")
			}
			record[i] = s
		}
		return cw.Write(record)
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// field encodes a value for LOAD DATA. NULL is written as \N and
// backslashes in text are escaped.
func field(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return `\N`, nil
	case string:
		return escape(v), nil
	case []byte:
		return escape(string(v)), nil
	case provider.XML:
		return escape(string(v)), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case time.Time:
		return v.Format("2006-01-02 15:04:05.999999"), nil
	case uuid.UUID:
		return v.String(), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", err
	}
	return escape(s), nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, `\`, `\\`)
}
