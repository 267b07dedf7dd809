// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"database/sql"
	"encoding/json"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/lsm"
)

type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	// a memory db lives as long as its single connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &LogDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

func (db *LogDB) DriverVersion() string {
	return db.driverVersion
}

// Write stores events of one committed execution atomically.
func (db *LogDB) Write(ctx context.Context, height uint64, sender lsm.Address, events []*Event) (err error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO event(height, eventIndex, sender, contract, type, attributes) VALUES(?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ev := range events {
		attrs, err := json.Marshal(ev.Attributes)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, height, i, sender.String(), ev.Contract.String(), ev.Type, string(attrs)); err != nil {
			return errors.Wrap(err, "insert event")
		}
	}
	return tx.Commit()
}

// FilterEvents returns events matching the filter.
func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	if filter == nil {
		return db.queryEvents(ctx, "SELECT height, eventIndex, sender, contract, type, attributes FROM event ORDER BY height ASC, eventIndex ASC")
	}
	var args []any
	stmt := "SELECT height, eventIndex, sender, contract, type, attributes FROM event WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND height >= ?"
		if filter.Range.To >= filter.Range.From && filter.Range.To > 0 {
			args = append(args, filter.Range.To)
			stmt += " AND height <= ?"
		}
	}
	if !filter.Contract.IsZero() {
		args = append(args, filter.Contract.String())
		stmt += " AND contract = ?"
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		stmt += " AND type = ?"
	}

	if filter.Order == DESC {
		stmt += " ORDER BY height DESC, eventIndex DESC"
	} else {
		stmt += " ORDER BY height ASC, eventIndex ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, query string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			ev       Event
			sender   string
			contract string
			attrs    string
		)
		if err := rows.Scan(&ev.Height, &ev.EventIndex, &sender, &contract, &ev.Type, &attrs); err != nil {
			return nil, err
		}
		ev.Sender = lsm.Address(sender)
		ev.Contract = lsm.Address(contract)
		if err := json.Unmarshal([]byte(attrs), &ev.Attributes); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
