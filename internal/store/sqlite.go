package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"medstore/m/domain"
	"medstore/m/internal/database"
	"medstore/m/internal/migrations"
)

const selectColumns = `SELECT id, name, location, category, expiry_date FROM medicine`

// SQLiteStore persists records in a single SQLite file. Every operation opens
// its own connection, runs the schema migration and closes again.
type SQLiteStore struct {
	dsn string
}

// NewSQLiteStore constructs a SQLiteStore and makes sure the schema exists.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	s := &SQLiteStore{dsn: dsn}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	_ = db.Close()
	return s, nil
}

func (s *SQLiteStore) open() (*sqlx.DB, error) {
	db, err := database.Connect(s.dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Insert stores a new record and returns it with its assigned id.
func (s *SQLiteStore) Insert(ctx context.Context, name, location, category, expiryDate string) (domain.MedicineRecord, error) {
	rec := domain.MedicineRecord{Name: name, Location: location, Category: category, ExpiryDate: expiryDate}
	if !rec.Complete() {
		return domain.MedicineRecord{}, ErrIncompleteRecord
	}

	db, err := s.open()
	if err != nil {
		return domain.MedicineRecord{}, err
	}
	defer db.Close()

	res, err := db.ExecContext(ctx, `INSERT INTO medicine (name, location, category, expiry_date) VALUES (?, ?, ?, ?)`,
		rec.Name, rec.Location, rec.Category, rec.ExpiryDate)
	if err != nil {
		return domain.MedicineRecord{}, translate(err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return domain.MedicineRecord{}, fmt.Errorf("read inserted id: %w", err)
	}
	zap.L().Info("medicine stored", zap.Int64("id", rec.ID), zap.String("name", rec.Name), zap.String("location", rec.Location))
	return rec, nil
}

// Restore appends rec verbatim. A non-zero ID is kept as is.
func (s *SQLiteStore) Restore(ctx context.Context, rec domain.MedicineRecord) (domain.MedicineRecord, error) {
	if !rec.Complete() {
		return domain.MedicineRecord{}, ErrIncompleteRecord
	}

	db, err := s.open()
	if err != nil {
		return domain.MedicineRecord{}, err
	}
	defer db.Close()

	if rec.ID == 0 {
		res, err := db.ExecContext(ctx, `INSERT INTO medicine (name, location, category, expiry_date) VALUES (?, ?, ?, ?)`,
			rec.Name, rec.Location, rec.Category, rec.ExpiryDate)
		if err != nil {
			return domain.MedicineRecord{}, translate(err)
		}
		if rec.ID, err = res.LastInsertId(); err != nil {
			return domain.MedicineRecord{}, fmt.Errorf("read inserted id: %w", err)
		}
		return rec, nil
	}

	if _, err := db.NamedExecContext(ctx, `INSERT INTO medicine (id, name, location, category, expiry_date) VALUES (:id, :name, :location, :category, :expiry_date)`, rec); err != nil {
		return domain.MedicineRecord{}, translate(err)
	}
	return rec, nil
}

// ListAll returns every record in insertion order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.MedicineRecord, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	records := []domain.MedicineRecord{}
	if err := db.SelectContext(ctx, &records, selectColumns+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return records, nil
}

// ListExpiring returns records whose expiry date is on or before the given
// YYYY-MM-DD date, soonest first.
func (s *SQLiteStore) ListExpiring(ctx context.Context, onOrBefore string) ([]domain.MedicineRecord, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	records := []domain.MedicineRecord{}
	if err := db.SelectContext(ctx, &records, selectColumns+` WHERE expiry_date <= ? ORDER BY expiry_date ASC, id ASC`, onOrBefore); err != nil {
		return nil, fmt.Errorf("list expiring medicines: %w", err)
	}
	return records, nil
}

// DeleteByName removes every record called name and reports how many rows
// went away. A missing name is not an error.
func (s *SQLiteStore) DeleteByName(ctx context.Context, name string) (int64, error) {
	db, err := s.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	res, err := db.ExecContext(ctx, `DELETE FROM medicine WHERE name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("delete medicine %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete medicine %s: %w", name, err)
	}
	zap.L().Info("medicine deleted", zap.String("name", name), zap.Int64("rows", n))
	return n, nil
}

func translate(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return ErrDuplicateName
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ErrDuplicateID
		}
	}
	return fmt.Errorf("insert medicine: %w", err)
}
