package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/QuizDesk/internal/db"
	"github.com/atinyakov/QuizDesk/internal/models"
)

const (
	accessKey  = "access_token"
	refreshKey = "refresh_token"
)

// SQLStore keeps the credential pair as two rows of a key-value table.
type SQLStore struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewSQLStore wraps an open database whose schema already exists.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

// OpenSQLite opens (or creates) a SQLite file and prepares the schema.
func OpenSQLite(path string) (*SQLStore, error) {
	sqlDB, err := db.InitSQLite(path)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(sqlDB), nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.DB.Close()
}

func (s *SQLStore) Load() (models.Credentials, error) {
	rows, err := s.DB.QueryContext(context.Background(),
		`SELECT key, value FROM credentials WHERE key IN (?, ?)`, accessKey, refreshKey)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	defer rows.Close()

	var creds models.Credentials
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Credentials{}, fmt.Errorf("scan credentials: %w", err)
		}
		switch key {
		case accessKey:
			creds.Access = value
		case refreshKey:
			creds.Refresh = value
		}
	}
	if err := rows.Err(); err != nil {
		return models.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	if !creds.Complete() {
		return models.Credentials{}, nil
	}
	return creds, nil
}

func (s *SQLStore) Save(creds models.Credentials) error {
	if !creds.Complete() {
		return ErrHalfPair
	}
	return s.inTx(func(tx *sql.Tx) error {
		for _, kv := range [][2]string{{accessKey, creds.Access}, {refreshKey, creds.Refresh}} {
			if _, err := tx.Exec(
				`INSERT INTO credentials (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				kv[0], kv[1],
			); err != nil {
				return fmt.Errorf("save %s: %w", kv[0], err)
			}
		}
		return nil
	})
}

func (s *SQLStore) Clear() error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM credentials WHERE key IN (?, ?)`, accessKey, refreshKey); err != nil {
			return fmt.Errorf("clear credentials: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) inTx(fn func(*sql.Tx) error) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
