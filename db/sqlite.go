// Package db records training runs in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS training_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    model_name VARCHAR(50) NOT NULL,
    model_path TEXT NOT NULL,
    features TEXT NOT NULL,
    accuracy REAL,
    precision REAL,
    recall REAL,
    f1 REAL,
    train_rows INTEGER,
    test_rows INTEGER,
    dropped_rows INTEGER,
    trained_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_training_log_trained_at ON training_log(trained_at);
`

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open creates the database file and schema if needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(1)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type TrainingLog struct {
	ModelName   string    `json:"model_name"`
	ModelPath   string    `json:"model_path"`
	Features    []string  `json:"features"`
	Accuracy    float64   `json:"accuracy"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	F1          float64   `json:"f1"`
	TrainRows   int       `json:"train_rows"`
	TestRows    int       `json:"test_rows"`
	DroppedRows int       `json:"dropped_rows"`
	TrainedAt   time.Time `json:"trained_at"`
}

func (s *Store) SaveTrainingLog(ctx context.Context, log TrainingLog) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (
            model_name, model_path, features, accuracy, precision, recall, f1,
            train_rows, test_rows, dropped_rows, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ModelName,
		log.ModelPath,
		strings.Join(log.Features, ","),
		log.Accuracy,
		log.Precision,
		log.Recall,
		log.F1,
		log.TrainRows,
		log.TestRows,
		log.DroppedRows,
		log.TrainedAt.UTC(),
	)
	return err
}

// LoadTrainingLog returns runs newest first.
func (s *Store) LoadTrainingLog(ctx context.Context, limit int) ([]TrainingLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT model_name, model_path, features, accuracy, precision, recall, f1,
               train_rows, test_rows, dropped_rows, trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		var features string
		if err := rows.Scan(&log.ModelName, &log.ModelPath, &features, &log.Accuracy, &log.Precision, &log.Recall, &log.F1,
			&log.TrainRows, &log.TestRows, &log.DroppedRows, &log.TrainedAt); err != nil {
			return nil, err
		}
		if features != "" {
			log.Features = strings.Split(features, ",")
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
