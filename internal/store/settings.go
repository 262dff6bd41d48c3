package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/intelevision/internal/label"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Setting keys.
const (
	KeyTuning     = "tuning"
	KeyVocabulary = "vocabulary"
)

// SettingsRepository stores key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	return err
}

// Delete removes key.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadTuning returns the stored tuning table. Fields missing from the stored
// JSON keep their values from fallback.
func (r *SettingsRepository) LoadTuning(fallback label.Tuning) (label.Tuning, error) {
	raw, err := r.Get(KeyTuning)
	if err != nil {
		return fallback, err
	}

	t := fallback.Clone()
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return fallback, fmt.Errorf("decode stored tuning: %w", err)
	}
	if err := t.Validate(); err != nil {
		return fallback, fmt.Errorf("stored tuning is invalid: %w", err)
	}
	return t, nil
}

// SaveTuning validates and stores t.
func (r *SettingsRepository) SaveTuning(t label.Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return r.Set(KeyTuning, string(data))
}

// LoadVocabulary returns the stored vocabulary name.
func (r *SettingsRepository) LoadVocabulary() (string, error) {
	return r.Get(KeyVocabulary)
}

// SaveVocabulary stores the vocabulary name after checking it exists.
func (r *SettingsRepository) SaveVocabulary(name string) error {
	if _, err := label.NewVocabulary(name); err != nil {
		return err
	}
	return r.Set(KeyVocabulary, name)
}
