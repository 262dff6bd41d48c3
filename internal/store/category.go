package store

import (
	"database/sql"
	"errors"
	"time"
)

// CategoryLabel overrides how a detector category name is displayed.
type CategoryLabel struct {
	Category  string    `json:"category"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryLabelRepository provides CRUD operations for category overrides.
type CategoryLabelRepository struct {
	db *sql.DB
}

// CategoryLabels returns the category label repository for this store.
func (s *Store) CategoryLabels() *CategoryLabelRepository {
	return &CategoryLabelRepository{db: s.db}
}

// Upsert creates or replaces the override for c.Category.
func (r *CategoryLabelRepository) Upsert(c *CategoryLabel) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO category_labels (category, label, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(category) DO UPDATE SET label = excluded.label, updated_at = excluded.updated_at`,
		c.Category, c.Label, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// Get retrieves the override for category.
func (r *CategoryLabelRepository) Get(category string) (*CategoryLabel, error) {
	c := &CategoryLabel{}
	err := r.db.QueryRow(
		`SELECT category, label, created_at, updated_at
		 FROM category_labels WHERE category = ?`,
		category,
	).Scan(&c.Category, &c.Label, &c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List retrieves all overrides ordered by category.
func (r *CategoryLabelRepository) List() ([]*CategoryLabel, error) {
	rows, err := r.db.Query(
		`SELECT category, label, created_at, updated_at
		 FROM category_labels ORDER BY category`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []*CategoryLabel
	for rows.Next() {
		c := &CategoryLabel{}
		if err := rows.Scan(&c.Category, &c.Label, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		labels = append(labels, c)
	}
	return labels, rows.Err()
}

// Map returns the overrides as a category to label map.
func (r *CategoryLabelRepository) Map() (map[string]string, error) {
	labels, err := r.List()
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(labels))
	for _, c := range labels {
		m[c.Category] = c.Label
	}
	return m, nil
}

// Delete removes the override for category.
func (r *CategoryLabelRepository) Delete(category string) error {
	result, err := r.db.Exec(`DELETE FROM category_labels WHERE category = ?`, category)
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
