package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a design ID does not exist.
	ErrNotFound = errors.New("db: design not found")
	// ErrInvalidDesign is returned when a design lacks required fields.
	ErrInvalidDesign = errors.New("db: invalid design")
)

// MaxPageSize caps ListDesigns' limit.
const MaxPageSize = 100

// Design is one persisted generation.
type Design struct {
	ID             string    `json:"id"`
	RoomType       string    `json:"room_type"`
	DesignStyle    string    `json:"design_style"`
	ColorTone      string    `json:"color_tone"`
	CustomPrompt   string    `json:"custom_prompt,omitempty"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt"`
	Variant        string    `json:"variant"`
	Bucket         string    `json:"bucket,omitempty"`
	Seed           int64     `json:"seed"`
	HasWindow      *bool     `json:"has_window,omitempty"`
	HasCurtain     *bool     `json:"has_curtain,omitempty"`
	SourceKey      string    `json:"source_key,omitempty"`
	ImageKey       string    `json:"image_key"`
	ImageURL       string    `json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// Page is one slice of the history, newest first.
type Page struct {
	Designs    []Design `json:"designs"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
}

// Repository provides CRUD over designs.
type Repository struct {
	db  *Database
	now func() time.Time
}

// NewRepository wraps an open database.
func NewRepository(database *Database) *Repository {
	return &Repository{db: database, now: time.Now}
}

const designColumns = `id, room_type, design_style, color_tone, custom_prompt, prompt,
	negative_prompt, variant, bucket, seed, has_window, has_curtain,
	source_key, image_key, image_url, created_at`

// InsertDesign stores d. CreatedAt is stamped when zero.
func (r *Repository) InsertDesign(ctx context.Context, d *Design) error {
	if d == nil || d.ID == "" || d.Prompt == "" || d.Variant == "" {
		return ErrInvalidDesign
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.now().UTC()
	}

	_, err := r.db.DB().ExecContext(ctx,
		`INSERT INTO designs (`+designColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.RoomType, d.DesignStyle, d.ColorTone, d.CustomPrompt, d.Prompt,
		d.NegativePrompt, d.Variant, d.Bucket, d.Seed, nullBool(d.HasWindow), nullBool(d.HasCurtain),
		d.SourceKey, d.ImageKey, d.ImageURL, d.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert design %s: %w", d.ID, err)
	}
	return nil
}

// GetDesign loads one design by ID.
func (r *Repository) GetDesign(ctx context.Context, id string) (*Design, error) {
	row := r.db.DB().QueryRowContext(ctx,
		`SELECT `+designColumns+` FROM designs WHERE id = ?`, id)
	d, err := scanDesign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get design %s: %w", id, err)
	}
	return d, nil
}

// ListDesigns returns page (1-based) of at most limit designs, newest first.
// Out of range arguments are clamped rather than rejected.
func (r *Repository) ListDesigns(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	total, err := r.CountDesigns(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT `+designColumns+` FROM designs
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list designs: %w", err)
	}
	defer rows.Close()

	designs := make([]Design, 0, limit)
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan design: %w", err)
		}
		designs = append(designs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate designs: %w", err)
	}

	return &Page{
		Designs:    designs,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// DeleteDesign removes a design and returns what was deleted so callers can
// drop the stored images.
func (r *Repository) DeleteDesign(ctx context.Context, id string) (*Design, error) {
	d, err := r.GetDesign(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM designs WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete design %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d, nil
}

// CountDesigns returns the number of stored designs.
func (r *Repository) CountDesigns(ctx context.Context) (int, error) {
	var n int
	if err := r.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM designs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count designs: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes designs created before cutoff and returns them.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]Design, error) {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT `+designColumns+` FROM designs WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query expired designs: %w", err)
	}
	var expired []Design
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan design: %w", err)
		}
		expired = append(expired, *d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(expired) == 0 {
		return nil, nil
	}
	if _, err := r.db.DB().ExecContext(ctx,
		`DELETE FROM designs WHERE created_at < ?`, cutoff.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to delete expired designs: %w", err)
	}
	return expired, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDesign(s scanner) (*Design, error) {
	var (
		d          Design
		hasWindow  sql.NullInt64
		hasCurtain sql.NullInt64
		createdAt  int64
	)
	err := s.Scan(&d.ID, &d.RoomType, &d.DesignStyle, &d.ColorTone, &d.CustomPrompt, &d.Prompt,
		&d.NegativePrompt, &d.Variant, &d.Bucket, &d.Seed, &hasWindow, &hasCurtain,
		&d.SourceKey, &d.ImageKey, &d.ImageURL, &createdAt)
	if err != nil {
		return nil, err
	}
	d.HasWindow = boolPtr(hasWindow)
	d.HasCurtain = boolPtr(hasCurtain)
	d.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &d, nil
}

func nullBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	if *b {
		return sql.NullInt64{Int64: 1, Valid: true}
	}
	return sql.NullInt64{Int64: 0, Valid: true}
}

func boolPtr(n sql.NullInt64) *bool {
	if !n.Valid {
		return nil
	}
	b := n.Int64 != 0
	return &b
}
