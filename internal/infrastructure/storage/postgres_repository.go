package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

const contentTable = "content_items"

// Schema creates the content table when it is missing.
const Schema = `CREATE TABLE IF NOT EXISTS content_items (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    type          TEXT NOT NULL,
    content_type  TEXT,
    url           TEXT,
    title         TEXT,
    description   TEXT,
    summary       TEXT,
    image_url     TEXT,
    favicon_url   TEXT,
    audio_url     TEXT,
    tags          JSONB,
    color_palette TEXT[],
    sentiment     JSONB,
    status        TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS content_items_status_updated_idx ON content_items (status, updated_at);`

var contentColumns = []string{
	"id", "user_id", "type", "content_type", "url", "title", "description", "summary",
	"image_url", "favicon_url", "audio_url", "tags", "color_palette", "sentiment",
	"status", "created_at", "updated_at", "expires_at",
}

type contentRow struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	Type         string         `db:"type"`
	ContentType  sql.NullString `db:"content_type"`
	URL          sql.NullString `db:"url"`
	Title        sql.NullString `db:"title"`
	Description  sql.NullString `db:"description"`
	Summary      sql.NullString `db:"summary"`
	ImageURL     sql.NullString `db:"image_url"`
	FaviconURL   sql.NullString `db:"favicon_url"`
	AudioURL     sql.NullString `db:"audio_url"`
	Tags         []byte         `db:"tags"`
	ColorPalette pq.StringArray `db:"color_palette"`
	Sentiment    []byte         `db:"sentiment"`
	Status       sql.NullString `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	ExpiresAt    sql.NullTime   `db:"expires_at"`
}

// PostgresRepository stores content records in Postgres.
type PostgresRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

var _ ports.ContentRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: sqlx.NewDb(db, "postgres"),
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema applies Schema.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Get loads one record by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (domain.ContentItem, error) {
	query, args, err := r.sb.Select(contentColumns...).
		From(contentTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.ContentItem{}, fmt.Errorf("build select: %w", err)
	}

	var row contentRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ContentItem{}, fmt.Errorf("content %s: %w", id, domain.ErrNotFound)
		}
		return domain.ContentItem{}, fmt.Errorf("select content: %w", err)
	}

	return row.toDomain()
}

// SaveEnrichment writes only the fields the patch sets, plus status.
func (r *PostgresRepository) SaveEnrichment(ctx context.Context, id string, patch domain.Patch, status domain.Status) error {
	set, err := patchColumns(patch)
	if err != nil {
		return err
	}
	set["status"] = string(status)
	set["updated_at"] = sq.Expr("NOW()")

	return r.update(ctx, id, set)
}

// SetStatus changes only the status column.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status domain.Status) error {
	return r.update(ctx, id, map[string]any{
		"status":     string(status),
		"updated_at": sq.Expr("NOW()"),
	})
}

// ListStale returns ids in status whose last update is older than olderThan.
func (r *PostgresRepository) ListStale(ctx context.Context, status domain.Status, olderThan time.Time, limit int) ([]string, error) {
	builder := r.sb.Select("id").
		From(contentTable).
		Where(sq.Eq{"status": string(status)}).
		Where(sq.Lt{"updated_at": olderThan}).
		OrderBy("updated_at")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stale query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select stale: %w", err)
	}
	return ids, nil
}

func (r *PostgresRepository) update(ctx context.Context, id string, set map[string]any) error {
	query, args, err := r.sb.Update(contentTable).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("content %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func patchColumns(p domain.Patch) (map[string]any, error) {
	set := map[string]any{}
	strCols := map[string]*string{
		"content_type": p.ContentType,
		"title":        p.Title,
		"description":  p.Description,
		"summary":      p.Summary,
		"image_url":    p.ImageURL,
		"favicon_url":  p.FaviconURL,
	}
	for col, v := range strCols {
		if v != nil {
			set[col] = *v
		}
	}

	if p.SetTags {
		raw, err := json.Marshal(p.Tags)
		if err != nil {
			return nil, fmt.Errorf("marshal tags: %w", err)
		}
		set["tags"] = raw
	}
	if p.SetPalette {
		set["color_palette"] = pq.StringArray(p.ColorPalette)
	}
	if p.Sentiment != nil {
		raw, err := json.Marshal(p.Sentiment)
		if err != nil {
			return nil, fmt.Errorf("marshal sentiment: %w", err)
		}
		set["sentiment"] = raw
	}
	return set, nil
}

func (row contentRow) toDomain() (domain.ContentItem, error) {
	status, err := domain.ParseStatus(row.Status.String)
	if err != nil {
		return domain.ContentItem{}, fmt.Errorf("content %s: %w", row.ID, err)
	}
	if !domain.ItemType(row.Type).Valid() {
		return domain.ContentItem{}, fmt.Errorf("content %s: %w: %q", row.ID, domain.ErrUnsupportedType, row.Type)
	}

	item := domain.ContentItem{
		ID:          row.ID,
		UserID:      row.UserID,
		Type:        domain.ItemType(row.Type),
		ContentType: row.ContentType.String,
		URL:         row.URL.String,
		Title:       row.Title.String,
		Description: row.Description.String,
		Summary:     row.Summary.String,
		ImageURL:    row.ImageURL.String,
		FaviconURL:  row.FaviconURL.String,
		AudioURL:    row.AudioURL.String,
		Status:      status,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.ColorPalette != nil {
		item.ColorPalette = []string(row.ColorPalette)
	}
	if row.ExpiresAt.Valid {
		t := row.ExpiresAt.Time
		item.ExpiresAt = &t
	}
	if len(row.Tags) > 0 {
		if err := json.Unmarshal(row.Tags, &item.Tags); err != nil {
			return domain.ContentItem{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(row.Sentiment) > 0 {
		var s domain.Sentiment
		if err := json.Unmarshal(row.Sentiment, &s); err != nil {
			return domain.ContentItem{}, fmt.Errorf("decode sentiment: %w", err)
		}
		item.Sentiment = &s
	}
	return item, nil
}
