// Package store is the document store adapter: CRUD and advanced find/count
// over the relational backend, plus the transaction wrapper that scopes
// tenant-isolation context to a single transaction.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/inkhub/inkhub/internal/pkg/xtime"
	"github.com/inkhub/inkhub/internal/query"
)

// Status is the document lifecycle status.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

const documentsTable = "documents"

// documentColumns is the column order used by every select and scan.
var documentColumns = []string{
	"id", "organization_id", "type", "status",
	"draft_data", "published_data", "published_hash",
	"created_by", "updated_by",
	"created_at", "updated_at", "published_at",
}

// Document is one typed record. The published triad (PublishedData,
// PublishedHash, PublishedAt) is either all unset or all set.
type Document struct {
	ID             string
	OrganizationID string
	Type           string
	Status         Status
	DraftData      map[string]any
	PublishedData  map[string]any
	PublishedHash  string
	CreatedBy      string
	UpdatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PublishedAt    *time.Time
}

// IsPublished reports whether the published triad is set.
func (d *Document) IsPublished() bool {
	return d.PublishedAt != nil
}

// Data returns the payload selected by the perspective; nil for the
// published perspective of an unpublished document.
func (d *Document) Data(persp query.Perspective) map[string]any {
	if persp == query.PerspectivePublished {
		return d.PublishedData
	}

	return d.DraftData
}

func scanDocument(rows *entsql.Rows) (*Document, error) {
	var (
		doc           Document
		status        sql.NullString
		draftRaw      sql.NullString
		publishedRaw  sql.NullString
		publishedHash sql.NullString
		createdBy     sql.NullString
		updatedBy     sql.NullString
		createdAt     string
		updatedAt     string
		publishedAt   sql.NullString
	)

	err := rows.Scan(
		&doc.ID, &doc.OrganizationID, &doc.Type, &status,
		&draftRaw, &publishedRaw, &publishedHash,
		&createdBy, &updatedBy,
		&createdAt, &updatedAt, &publishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: scan document: %w", err)
	}

	doc.Status = Status(status.String)
	doc.PublishedHash = publishedHash.String
	doc.CreatedBy = createdBy.String
	doc.UpdatedBy = updatedBy.String

	if draftRaw.Valid && draftRaw.String != "" {
		if err := json.Unmarshal([]byte(draftRaw.String), &doc.DraftData); err != nil {
			return nil, fmt.Errorf("store: decode draft payload of %s: %w", doc.ID, err)
		}
	}

	if publishedRaw.Valid && publishedRaw.String != "" {
		if err := json.Unmarshal([]byte(publishedRaw.String), &doc.PublishedData); err != nil {
			return nil, fmt.Errorf("store: decode published payload of %s: %w", doc.ID, err)
		}
	}

	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	if publishedAt.Valid && publishedAt.String != "" {
		t, err := parseTime(publishedAt.String)
		if err != nil {
			return nil, err
		}

		doc.PublishedAt = &t
	}

	return &doc, nil
}

// Timestamps persist as fixed-width RFC3339 UTC text in every dialect, so
// lexical ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parse timestamp %q: %w", s, err)
	}

	return t, nil
}

func encodePayload(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}

	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("store: encode payload: %w", err)
	}

	return string(b), nil
}

func now() time.Time {
	return xtime.Now()
}
