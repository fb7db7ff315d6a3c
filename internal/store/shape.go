package store

import (
	"context"

	"dario.cat/mergo"

	"github.com/inkhub/inkhub/internal/log"
	"github.com/inkhub/inkhub/internal/query"
)

// ShapeRecord flattens a document into one record: metadata fields hoisted
// alongside the perspective-selected payload. Metadata keys win over payload
// keys of the same name.
func ShapeRecord(ctx context.Context, doc *Document, persp query.Perspective) map[string]any {
	record := map[string]any{
		"id":             doc.ID,
		"organizationId": doc.OrganizationID,
		"type":           doc.Type,
		"status":         string(doc.Status),
		"createdAt":      formatTime(doc.CreatedAt),
		"updatedAt":      formatTime(doc.UpdatedAt),
	}

	if doc.CreatedBy != "" {
		record["createdBy"] = doc.CreatedBy
	}

	if doc.UpdatedBy != "" {
		record["updatedBy"] = doc.UpdatedBy
	}

	if doc.IsPublished() {
		record["publishedAt"] = formatTime(*doc.PublishedAt)
		record["publishedHash"] = doc.PublishedHash
	}

	payload := doc.Data(persp)
	if len(payload) == 0 {
		return record
	}

	if err := mergo.Merge(&record, payload); err != nil {
		log.Warn(ctx, "store: reshape merge failed, returning metadata only",
			log.String("document_id", doc.ID),
			log.Cause(err),
		)
	}

	return record
}

// ShapeRecords reshapes a result page in order.
func ShapeRecords(ctx context.Context, docs []*Document, persp query.Perspective) []map[string]any {
	records := make([]map[string]any, len(docs))
	for i, doc := range docs {
		records[i] = ShapeRecord(ctx, doc, persp)
	}

	return records
}
