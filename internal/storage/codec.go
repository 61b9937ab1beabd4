package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kubun/internal/models"
)

// prepare fills ID and CreatedAt and encodes the sections and errors for a row.
func prepare(e *models.Extraction) (sections, errs []byte, err error) {
	if e.DocumentID == "" {
		return nil, nil, fmt.Errorf("extraction has no document id")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	sections, err = json.Marshal(e.Sections)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal sections: %w", err)
	}
	errs, err = json.Marshal(e.Errors)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal errors: %w", err)
	}
	return sections, errs, nil
}

func decode(e *models.Extraction, sections, errs []byte) error {
	if len(sections) > 0 && string(sections) != "null" {
		e.Sections = &models.DocumentSections{}
		if err := json.Unmarshal(sections, e.Sections); err != nil {
			return fmt.Errorf("failed to unmarshal sections: %w", err)
		}
	}
	if len(errs) > 0 && string(errs) != "null" {
		if err := json.Unmarshal(errs, &e.Errors); err != nil {
			return fmt.Errorf("failed to unmarshal errors: %w", err)
		}
	}
	return nil
}
