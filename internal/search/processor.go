package search

import (
	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/models"
)

// ProcessQuery applies configured limits and validates the query.
func ProcessQuery(query *models.SearchQuery, cfg *config.SearchConfig) error {
	if query.Limit <= 0 && cfg != nil && cfg.DefaultLimit > 0 {
		query.Limit = cfg.DefaultLimit
	}
	if err := query.Validate(); err != nil {
		return err
	}
	if cfg != nil && cfg.MaxLimit > 0 && query.Limit > cfg.MaxLimit {
		query.Limit = cfg.MaxLimit
	}
	return nil
}
