package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/inventory_api/internal/inventory"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/models"
)

type Searcher interface {
	Search(ctx context.Context, q inventory.Query) (inventory.Result, error)
	CharacterNames(ctx context.Context) ([]string, error)
}

type Page struct {
	Items []models.InventoryItem
	Page  int
	Size  int
	Count int64
}

// InventoryService applies the read-path policy: bad queries are reported,
// storage failures degrade to an empty page.
type InventoryService struct {
	Searcher Searcher
}

func (s *InventoryService) Items(ctx context.Context, q inventory.Query) (*Page, error) {
	l := logging.FromContext(ctx).With("svc", "inventory.items")

	res, err := s.Searcher.Search(ctx, q)
	switch {
	case errors.Is(err, inventory.ErrInvalidQuery):
		l.Warn("items_rejected", "status", 400, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	case err != nil:
		l.Error("items_degraded", "reason", "storage error", "error", err)
		return &Page{Items: []models.InventoryItem{}, Page: q.Page, Size: q.PageSize}, nil
	}

	l.Debug("items_served", "snapshot", res.Snapshot, "count", res.Total)
	return &Page{Items: res.Items, Page: q.Page, Size: q.PageSize, Count: res.Total}, nil
}

func (s *InventoryService) CharacterNames(ctx context.Context) []string {
	names, err := s.Searcher.CharacterNames(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("char_names_degraded", "svc", "inventory.char_names", "error", err)
		return []string{}
	}
	return names
}
