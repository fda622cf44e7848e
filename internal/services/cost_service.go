package services

import (
	"context"
	"fmt"
	"strings"

	"costtracker/internal/core"
	"costtracker/internal/log"
)

// CostService records and lists costs owned by a user.
type CostService struct {
	costs     CostStore
	publisher CostEventPublisher
	logger    *log.Logger
}

// NewCostService returns a CostService. publisher may be nil.
func NewCostService(costs CostStore, publisher CostEventPublisher, logger *log.Logger) *CostService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CostService{
		costs:     costs,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// AddCost stores a cost for userID.
//
// Any absent field, or a zero amount, is core.ErrMissingField. An amount or
// date that does not parse is core.ErrInvalidInput wrapping the reason.
// Sign, date range and category are not checked.
func (s *CostService) AddCost(ctx context.Context, userID int64, in core.CostInput) (core.CostRecord, error) {
	if in.Missing() {
		return core.CostRecord{}, core.ErrMissingField
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.CostRecord{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	if core.IsZeroAmount(in.Amount) {
		return core.CostRecord{}, core.ErrMissingField
	}

	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.CostRecord{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	record, err := s.costs.CreateCost(ctx, core.CostRecord{
		UserID:   userID,
		Amount:   amount,
		Date:     date,
		Category: strings.TrimSpace(in.Category),
	})
	if err != nil {
		return core.CostRecord{}, fmt.Errorf("add cost: %w", err)
	}

	s.logger.InfoContext(ctx, "Cost added",
		log.FieldOperation, log.OpAddCost,
		log.FieldCostID, record.ID,
		log.FieldUserID, userID,
		log.FieldCategory, record.Category)

	if s.publisher != nil {
		if err := s.publisher.PublishCostAdded(ctx, record); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish cost event",
				log.FieldOperation, log.OpPublish,
				log.FieldCostID, record.ID,
				log.FieldError, err)
		}
	}

	return record, nil
}

// ListCosts returns every cost owned by userID. Order is not guaranteed.
func (s *CostService) ListCosts(ctx context.Context, userID int64) ([]core.CostRecord, error) {
	costs, err := s.costs.ListCosts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list costs: %w", err)
	}
	return costs, nil
}
