package http

import (
	"errors"
	"net/http"

	"costtracker/internal/core"
	"costtracker/internal/log"
)

// costJSON is the wire shape of one cost row.
type costJSON struct {
	CostID   int64  `json:"cost_id"`
	UserID   int64  `json:"user_id"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

func toCostJSON(c core.CostRecord) costJSON {
	return costJSON{
		CostID:   c.ID,
		UserID:   c.UserID,
		Amount:   c.Amount.String(),
		Date:     c.Date.String(),
		Category: c.Category,
	}
}

func (s *Server) handleAddCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	identity, _ := IdentityFromContext(ctx)

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		status, msg := bodyError(err)
		JSONMessage(status, msg).Write(w)
		return
	}

	in := core.CostInput{
		Amount:   p.Get("amount"),
		Date:     p.Get("date"),
		Category: p.Get("category"),
	}
	if _, err := s.costs.AddCost(ctx, identity.ID, in); err != nil {
		status, msg := costErrorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "Add cost failed",
				log.NewFields().
					WithOperation(log.OpAddCost).
					WithError(err, log.ErrorTypeDatabase).
					ToSlice()...)
		} else {
			logger.InfoContext(ctx, "Add cost rejected",
				log.FieldOperation, log.OpAddCost,
				log.FieldErrorType, log.ErrorTypeValidation,
				log.FieldError, err)
		}
		JSONMessage(status, msg).Write(w)
		return
	}

	JSONMessage(http.StatusOK, msgCostAdded).Write(w)
}

func (s *Server) handleListCosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	costs, err := s.costs.ListCosts(ctx, identity.ID)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "List costs failed",
			log.NewFields().
				WithOperation(log.OpList).
				WithError(err, log.ErrorTypeDatabase).
				ToSlice()...)
		JSONMessage(http.StatusInternalServerError, msgInternal).Write(w)
		return
	}

	rows := make([]costJSON, 0, len(costs))
	for _, c := range costs {
		rows = append(rows, toCostJSON(c))
	}
	NewResponse().JSON(rows).Write(w)
}

// costErrorResponse classifies an AddCost error.
func costErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrMissingField):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusBadRequest, msgInvalidAmount
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusBadRequest, msgInvalidDate
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidBody
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
