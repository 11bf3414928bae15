package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/internal/rfq"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// QuoteService prices IN_REVIEW RFQs
type QuoteService struct {
	defaultValidDays int
	repos            *repository.Repositories
	rfqs             *RFQService
	logger           *zap.Logger
	now              Clock
}

// NewQuoteService creates a new quote service
func NewQuoteService(defaultValidDays int, repos *repository.Repositories, rfqs *RFQService, logger *zap.Logger, clock Clock) *QuoteService {
	if defaultValidDays < 1 {
		defaultValidDays = 30
	}
	return &QuoteService{
		defaultValidDays: defaultValidDays,
		repos:            repos,
		rfqs:             rfqs,
		logger:           logger,
		now:              clock,
	}
}

// BuildQuote prices every item and moves the RFQ to QUOTED. Only the assigned rep or an
// admin may quote. A stated total that differs from the line sum rejects the whole quote.
func (s *QuoteService) BuildQuote(ctx context.Context, caller *domain.Principal, rfqID uuid.UUID, input QuoteInput) (*domain.RfqRequest, error) {
	request, err := s.rfqs.load(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	switch caller.Role {
	case domain.RoleAdmin:
	case domain.RoleRep:
		if !assignedTo(caller, request) {
			return nil, &errors.ErrForbidden{Message: "rfq is not assigned to you"}
		}
	default:
		return nil, &errors.ErrForbidden{Message: "only account reps and admins can quote"}
	}

	now := s.now()
	validDays, err := s.validDays(input, now)
	if err != nil {
		return nil, err
	}

	lines := make([]rfq.QuoteLine, len(input.Lines))
	for i, l := range input.Lines {
		lines[i] = rfq.QuoteLine{ItemID: l.ItemID, UnitPrice: l.UnitPrice, Notes: l.Notes}
	}

	staged := request.Clone()
	from := staged.Status
	if err := rfq.BuildQuote(staged, lines, validDays, input.AdminNotes, now); err != nil {
		return nil, err
	}
	if input.QuotedTotal != nil && !input.QuotedTotal.RoundBank(2).Equal(*staged.QuotedTotal) {
		return nil, &errors.ErrIncompleteQuote{
			RfqID: rfqID.String(),
			Reason: fmt.Sprintf("quoted total %s does not match the sum of line totals %s",
				input.QuotedTotal.StringFixed(2), staged.QuotedTotal.StringFixed(2)),
		}
	}

	actor := caller.ID
	event := rfq.NewEvent(staged, from, rfq.EventQuoted, &actor, map[string]interface{}{
		"quoted_total": staged.QuotedTotal.StringFixed(2),
		"valid_until":  staged.ValidUntil.UTC(),
		"valid_days":   validDays,
	})
	if err := s.repos.RFQ.Update(ctx, staged, event); err != nil {
		if !errors.IsConflict(err) {
			s.logger.Error("Failed to save quote", zap.Error(err), zap.String("rfq_id", rfqID.String()))
		}
		return nil, err
	}

	s.logger.Info("RFQ quoted",
		zap.String("rfq_id", rfqID.String()),
		zap.String("quoted_total", staged.QuotedTotal.StringFixed(2)),
		zap.Int("valid_days", validDays),
	)
	return staged, nil
}

func (s *QuoteService) validDays(input QuoteInput, now time.Time) (int, error) {
	switch {
	case input.ValidDays != 0:
		return input.ValidDays, nil
	case input.ValidUntil != nil:
		if !input.ValidUntil.After(now) {
			return 0, &errors.ErrInvalidInput{Field: "validUntil", Message: "must be in the future"}
		}
		return int(math.Ceil(input.ValidUntil.Sub(now).Hours() / 24)), nil
	default:
		return s.defaultValidDays, nil
	}
}
