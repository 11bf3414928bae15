package rfq

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

// QuoteLine is the rep's price for one RFQ item
type QuoteLine struct {
	ItemID    uuid.UUID
	UnitPrice decimal.Decimal
	Notes     *string
}

// BuildQuote prices every item of an IN_REVIEW RFQ, totals the quote, sets the validity
// window and moves the RFQ to QUOTED. All checks run before anything is written, so a
// rejected quote leaves r exactly as it was.
func BuildQuote(r *domain.RfqRequest, lines []QuoteLine, validDays int, adminNotes string, now time.Time) error {
	if r.Status != domain.RfqStatusInReview {
		return &errors.ErrInvalidStateTransition{
			From:   r.Status,
			To:     domain.RfqStatusQuoted,
			Reason: "only IN_REVIEW requests can be quoted",
		}
	}
	if r.AssignedRepID == nil {
		return &errors.ErrInvalidStateTransition{
			From:   r.Status,
			To:     domain.RfqStatusQuoted,
			Reason: "the request has no assigned rep",
		}
	}
	if validDays < 1 {
		return &errors.ErrIncompleteQuote{
			RfqID:  r.ID.String(),
			Reason: "the quote needs a validity window of at least one day",
		}
	}

	index := make(map[uuid.UUID]int, len(r.Items))
	for i, item := range r.Items {
		index[item.ID] = i
	}

	priced := make(map[uuid.UUID]QuoteLine, len(lines))
	for _, l := range lines {
		i, ok := index[l.ItemID]
		if !ok {
			return &errors.ErrIncompleteQuote{
				RfqID:   r.ID.String(),
				ItemIDs: []string{l.ItemID.String()},
				Reason:  "line does not belong to this request",
			}
		}
		if _, dup := priced[l.ItemID]; dup {
			return &errors.ErrIncompleteQuote{
				RfqID:   r.ID.String(),
				ItemIDs: []string{l.ItemID.String()},
				Reason:  "item is priced more than once",
			}
		}
		// checked after rounding so sub-cent prices cannot quote an item at zero
		l.UnitPrice = l.UnitPrice.RoundBank(2)
		if !l.UnitPrice.IsPositive() {
			return &errors.ErrInvalidPrice{SKU: r.Items[i].SKU, Price: l.UnitPrice}
		}
		priced[l.ItemID] = l
	}

	var missing []string
	for _, item := range r.Items {
		if _, ok := priced[item.ID]; !ok {
			missing = append(missing, item.ID.String())
		}
	}
	if len(missing) > 0 {
		return &errors.ErrIncompleteQuote{
			RfqID:   r.ID.String(),
			ItemIDs: missing,
			Reason:  "every item needs a unit price greater than zero",
		}
	}
	if len(r.Items) == 0 {
		return &errors.ErrIncompleteQuote{RfqID: r.ID.String(), Reason: "the request has no items"}
	}

	total := decimal.Zero
	items := make([]domain.RfqItem, len(r.Items))
	for i, item := range r.Items {
		l := priced[item.ID]
		unit := l.UnitPrice
		line := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
		item.UnitPrice = &unit
		item.TotalPrice = &line
		if l.Notes != nil {
			item.Notes = l.Notes
		}
		items[i] = item
		total = total.Add(line)
	}

	if err := transition(r, domain.RfqStatusQuoted, now); err != nil {
		return err
	}
	validUntil := now.AddDate(0, 0, validDays)
	r.Items = items
	r.QuotedTotal = &total
	r.ValidUntil = &validUntil
	r.AdminNotes = adminNotes
	return nil
}
