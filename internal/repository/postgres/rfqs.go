package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

type rfqRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRFQRepository creates a new RFQ repository
func NewRFQRepository(db *sql.DB, logger *zap.Logger) *rfqRepository {
	return &rfqRepository{
		db:     db,
		logger: logger,
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const rfqColumns = `id, request_number, customer_id, status, priority, customer_message, region,
	assigned_rep_id, quoted_total, valid_until, admin_notes, version, created_at, updated_at`

// statuses that count toward a rep's capacity
const activeStatusClause = `status IN ('IN_REVIEW', 'QUOTED')`

func scanRFQ(row rowScanner) (*domain.RfqRequest, error) {
	var r domain.RfqRequest
	var repID uuid.NullUUID
	var quotedTotal decimal.NullDecimal
	var validUntil sql.NullTime

	err := row.Scan(
		&r.ID,
		&r.RequestNumber,
		&r.CustomerID,
		&r.Status,
		&r.Priority,
		&r.CustomerMessage,
		&r.Region,
		&repID,
		&quotedTotal,
		&validUntil,
		&r.AdminNotes,
		&r.Version,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if repID.Valid {
		r.AssignedRepID = &repID.UUID
	}
	if quotedTotal.Valid {
		r.QuotedTotal = &quotedTotal.Decimal
	}
	if validUntil.Valid {
		r.ValidUntil = &validUntil.Time
	}
	return &r, nil
}

func (r *rfqRepository) Create(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to start transaction", zap.Error(err))
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if rfq.ID == uuid.Nil {
		rfq.ID = uuid.New()
	}
	rfq.Version = 1

	query := `
		INSERT INTO rfq_requests (` + rfqColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.ExecContext(ctx, query,
		rfq.ID,
		rfq.RequestNumber,
		rfq.CustomerID,
		rfq.Status,
		rfq.Priority,
		rfq.CustomerMessage,
		rfq.Region,
		nullUUID(rfq.AssignedRepID),
		nullDecimal(rfq.QuotedTotal),
		nullTime(rfq.ValidUntil),
		rfq.AdminNotes,
		rfq.Version,
		rfq.CreatedAt,
		rfq.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create rfq", zap.Error(err))
		return err
	}

	itemQuery := `
		INSERT INTO rfq_items (id, rfq_id, position, product_title, sku, quantity, unit_price, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range rfq.Items {
		item := &rfq.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.RfqID = rfq.ID
		_, err := tx.ExecContext(ctx, itemQuery,
			item.ID,
			item.RfqID,
			i,
			item.ProductTitle,
			item.SKU,
			item.Quantity,
			nullDecimal(item.UnitPrice),
			nullDecimal(item.TotalPrice),
			item.Notes,
		)
		if err != nil {
			r.logger.Error("Failed to create rfq item", zap.Error(err), zap.String("sku", item.SKU))
			return err
		}
	}

	if err := r.insertEvent(ctx, tx, rfq.ID, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit rfq", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *rfqRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RfqRequest, error) {
	query := `SELECT ` + rfqColumns + ` FROM rfq_requests WHERE id = $1`

	rfq, err := scanRFQ(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "rfq", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get rfq by ID", zap.Error(err), zap.String("rfq_id", id.String()))
		return nil, err
	}

	if rfq.Items, err = r.loadItems(ctx, r.db, rfq.ID); err != nil {
		return nil, err
	}
	return rfq, nil
}

func (r *rfqRepository) List(ctx context.Context, filter repository.RFQFilter) ([]*domain.RfqRequest, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AssignedRepID != nil {
		args = append(args, *filter.AssignedRepID)
		conditions = append(conditions, fmt.Sprintf("assigned_rep_id = $%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	query := `SELECT ` + rfqColumns + ` FROM rfq_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, request_number DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryRFQs(ctx, query, args...)
}

func (r *rfqRepository) Update(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to start transaction", zap.Error(err))
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.writeRFQ(ctx, tx, rfq); err != nil {
		return err
	}
	if err := r.insertEvent(ctx, tx, rfq.ID, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit rfq update", zap.Error(err), zap.String("rfq_id", rfq.ID.String()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	rfq.Version++
	return nil
}

func (r *rfqRepository) AssignWithinCapacity(ctx context.Context, rfq *domain.RfqRequest, event *domain.RfqEvent) error {
	if rfq.AssignedRepID == nil {
		return &errors.ErrInvalidStateTransition{From: rfq.Status, To: domain.RfqStatusInReview, Reason: "an account rep is required"}
	}
	repID := *rfq.AssignedRepID

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to start transaction", zap.Error(err))
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the rep row so concurrent assignments to the same rep serialize on it
	var capacity sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT max_rfq_capacity FROM account_reps WHERE id = $1 FOR UPDATE`, repID).Scan(&capacity)
	if err == sql.ErrNoRows {
		return &errors.ErrNotFound{Resource: "account rep", ID: repID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to lock account rep", zap.Error(err), zap.String("rep_id", repID.String()))
		return err
	}

	assigned, err := countActive(ctx, tx, repID)
	if err != nil {
		r.logger.Error("Failed to count assigned rfqs", zap.Error(err), zap.String("rep_id", repID.String()))
		return err
	}
	if capacity.Valid && int64(assigned) >= capacity.Int64 {
		return &errors.ErrCapacityExceeded{RepID: repID.String(), Capacity: int(capacity.Int64), Assigned: assigned}
	}

	if err := r.writeRFQ(ctx, tx, rfq); err != nil {
		return err
	}
	if err := r.insertEvent(ctx, tx, rfq.ID, event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit assignment", zap.Error(err), zap.String("rfq_id", rfq.ID.String()))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	rfq.Version++
	return nil
}

func (r *rfqRepository) ListExpirable(ctx context.Context, now time.Time) ([]*domain.RfqRequest, error) {
	query := `
		SELECT ` + rfqColumns + ` FROM rfq_requests
		WHERE status IN ('PENDING', 'IN_REVIEW', 'QUOTED') AND valid_until IS NOT NULL AND valid_until < $1
		ORDER BY valid_until ASC
	`
	return r.queryRFQs(ctx, query, now)
}

func (r *rfqRepository) CountActiveByRep(ctx context.Context, repID uuid.UUID) (int, error) {
	n, err := countActive(ctx, r.db, repID)
	if err != nil {
		r.logger.Error("Failed to count assigned rfqs", zap.Error(err), zap.String("rep_id", repID.String()))
		return 0, err
	}
	return n, nil
}

func (r *rfqRepository) ListEvents(ctx context.Context, rfqID uuid.UUID) ([]*domain.RfqEvent, error) {
	if _, err := r.GetByID(ctx, rfqID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, rfq_id, event_type, from_status, to_status, actor_id, event_data, created_at
		FROM rfq_events
		WHERE rfq_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, rfqID)
	if err != nil {
		r.logger.Error("Failed to list rfq events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	events := []*domain.RfqEvent{}
	for rows.Next() {
		var e domain.RfqEvent
		var from sql.NullString
		var actor uuid.NullUUID
		var data []byte
		if err := rows.Scan(&e.ID, &e.RfqID, &e.EventType, &from, &e.ToStatus, &actor, &data, &e.CreatedAt); err != nil {
			r.logger.Error("Failed to scan rfq event", zap.Error(err))
			return nil, err
		}
		e.FromStatus = domain.RfqStatus(from.String)
		if actor.Valid {
			e.ActorID = &actor.UUID
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.EventData); err != nil {
				return nil, err
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *rfqRepository) NextRequestSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('rfq_request_number_seq')`).Scan(&seq); err != nil {
		r.logger.Error("Failed to allocate request number", zap.Error(err))
		return 0, err
	}
	return seq, nil
}

// writeRFQ updates the request row guarded by its version, then rewrites item prices
func (r *rfqRepository) writeRFQ(ctx context.Context, tx *sql.Tx, rfq *domain.RfqRequest) error {
	query := `
		UPDATE rfq_requests
		SET status = $3, priority = $4, assigned_rep_id = $5, quoted_total = $6, valid_until = $7,
			admin_notes = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2
	`
	result, err := tx.ExecContext(ctx, query,
		rfq.ID,
		rfq.Version,
		rfq.Status,
		rfq.Priority,
		nullUUID(rfq.AssignedRepID),
		nullDecimal(rfq.QuotedTotal),
		nullTime(rfq.ValidUntil),
		rfq.AdminNotes,
		rfq.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update rfq", zap.Error(err), zap.String("rfq_id", rfq.ID.String()))
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rfq_requests WHERE id = $1)`, rfq.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return &errors.ErrNotFound{Resource: "rfq", ID: rfq.ID.String()}
		}
		return &errors.ErrConflict{Resource: "rfq", ID: rfq.ID.String(), Version: rfq.Version}
	}

	itemQuery := `UPDATE rfq_items SET unit_price = $2, total_price = $3, notes = $4 WHERE id = $1`
	for _, item := range rfq.Items {
		if _, err := tx.ExecContext(ctx, itemQuery, item.ID, nullDecimal(item.UnitPrice), nullDecimal(item.TotalPrice), item.Notes); err != nil {
			r.logger.Error("Failed to update rfq item", zap.Error(err), zap.String("item_id", item.ID.String()))
			return err
		}
	}
	return nil
}

func (r *rfqRepository) insertEvent(ctx context.Context, tx *sql.Tx, rfqID uuid.UUID, event *domain.RfqEvent) error {
	if event == nil {
		return nil
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.RfqID = rfqID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var data []byte
	if event.EventData != nil {
		var err error
		if data, err = json.Marshal(event.EventData); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO rfq_events (id, rfq_id, event_type, from_status, to_status, actor_id, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		event.ID,
		event.RfqID,
		event.EventType,
		nullString(string(event.FromStatus)),
		event.ToStatus,
		nullUUID(event.ActorID),
		data,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create rfq event", zap.Error(err), zap.String("rfq_id", rfqID.String()))
		return err
	}
	return nil
}

func (r *rfqRepository) queryRFQs(ctx context.Context, query string, args ...interface{}) ([]*domain.RfqRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query rfqs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	rfqs := []*domain.RfqRequest{}
	for rows.Next() {
		rfq, err := scanRFQ(rows)
		if err != nil {
			r.logger.Error("Failed to scan rfq", zap.Error(err))
			return nil, err
		}
		rfqs = append(rfqs, rfq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rfq := range rfqs {
		if rfq.Items, err = r.loadItems(ctx, r.db, rfq.ID); err != nil {
			return nil, err
		}
	}
	return rfqs, nil
}

func (r *rfqRepository) loadItems(ctx context.Context, q querier, rfqID uuid.UUID) ([]domain.RfqItem, error) {
	query := `
		SELECT id, rfq_id, product_title, sku, quantity, unit_price, total_price, notes
		FROM rfq_items
		WHERE rfq_id = $1
		ORDER BY position ASC
	`
	rows, err := q.QueryContext(ctx, query, rfqID)
	if err != nil {
		r.logger.Error("Failed to load rfq items", zap.Error(err), zap.String("rfq_id", rfqID.String()))
		return nil, err
	}
	defer rows.Close()

	items := []domain.RfqItem{}
	for rows.Next() {
		var item domain.RfqItem
		var unit, total decimal.NullDecimal
		var notes sql.NullString
		if err := rows.Scan(&item.ID, &item.RfqID, &item.ProductTitle, &item.SKU, &item.Quantity, &unit, &total, &notes); err != nil {
			return nil, err
		}
		if unit.Valid {
			item.UnitPrice = &unit.Decimal
		}
		if total.Valid {
			item.TotalPrice = &total.Decimal
		}
		if notes.Valid {
			item.Notes = &notes.String
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func countActive(ctx context.Context, q querier, repID uuid.UUID) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM rfq_requests WHERE assigned_rep_id = $1 AND ` + activeStatusClause
	err := q.QueryRowContext(ctx, query, repID).Scan(&n)
	return n, err
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
