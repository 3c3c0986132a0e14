package ledger_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockroom/internal/core/apperror"
	"stockroom/internal/core/id"
	"stockroom/internal/domain"
	"stockroom/internal/domain/ledger"
	"stockroom/internal/infrastructure/storage/postgres"
)

const transactionsTable = "stock_transactions"

var transactionColumns = postgres.ExtractDBColumns[ledger.Transaction]()

// TransactionRepo implements ledger.TransactionRepository.
type TransactionRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewTransactionRepo creates a new transaction repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create implements ledger.TransactionRepository.
func (r *TransactionRepo) Create(ctx context.Context, t *ledger.Transaction) error {
	sql, args, err := r.builder.
		Insert(transactionsTable).
		SetMap(postgres.StructToMap(t)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "transaction", "create")
	}
	return nil
}

// Update implements ledger.TransactionRepository.
func (r *TransactionRepo) Update(ctx context.Context, t *ledger.Transaction) error {
	t.UpdatedAt = time.Now().UTC()
	data := postgres.StructToMap(t)
	delete(data, "id")
	delete(data, "created_at")

	sql, args, err := r.builder.
		Update(transactionsTable).
		SetMap(data).
		Where(squirrel.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "transaction", "update")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("transaction", t.ID.String())
	}
	return nil
}

// Delete implements ledger.TransactionRepository.
func (r *TransactionRepo) Delete(ctx context.Context, txID id.ID) error {
	sql, args, err := r.builder.
		Delete(transactionsTable).
		Where(squirrel.Eq{"id": txID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "transaction", "delete")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("transaction", txID.String())
	}
	return nil
}

func (r *TransactionRepo) get(ctx context.Context, txID id.ID, suffix string) (*ledger.Transaction, error) {
	q := r.builder.
		Select(transactionColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"id": txID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t ledger.Transaction
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction", txID.String())
		}
		return nil, postgres.MapError(err, "transaction", "get")
	}
	return &t, nil
}

// GetByID implements ledger.TransactionRepository.
func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	return r.get(ctx, txID, "")
}

// GetForUpdate implements ledger.TransactionRepository.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	if !r.txm.InTx(ctx) {
		return nil, apperror.NewInternal(fmt.Errorf("%s: row lock requires a transaction", transactionsTable))
	}
	return r.get(ctx, txID, "FOR UPDATE")
}

// where renders the filter conditions shared by List and Totals.
func where(f ledger.TransactionFilter) []squirrel.Sqlizer {
	var and []squirrel.Sqlizer
	if f.ProductID != nil {
		and = append(and, squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.LocationID != nil {
		and = append(and, squirrel.Eq{"location_id": *f.LocationID})
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		and = append(and, squirrel.Eq{"type": types})
	}
	if f.ReferenceType != nil {
		and = append(and, squirrel.Eq{"reference_type": string(*f.ReferenceType)})
	}
	if f.ReferenceID != nil {
		and = append(and, squirrel.Eq{"reference_id": *f.ReferenceID})
	}
	if f.From != nil {
		and = append(and, squirrel.GtOrEq{"transaction_date": *f.From})
	}
	if f.To != nil {
		and = append(and, squirrel.LtOrEq{"transaction_date": *f.To})
	}
	return and
}

func filtered(q squirrel.SelectBuilder, f ledger.TransactionFilter) squirrel.SelectBuilder {
	for _, cond := range where(f) {
		q = q.Where(cond)
	}
	return q
}

func (r *TransactionRepo) listQuery(filter ledger.TransactionFilter) squirrel.SelectBuilder {
	return filtered(r.builder.Select(transactionColumns...).From(transactionsTable), filter)
}

// List implements ledger.TransactionRepository.
func (r *TransactionRepo) List(ctx context.Context, filter ledger.TransactionFilter) (domain.ListResult[*ledger.Transaction], error) {
	filter.Normalize()
	result := domain.ListResult[*ledger.Transaction]{
		Items:  []*ledger.Transaction{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := filtered(r.builder.Select("COUNT(*)").From(transactionsTable), filter).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, postgres.MapError(err, "transaction", "count")
	}

	sql, args, err := r.listQuery(filter).
		OrderBy("transaction_date DESC", "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, postgres.MapError(err, "transaction", "list")
	}
	return result, nil
}

// quoted renders movement types as SQL literals. The values are
// compile-time constants.
func quoted(types ...ledger.TransactionType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = "'" + string(t) + "'"
	}
	return strings.Join(parts, ", ")
}

func (r *TransactionRepo) totalsQuery(filter ledger.TransactionFilter) squirrel.SelectBuilder {
	return filtered(r.builder.
		Select(
			"COUNT(*) AS count",
			fmt.Sprintf("COALESCE(SUM(quantity) FILTER (WHERE type IN (%s)), 0) AS stock_in", quoted(ledger.TypeIn)),
			fmt.Sprintf("COALESCE(SUM(quantity) FILTER (WHERE type IN (%s)), 0) AS stock_out",
				quoted(ledger.TypeOut, ledger.TypeDamage, ledger.TypeExpiry)),
			"COALESCE(SUM(total_cost), 0) AS total_value",
		).
		From(transactionsTable), filter)
}

// Totals implements ledger.TransactionRepository.
func (r *TransactionRepo) Totals(ctx context.Context, filter ledger.TransactionFilter) (ledger.Totals, error) {
	var totals ledger.Totals

	sql, args, err := r.totalsQuery(filter).ToSql()
	if err != nil {
		return totals, fmt.Errorf("build totals query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &totals, sql, args...); err != nil {
		return totals, postgres.MapError(err, "transaction", "totals")
	}
	return totals, nil
}

// ExistsForProduct implements ledger.TransactionRepository.
func (r *TransactionRepo) ExistsForProduct(ctx context.Context, productID id.ID) (bool, error) {
	return exists(ctx, r.txm, r.builder, transactionsTable, squirrel.Eq{"product_id": productID})
}

// ExistsForLocation implements ledger.TransactionRepository.
func (r *TransactionRepo) ExistsForLocation(ctx context.Context, locationID id.ID) (bool, error) {
	return exists(ctx, r.txm, r.builder, transactionsTable, squirrel.Eq{"location_id": locationID})
}

// ExistsForReference implements ledger.TransactionRepository.
func (r *TransactionRepo) ExistsForReference(ctx context.Context, refType ledger.ReferenceType, refID id.ID) (bool, error) {
	return exists(ctx, r.txm, r.builder, transactionsTable, squirrel.Eq{
		"reference_type": string(refType),
		"reference_id":   refID,
	})
}

var _ ledger.TransactionRepository = (*TransactionRepo)(nil)
