// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/id"
	"sysdict/internal/domain"
	"sysdict/internal/domain/filter"
	"sysdict/internal/infrastructure/storage/postgres"
)

// PostgreSQL error codes mapped to domain errors.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Entity is the constraint for catalog rows handled by BaseCatalogRepo.
type Entity interface {
	GetID() id.ID
	EnsureID() bool
	GetVersion() int
	SetVersion(v int)
}

// FieldFilter translates a filter on a virtual field (one that is not a column
// of the table) into a SQL condition.
type FieldFilter func(item filter.Item) (squirrel.Sqlizer, error)

// BaseCatalogRepo provides common CRUD operations for catalog entities.
// Embed this in specific catalog repositories.
type BaseCatalogRepo[T Entity] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	searchCols []string
	newFn      func() T

	fieldFilters map[string]FieldFilter
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T Entity](
	txManager *postgres.TxManager,
	tableName string,
	entityName string,
	selectCols []string,
	newFn func() T,
) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txManager:    txManager,
		tableName:    tableName,
		entityName:   entityName,
		selectCols:   selectCols,
		searchCols:   []string{"name"},
		newFn:        newFn,
		fieldFilters: make(map[string]FieldFilter),
	}
}

// WithSearchColumns sets the columns matched by ListFilter.Search.
func (r *BaseCatalogRepo[T]) WithSearchColumns(cols ...string) *BaseCatalogRepo[T] {
	r.searchCols = cols
	return r
}

// WithFieldFilter registers a virtual filter field.
func (r *BaseCatalogRepo[T]) WithFieldFilter(field string, fn FieldFilter) *BaseCatalogRepo[T] {
	r.fieldFilters[field] = fn
	return r
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Save inserts the entity when it has no ID or does not exist yet,
// otherwise updates it with optimistic locking.
func (r *BaseCatalogRepo[T]) Save(ctx context.Context, entity T) error {
	if entity.EnsureID() {
		return r.Create(ctx, entity)
	}

	exists, err := r.Exists(ctx, entity.GetID())
	if err != nil {
		return err
	}
	if !exists {
		return r.Create(ctx, entity)
	}
	return r.Update(ctx, entity)
}

// Create inserts a new entity using its "db" tags.
func (r *BaseCatalogRepo[T]) Create(ctx context.Context, entity T) error {
	q, err := r.insertQuery(entity)
	if err != nil {
		return err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.mapWriteError(err, entity.GetID(), "insert")
	}

	return nil
}

// insertQuery builds the INSERT of entity. A missing version starts at 1.
func (r *BaseCatalogRepo[T]) insertQuery(entity T) (squirrel.InsertBuilder, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return squirrel.InsertBuilder{}, fmt.Errorf("no db tags found in entity")
	}

	// Filter to only include columns that exist in DB
	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}
	if v, ok := filteredData["version"].(int); !ok || v < 1 {
		filteredData["version"] = 1
		entity.SetVersion(1)
	}

	return r.Builder().
		Insert(r.tableName).
		SetMap(filteredData), nil
}

// Update modifies an existing entity with optimistic locking.
// On success the entity's version is advanced to match the row.
func (r *BaseCatalogRepo[T]) Update(ctx context.Context, entity T) error {
	entityID := entity.GetID()
	version := entity.GetVersion()

	q, err := r.updateQuery(entity)
	if err != nil {
		return err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return r.mapWriteError(err, entityID, "update")
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, entityID.String())
	}

	entity.SetVersion(version + 1)
	return nil
}

// updateQuery builds the UPDATE of entity guarded by its current version.
func (r *BaseCatalogRepo[T]) updateQuery(entity T) (squirrel.UpdateBuilder, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return squirrel.UpdateBuilder{}, fmt.Errorf("no db tags found in entity")
	}

	// Exclude immutable fields from SET
	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "version" {
			continue
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	return r.Builder().
		Update(r.tableName).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entity.GetID()}).
		Where(squirrel.Eq{"version": entity.GetVersion()}), nil // optimistic lock: expect current version
}

// baseSelect creates a SELECT builder.
func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// GetByID retrieves entity by ID.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Limit(1), entityID.String())
}

// List retrieves entities with filtering and pagination.
func (r *BaseCatalogRepo[T]) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Items:  make([]T, 0),
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q, err := r.listQuery(f)
	if err != nil {
		return result, err
	}

	// Count total (before pagination)
	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", r.tableName, err)
	}

	orderBy, err := r.parseOrderBy(f.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}

	return result, nil
}

// listQuery builds the filtered SELECT of a page request, without order and window.
func (r *BaseCatalogRepo[T]) listQuery(f domain.ListFilter) (squirrel.SelectBuilder, error) {
	q := r.baseSelect()

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if f.Search != "" && len(r.searchCols) > 0 {
		pattern := "%" + f.Search + "%"
		or := make(squirrel.Or, 0, len(r.searchCols))
		for _, col := range r.searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": f.IDs})
	}

	return r.applyAdvancedFilters(q, f.AdvancedFilters)
}

// FindAll retrieves every entity matching filters in the given order.
// Without orders the rows are returned by name.
func (r *BaseCatalogRepo[T]) FindAll(ctx context.Context, filters []filter.Item, orders ...filter.Order) ([]T, error) {
	q, err := r.findAllQuery(filters, orders)
	if err != nil {
		return nil, err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := make([]T, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("find %s: %w", r.tableName, err)
	}
	return items, nil
}

func (r *BaseCatalogRepo[T]) findAllQuery(filters []filter.Item, orders []filter.Order) (squirrel.SelectBuilder, error) {
	q, err := r.applyAdvancedFilters(r.baseSelect(), filters)
	if err != nil {
		return q, err
	}

	if len(orders) == 0 {
		return q.OrderBy("name ASC", "id ASC"), nil
	}
	for _, o := range orders {
		if !r.isColumn(o.Field) {
			return q, apperror.NewValidation("invalid order field").WithDetail("field", o.Field)
		}
		if o.Desc {
			q = q.OrderBy(o.Field + " DESC")
		} else {
			q = q.OrderBy(o.Field + " ASC")
		}
	}
	return q, nil
}

func (r *BaseCatalogRepo[T]) isColumn(field string) bool {
	for _, col := range r.selectCols {
		if col == field {
			return true
		}
	}
	return false
}

// applyAdvancedFilters applies property filters to the query.
// Fields must be table columns or registered virtual fields.
func (r *BaseCatalogRepo[T]) applyAdvancedFilters(q squirrel.SelectBuilder, filters []filter.Item) (squirrel.SelectBuilder, error) {
	for _, item := range filters {
		if fn, ok := r.fieldFilters[item.Field]; ok {
			cond, err := fn(item)
			if err != nil {
				return q, err
			}
			q = q.Where(cond)
			continue
		}

		// Whitelist columns for SQL injection protection
		if !r.isColumn(item.Field) {
			return q, apperror.NewValidation("invalid filter field").WithDetail("field", item.Field)
		}

		cond, err := r.condition(item)
		if err != nil {
			return q, err
		}
		q = q.Where(cond)
	}

	return q, nil
}

// condition converts a filter on a column into a SQL condition.
func (r *BaseCatalogRepo[T]) condition(item filter.Item) (squirrel.Sqlizer, error) {
	switch item.Operator {
	case filter.Equal:
		return squirrel.Eq{item.Field: item.Value}, nil
	case filter.NotEqual:
		return squirrel.NotEq{item.Field: item.Value}, nil
	case filter.LessOrEqual:
		return squirrel.LtOrEq{item.Field: item.Value}, nil
	case filter.GreaterOrEqual:
		return squirrel.GtOrEq{item.Field: item.Value}, nil
	case filter.Less:
		return squirrel.Lt{item.Field: item.Value}, nil
	case filter.Greater:
		return squirrel.Gt{item.Field: item.Value}, nil
	case filter.InList:
		return squirrel.Eq{item.Field: item.Value}, nil
	case filter.NotInList:
		return squirrel.NotEq{item.Field: item.Value}, nil
	case filter.IsNull:
		return squirrel.Eq{item.Field: nil}, nil
	case filter.IsNotNull:
		return squirrel.NotEq{item.Field: nil}, nil
	case filter.Contains:
		return squirrel.ILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)}, nil
	case filter.NotContains:
		return squirrel.NotILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)}, nil
	case filter.InHierarchy, filter.NotInHierarchy:
		if !r.isColumn("parent_id") {
			return nil, apperror.NewValidation("hierarchy filter on a flat catalog").
				WithDetail("field", item.Field).
				WithDetail("operator", string(item.Operator))
		}
		op := "IN"
		if item.Operator == filter.NotInHierarchy {
			op = "NOT IN"
		}
		cteSQL := fmt.Sprintf(`%s %s (
			WITH RECURSIVE hierarchy AS (
				SELECT id FROM %s WHERE id = ?
				UNION ALL
				SELECT t.id FROM %s t JOIN hierarchy h ON t.parent_id = h.id
			)
			SELECT id FROM hierarchy
		)`, item.Field, op, r.tableName, r.tableName)
		return squirrel.Expr(cteSQL, item.Value), nil
	}
	return nil, apperror.NewValidation("invalid filter operator").
		WithDetail("field", item.Field).
		WithDetail("operator", string(item.Operator))
}

// Exists checks if entity exists.
func (r *BaseCatalogRepo[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	sql, args, err := r.Builder().
		Select("1").
		From(r.tableName).
		Where(squirrel.Eq{"id": entityID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}

	return true, nil
}

// DeleteAll physically removes the given rows in one statement.
// An empty list is a no-op; ids that do not exist are ignored.
func (r *BaseCatalogRepo[T]) DeleteAll(ctx context.Context, ids []id.ID) error {
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.mapDeleteError(err)
	}

	return nil
}

// mapDeleteError reports rows still referenced by children or entries as a conflict.
func (r *BaseCatalogRepo[T]) mapDeleteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return apperror.NewConflict("cannot delete: object is still referenced").
			WithDetail("entity", r.entityName).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	}
	return fmt.Errorf("execute delete %s: %w", r.tableName, err)
}

// FindOne executes a SELECT query and returns a single entity.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
	entity := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			var zero T
			return zero, apperror.NewNotFound(r.entityName, key)
		}
		return entity, fmt.Errorf("find %s: %w", r.tableName, err)
	}

	return entity, nil
}

// mapWriteError converts constraint violations into domain errors.
func (r *BaseCatalogRepo[T]) mapWriteError(err error, entityID id.ID, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.NewDuplicate(r.entityName, uniqueField(pgErr.ConstraintName), entityID.String()).
				WithCause(err)
		case pgForeignKeyViolation:
			return apperror.NewValidation("referenced object does not exist").
				WithDetail("entity", r.entityName).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
	}
	return fmt.Errorf("%s %s: %w", op, r.tableName, err)
}

// uniqueField guesses the column from an index named ux_<table>_<column>.
func uniqueField(constraint string) string {
	if i := strings.LastIndex(constraint, "_"); i >= 0 && i < len(constraint)-1 {
		return constraint[i+1:]
	}
	return constraint
}

func (r *BaseCatalogRepo[T]) parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		return "name ASC", nil
	}

	// Support "-field" for DESC.
	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	if !r.isColumn(field) && field != "created_at" && field != "updated_at" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy).WithDetail("field", field)
	}

	return field + " " + direction, nil
}
