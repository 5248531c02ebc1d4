package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"sysdict/internal/core/apperror"
	"sysdict/internal/domain/catalogs/variable"
	"sysdict/internal/domain/filter"
	"sysdict/internal/infrastructure/storage/postgres"
)

const dataDictionaryTable = "sys_data_dictionaries"

// CategoryCodeField is the virtual filter field matching entries by the code
// of their category, e.g. EQS_category.code=State.
const CategoryCodeField = "category_code"

// DataDictionaryRepo implements variable.DictionaryRepository.
type DataDictionaryRepo struct {
	*BaseCatalogRepo[*variable.DataDictionary]
}

var _ variable.DictionaryRepository = (*DataDictionaryRepo)(nil)

// NewDataDictionaryRepo creates a new data dictionary repository.
func NewDataDictionaryRepo(txManager *postgres.TxManager) *DataDictionaryRepo {
	base := NewBaseCatalogRepo(
		txManager,
		dataDictionaryTable,
		variable.EntityDictionary,
		postgres.ExtractDBColumns[variable.DataDictionary](),
		func() *variable.DataDictionary { return new(variable.DataDictionary) },
	).
		WithSearchColumns("name", "value").
		WithFieldFilter(CategoryCodeField, categoryCodeFilter)

	return &DataDictionaryRepo{BaseCatalogRepo: base}
}

// categoryCodeFilter matches entries through a subquery on the category table.
func categoryCodeFilter(item filter.Item) (squirrel.Sqlizer, error) {
	var cond squirrel.Sqlizer
	switch item.Operator {
	case filter.Equal, filter.InList:
		cond = squirrel.Eq{"code": item.Value}
	case filter.NotEqual, filter.NotInList:
		cond = squirrel.NotEq{"code": item.Value}
	case filter.Contains:
		cond = squirrel.ILike{"code": fmt.Sprintf("%%%v%%", item.Value)}
	default:
		return nil, apperror.NewValidation("unsupported operator for category code").
			WithDetail("operator", string(item.Operator))
	}

	sub, args, err := squirrel.Select("id").From(dictionaryCategoryTable).Where(cond).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category code filter: %w", err)
	}
	return squirrel.Expr("category_id IN ("+sub+")", args...), nil
}

// GetByCategoryCode returns the entries of the category with the given code
// whose value is not listed in ignoreValues, in creation order.
func (r *DataDictionaryRepo) GetByCategoryCode(ctx context.Context, code variable.CategoryCode, ignoreValues []string) ([]*variable.DataDictionary, error) {
	sql, args, err := r.byCategoryCodeQuery(code, ignoreValues).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := make([]*variable.DataDictionary, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s by category code: %w", dataDictionaryTable, err)
	}
	return items, nil
}

func (r *DataDictionaryRepo) byCategoryCodeQuery(code variable.CategoryCode, ignoreValues []string) squirrel.SelectBuilder {
	q := r.baseSelect().
		Where(squirrel.Expr(
			"category_id IN (SELECT id FROM "+dictionaryCategoryTable+" WHERE code = ?)", string(code),
		))
	if len(ignoreValues) > 0 {
		q = q.Where(squirrel.NotEq{"value": ignoreValues})
	}
	return q.OrderBy("id ASC")
}
