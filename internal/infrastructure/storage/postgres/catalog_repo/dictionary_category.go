package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"sysdict/internal/core/apperror"
	"sysdict/internal/core/id"
	"sysdict/internal/domain/catalogs/variable"
	"sysdict/internal/infrastructure/storage/postgres"
)

const dictionaryCategoryTable = "sys_dictionary_categories"

// refreshAllLeafSQL sets leaf on every category that is referenced as a parent
// and clears it everywhere else.
const refreshAllLeafSQL = `
	UPDATE ` + dictionaryCategoryTable + ` c
	SET leaf = EXISTS (
		SELECT 1 FROM ` + dictionaryCategoryTable + ` child WHERE child.parent_id = c.id
	)
	WHERE c.leaf IS DISTINCT FROM EXISTS (
		SELECT 1 FROM ` + dictionaryCategoryTable + ` child WHERE child.parent_id = c.id
	)`

// DictionaryCategoryRepo implements variable.CategoryRepository.
type DictionaryCategoryRepo struct {
	*BaseCatalogRepo[*variable.DictionaryCategory]
}

var _ variable.CategoryRepository = (*DictionaryCategoryRepo)(nil)

// NewDictionaryCategoryRepo creates a new dictionary category repository.
func NewDictionaryCategoryRepo(txManager *postgres.TxManager) *DictionaryCategoryRepo {
	base := NewBaseCatalogRepo(
		txManager,
		dictionaryCategoryTable,
		variable.EntityCategory,
		postgres.ExtractDBColumns[variable.DictionaryCategory](),
		func() *variable.DictionaryCategory { return new(variable.DictionaryCategory) },
	).WithSearchColumns("name", "code")

	return &DictionaryCategoryRepo{BaseCatalogRepo: base}
}

// GetByCode retrieves a category by its code.
func (r *DictionaryCategoryRepo) GetByCode(ctx context.Context, code string) (*variable.DictionaryCategory, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"code": code}).Limit(1), code)
}

// SetLeaf writes the leaf flag of one category.
func (r *DictionaryCategoryRepo) SetLeaf(ctx context.Context, categoryID id.ID, leaf bool) error {
	sql, args, err := r.setLeafQuery(categoryID, leaf).ToSql()
	if err != nil {
		return fmt.Errorf("build set leaf: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set leaf: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(variable.EntityCategory, categoryID.String())
	}
	return nil
}

func (r *DictionaryCategoryRepo) setLeafQuery(categoryID id.ID, leaf bool) squirrel.UpdateBuilder {
	return r.Builder().
		Update(dictionaryCategoryTable).
		Set("leaf", leaf).
		Where(squirrel.Eq{"id": categoryID})
}

// RefreshAllLeaf recomputes the leaf flag of every category in one statement.
func (r *DictionaryCategoryRepo) RefreshAllLeaf(ctx context.Context) error {
	if _, err := r.querier(ctx).Exec(ctx, refreshAllLeafSQL); err != nil {
		return fmt.Errorf("refresh leaf flags: %w", err)
	}
	return nil
}
