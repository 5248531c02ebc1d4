package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysdict/internal/core/id"
	"sysdict/internal/domain/catalogs/variable"
	"sysdict/internal/domain/filter"
)

const dictionaryCols = "id, deletion_mark, version, attributes, name, remark, value, type, category_id"

func TestDictionaryCategoryRepo_SetLeafQuery(t *testing.T) {
	repo := NewDictionaryCategoryRepo(nil)
	categoryID := id.New()

	sql, args, err := repo.setLeafQuery(categoryID, true).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE sys_dictionary_categories SET leaf = $1 WHERE id = $2", sql)
	// squirrel.Eq resolves driver.Valuer, so the UUID is passed as text
	assert.Equal(t, []any{true, categoryID.String()}, args)
}

func TestRefreshAllLeafSQL(t *testing.T) {
	assert.Contains(t, refreshAllLeafSQL, "SET leaf = EXISTS")
	assert.Contains(t, refreshAllLeafSQL, "child.parent_id = c.id")
}

func TestDataDictionaryRepo_ByCategoryCodeQuery(t *testing.T) {
	repo := NewDataDictionaryRepo(nil)

	sql, args, err := repo.byCategoryCodeQuery(variable.CodeState, []string{"0", "2"}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT "+dictionaryCols+" FROM sys_data_dictionaries"+
			" WHERE category_id IN (SELECT id FROM sys_dictionary_categories WHERE code = $1)"+
			" AND value NOT IN ($2,$3) ORDER BY id ASC",
		sql)
	assert.Equal(t, []any{"State", "0", "2"}, args)
}

func TestDataDictionaryRepo_ByCategoryCodeQueryNoIgnore(t *testing.T) {
	repo := NewDataDictionaryRepo(nil)

	sql, args, err := repo.byCategoryCodeQuery(variable.CodeValueType, nil).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT "+dictionaryCols+" FROM sys_data_dictionaries"+
			" WHERE category_id IN (SELECT id FROM sys_dictionary_categories WHERE code = $1) ORDER BY id ASC",
		sql)
	assert.Equal(t, []any{"ValueType"}, args)
}

func TestDataDictionaryRepo_CategoryCodeFilter(t *testing.T) {
	repo := NewDataDictionaryRepo(nil)
	item := filter.MustParseProperty("EQS_category.code", "State")

	q, err := repo.applyAdvancedFilters(repo.baseSelect(), []filter.Item{
		item,
		{Field: "type", Operator: filter.Equal, Value: "S"},
	})
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT "+dictionaryCols+" FROM sys_data_dictionaries"+
			" WHERE category_id IN (SELECT id FROM sys_dictionary_categories WHERE code = $1) AND type = $2",
		sql)
	assert.Equal(t, []any{"State", "S"}, args)
}

func TestDataDictionaryRepo_CategoryCodeFilterUnsupported(t *testing.T) {
	_, err := categoryCodeFilter(filter.Item{Field: CategoryCodeField, Operator: filter.IsNull})
	assert.Error(t, err)
}
