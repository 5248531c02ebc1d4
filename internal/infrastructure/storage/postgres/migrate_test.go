package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysdict/internal/infrastructure/storage/postgres/migrations"
)

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id int);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id int);\n", ExtractUpMigration(content))
	assert.Equal(t, "SELECT 1;", ExtractUpMigration("SELECT 1;"))
	assert.Equal(t, "\nSELECT 1;", ExtractUpMigration("-- +migrate Up\nSELECT 1;"))
}

func TestMigrationFiles_Embedded(t *testing.T) {
	files, err := migrationFiles(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_dictionary.sql", "0002_audit.sql"}, files)

	for _, f := range files {
		content, err := fs.ReadFile(migrations.FS, f)
		require.NoError(t, err)
		up := ExtractUpMigration(string(content))
		assert.NotContains(t, up, "DROP TABLE", f)
		assert.True(t, strings.Contains(up, "CREATE TABLE IF NOT EXISTS"), f)
	}
}

func TestDictionaryMigration_ParentReferencesCategory(t *testing.T) {
	content, err := fs.ReadFile(migrations.FS, "0001_dictionary.sql")
	require.NoError(t, err)

	up := ExtractUpMigration(string(content))
	assert.Contains(t, up, "parent_id     UUID NULL REFERENCES sys_dictionary_categories (id)")
	assert.Contains(t, up, "category_id   UUID         NOT NULL REFERENCES sys_dictionary_categories (id)")
}
