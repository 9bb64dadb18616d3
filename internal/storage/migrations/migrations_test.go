package migrations

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMigrations_SortedAndNonEmpty(t *testing.T) {
	pg, err := readMigrations(postgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)

	ch, err := readMigrations(clickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)

	for _, files := range [][]migration{pg, ch} {
		var names []string
		for _, m := range files {
			assert.NotEmpty(t, m.sql)
			names = append(names, m.name)
		}
		assert.True(t, sort.StringsAreSorted(names), "files out of order: %v", names)
	}
}

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x Int64);

-- another comment
CREATE TABLE b (y Int64);
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y Int64)", stmts[1])
}

func TestCheckSplittable(t *testing.T) {
	assert.NoError(t, checkSplittable("SELECT 'it''s fine'; SELECT 2;"))
	assert.Error(t, checkSplittable("SELECT 'a;b';"))
}

// Every embedded clickhouse file must pass the splitter's preconditions.
func TestEmbeddedClickhouseMigrations_Splittable(t *testing.T) {
	files, err := readMigrations(clickhouseFS, "clickhouse")
	require.NoError(t, err)
	for _, m := range files {
		assert.NoError(t, checkSplittable(m.sql), m.name)
		assert.NotEmpty(t, splitStatements(m.sql), m.name)
	}
}
