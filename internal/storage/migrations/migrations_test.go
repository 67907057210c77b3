package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'a''b'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b'`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/indexer")
	require.NoError(t, err)
	assert.Equal(t, "indexer", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	pg, err := load(postgresFiles, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "001_entities.sql", pg[0].Name)

	ch, err := load(clickhouseFiles, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Len(t, ch[0].Statements, 1)
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_b.sql": {Data: []byte("CREATE TABLE b (x Int8);\nCREATE TABLE c (y Int8);")},
		"sql/001_a.sql": {Data: []byte("CREATE TABLE a (x Int8);")},
		"sql/003_c.sql": {Data: []byte("-- nothing yet\n")},
		"sql/notes.txt": {Data: []byte("ignored")},
	}
	got, err := load(fsys, "sql")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "001_a.sql", got[0].Name)
	assert.Equal(t, "002_b.sql", got[1].Name)
	assert.Equal(t, []string{"CREATE TABLE b (x Int8)", "CREATE TABLE c (y Int8)"}, got[1].Statements)

	fsys["sql/004_bad.sql"] = &fstest.MapFile{Data: []byte("INSERT INTO a VALUES ('x;y');")}
	_, err = load(fsys, "sql")
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`indexer`", quoteIdent("indexer"))
	assert.Equal(t, "`a``b`", quoteIdent("a`b"))
}
