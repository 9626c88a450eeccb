package main

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createTable = regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)

func initTables(t *testing.T) map[string]string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000001_init.up.sql"))
	require.NoError(t, err)

	tables := make(map[string]string)
	for _, m := range createTable.FindAllStringSubmatch(string(raw), -1) {
		tables[m[1]] = m[2]
	}
	return tables
}

func TestSchemaNeverCascadesIntoAttempts(t *testing.T) {
	tables := initTables(t)

	for _, name := range []string{"exams", "exam_attempts", "certificates"} {
		body, ok := tables[name]
		require.True(t, ok, "table %s missing", name)
		assert.NotContains(t, body, "ON DELETE CASCADE", "table %s", name)
	}
	assert.Contains(t, tables["exams"], "REFERENCES courses(id) ON DELETE RESTRICT")
	assert.Contains(t, tables["exam_attempts"], "REFERENCES exams(id) ON DELETE RESTRICT")
}

func TestSchemaGuardsSingleCompletion(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000001_init.up.sql"))
	require.NoError(t, err)

	sql := strings.Join(strings.Fields(string(raw)), " ")
	assert.Contains(t, sql, "ON exam_attempts (user_id, exam_id) WHERE completed_at IS NOT NULL")
	assert.Contains(t, sql, "UNIQUE (exam_id, order_num)")
}
