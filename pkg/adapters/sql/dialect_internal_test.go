package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBind(t *testing.T) {
	q := `UPDATE projects SET scad = ? WHERE id = ?`
	assert.Equal(t, q, SQLite.bind(q))
	assert.Equal(t, `UPDATE projects SET scad = $1 WHERE id = $2`, Postgres.bind(q))
}
