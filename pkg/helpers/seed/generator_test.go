package seed_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/illmade-knight/go-batch/pkg/helpers/seed"
	"github.com/illmade-knight/go-batch/pkg/sqlsource"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Persons(t *testing.T) {
	g := seed.NewGenerator("corp.test")
	first := g.Persons(3)
	second := g.Persons(2)

	require.Len(t, first, 3)
	require.Len(t, second, 2)
	assert.Equal(t, int64(1), first[0].ID)
	assert.Equal(t, int64(4), second[0].ID)

	emails := map[string]bool{}
	for _, p := range append(first, second...) {
		assert.NotEmpty(t, p.FirstName)
		assert.NotEmpty(t, p.LastName)
		assert.Contains(t, p.Email, "@corp.test")
		assert.False(t, emails[p.Email], "duplicate email %s", p.Email)
		emails[p.Email] = true
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	db, err := sqlsource.OpenDB(ctx, &sqlsource.DBConfig{DSN: filepath.Join(t.TempDir(), "seed.db")}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	people, err := seed.Seed(ctx, db, 5, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, people, 5)

	// Seeding again continues after the highest id.
	more, err := seed.Seed(ctx, db, 2, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(6), more[0].ID)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "select count(*) from persons").Scan(&count))
	assert.Equal(t, 7, count)

	none, err := seed.Seed(ctx, db, 0, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, none)
}
