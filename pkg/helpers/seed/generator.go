package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-batch/pkg/sqlsource"
	"github.com/illmade-knight/go-batch/pkg/types"
	"github.com/rs/zerolog"
)

var (
	firstNames = []string{"Jane", "John", "Ann", "Ravi", "Mei", "Tomas", "Amara", "Lena"}
	lastNames  = []string{"Doe", "Roe", "Poe", "Shah", "Chen", "Novak", "Okafor", "Berg"}
)

// Generator creates demo persons with unique email addresses.
type Generator struct {
	domain string
	next   int64
}

// NewGenerator creates a Generator whose emails use domain.
// Ids start at 1.
func NewGenerator(domain string) *Generator {
	if domain == "" {
		domain = "example.com"
	}
	return &Generator{domain: domain, next: 1}
}

// Persons returns the next n persons.
func (g *Generator) Persons(n int) []types.Person {
	people := make([]types.Person, 0, n)
	for i := 0; i < n; i++ {
		id := g.next
		g.next++
		people = append(people, types.Person{
			ID:        id,
			FirstName: firstNames[int(id-1)%len(firstNames)],
			LastName:  lastNames[int(id-1)/len(firstNames)%len(lastNames)],
			Email:     fmt.Sprintf("%s@%s", uuid.NewString(), g.domain),
		})
	}
	return people
}

// Seed inserts n generated persons into db, creating the persons table if needed.
func Seed(ctx context.Context, db *sql.DB, n int, logger zerolog.Logger) ([]types.Person, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := sqlsource.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	var start int64
	if err := db.QueryRowContext(ctx, "select coalesce(max(id), 0) from persons").Scan(&start); err != nil {
		return nil, fmt.Errorf("failed to read highest person id: %w", err)
	}
	g := NewGenerator("")
	g.next = start + 1
	people := g.Persons(n)
	if err := sqlsource.InsertPersons(ctx, db, people); err != nil {
		return nil, err
	}
	logger.Info().Int("count", n).Int64("first_id", start+1).Msg("Seeded persons table")
	return people, nil
}
