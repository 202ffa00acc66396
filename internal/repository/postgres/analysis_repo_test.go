package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labinsight/db"
	"labinsight/internal/domain"
	"labinsight/internal/repository/postgres"
)

// openTestDB connects to LABINSIGHT_TEST_DSN and applies the migrations. The
// test is skipped when no database is configured.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("LABINSIGHT_TEST_DSN")
	if dsn == "" {
		t.Skip("LABINSIGHT_TEST_DSN not set")
	}

	src, err := iofs.New(db.Migrations, "migrations")
	require.NoError(t, err)
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}

	conn, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	_, err = conn.Exec("TRUNCATE analyses")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestAnalysisRepo_RoundTrip(t *testing.T) {
	repo := postgres.NewAnalysisRepo(openTestDB(t))
	ctx := context.Background()

	older := &domain.AnalysisRecord{
		ID: uuid.New(), Filename: "a.pdf", Stage: string(domain.StageDirect), IsValid: true,
		InterpretacionConceptos: "T", ResultadosSimplificados: "S", ResumenEjecutivo: "R",
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &domain.AnalysisRecord{
		ID: uuid.New(), Filename: "b.pdf", Stage: string(domain.StageEmbedded),
		ErrorMessage: "No es un laboratorio", S3Bucket: "bucket", S3Key: "analyses/x/b.pdf",
	}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	got, err := repo.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "No es un laboratorio", got.ErrorMessage)
	assert.Equal(t, "analyses/x/b.pdf", got.S3Key)
	assert.False(t, got.IsValid)

	page, total, err := repo.List(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, newer.ID, page[0].ID)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.NoError(t, repo.Ping(ctx))
}

func TestAnalysisRepo_GetByID_NotFound(t *testing.T) {
	repo := postgres.NewAnalysisRepo(openTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
