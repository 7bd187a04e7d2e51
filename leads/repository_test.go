package leads_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/eitsa/identity/leads"
)

func setupRepo(t *testing.T) *leads.Repository {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	_, err = bunDB.NewCreateTable().
		Model((*leads.Lead)(nil)).
		Exec(context.Background())
	require.NoError(t, err)

	return leads.NewRepository(bunDB)
}

func createLead(t *testing.T, repo *leads.Repository, mutate func(*leads.Lead)) *leads.Lead {
	t.Helper()

	lead := validLead()
	if mutate != nil {
		mutate(&lead)
	}

	created, err := repo.Create(context.Background(), &lead)
	require.NoError(t, err)
	return created
}

func TestRepositoryCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("new leads start in the new stage", func(t *testing.T) {
		repo := setupRepo(t)
		created := createLead(t, repo, nil)

		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, leads.StatusNew, created.Status)

		stored, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "grace@example.com", stored.Email)
	})

	t.Run("an explicit stage survives", func(t *testing.T) {
		repo := setupRepo(t)
		created := createLead(t, repo, func(l *leads.Lead) { l.Status = leads.StatusQualified })
		assert.Equal(t, leads.StatusQualified, created.Status)
	})

	t.Run("rejects invalid payloads", func(t *testing.T) {
		repo := setupRepo(t)

		lead := validLead()
		lead.Email = "not-an-email"

		_, err := repo.Create(ctx, &lead)
		assert.Error(t, err)
	})

	t.Run("location survives the column codec", func(t *testing.T) {
		repo := setupRepo(t)
		created := createLead(t, repo, func(l *leads.Lead) {
			l.Location = leads.Location{
				Longitude: -97.7431,
				Latitude:  30.2672,
				Address:   "500 Congress Ave",
				City:      "Austin",
				State:     "TX",
				ZipCode:   "78701",
			}
		})

		stored, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Location, stored.Location)
	})
}

func TestRepositoryGet(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestRepositoryList(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)

	rep := uuid.New()
	base := time.Now().Add(-time.Hour)

	older := createLead(t, repo, func(l *leads.Lead) {
		l.Email = "older@example.com"
		l.Source = leads.SourceGoogleAds
		l.CreatedAt = &base
	})
	newerAt := base.Add(30 * time.Minute)
	newer := createLead(t, repo, func(l *leads.Lead) {
		l.Email = "newer@example.com"
		l.Status = leads.StatusQualified
		l.AssignedTo = &rep
		l.CreatedAt = &newerAt
	})

	t.Run("newest first", func(t *testing.T) {
		all, err := repo.List(ctx, leads.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, newer.ID, all[0].ID)
		assert.Equal(t, older.ID, all[1].ID)
	})

	t.Run("filters by status", func(t *testing.T) {
		qualified, err := repo.List(ctx, leads.Filter{Status: leads.StatusQualified})
		require.NoError(t, err)
		require.Len(t, qualified, 1)
		assert.Equal(t, newer.ID, qualified[0].ID)
	})

	t.Run("filters by assignee", func(t *testing.T) {
		mine, err := repo.List(ctx, leads.Filter{AssignedTo: rep})
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, newer.ID, mine[0].ID)
	})

	t.Run("filters by source", func(t *testing.T) {
		ads, err := repo.List(ctx, leads.Filter{Source: leads.SourceGoogleAds})
		require.NoError(t, err)
		require.Len(t, ads, 1)
		assert.Equal(t, older.ID, ads[0].ID)
	})
}

func TestRepositoryAssign(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	created := createLead(t, repo, nil)

	rep := uuid.New()
	assigned, err := repo.Assign(ctx, created.ID, rep)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, rep, *assigned.AssignedTo)

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, rep, *stored.AssignedTo)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("moving to contacted stamps last-contacted", func(t *testing.T) {
		repo := setupRepo(t)
		created := createLead(t, repo, nil)
		require.Nil(t, created.LastContacted)

		updated, err := repo.UpdateStatus(ctx, created.ID, leads.StatusContacted)
		require.NoError(t, err)
		assert.Equal(t, leads.StatusContacted, updated.Status)
		require.NotNil(t, updated.LastContacted)
		assert.WithinDuration(t, time.Now(), *updated.LastContacted, time.Minute)
	})

	t.Run("other transitions leave last-contacted alone", func(t *testing.T) {
		repo := setupRepo(t)
		created := createLead(t, repo, nil)

		updated, err := repo.UpdateStatus(ctx, created.ID, leads.StatusLost)
		require.NoError(t, err)
		assert.Equal(t, leads.StatusLost, updated.Status)
		assert.Nil(t, updated.LastContacted)
	})

	t.Run("rejects unknown stages", func(t *testing.T) {
		repo := setupRepo(t)
		created := createLead(t, repo, nil)

		_, err := repo.UpdateStatus(ctx, created.ID, "archived")
		assert.Error(t, err)
	})
}

func TestRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	created := createLead(t, repo, nil)

	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err := repo.Get(ctx, created.ID)
	assert.True(t, repository.IsRecordNotFound(err))
}
