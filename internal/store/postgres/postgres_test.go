package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"fitkids-crm/internal/db"
	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereBuilder(t *testing.T) {
	w := &where{}
	w.add("center_id = ?", "c")
	w.archived(false)
	w.add("(child_name ILIKE ? OR phone ILIKE ?)", "%x%")

	assert.Equal(t, " WHERE center_id = $1 AND NOT is_archived AND (child_name ILIKE $2 OR phone ILIKE $2)", w.String())
	assert.Equal(t, []any{"c", "%x%"}, w.args)

	q := w.page("created_at, id", store.ListOptions{Offset: -3, Limit: 1000})
	assert.Contains(t, q, "ORDER BY created_at, id LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{"c", "%x%", store.MaxLimit, 0}, w.args)

	assert.Equal(t, "", (&where{}).String())
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\% off\_now%`, likePattern(" 50% off_now "))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

func TestWeekdayArrays(t *testing.T) {
	days := []models.Weekday{models.Monday, models.Wednesday}
	arr := weekdaysToArray(days)
	assert.Equal(t, pq.StringArray{"MON", "WED"}, arr)
	assert.Equal(t, days, weekdaysFromArray(arr))
}

func TestCascadeRulesAreWhitelisted(t *testing.T) {
	assert.True(t, knownRule(models.CascadeRule{Child: models.KindFamilyLink, ForeignKey: "child_id"}))
	assert.False(t, knownRule(models.CascadeRule{Child: models.KindFamilyLink, ForeignKey: "id; DROP TABLE children"}))

	_, err := archiveTable(models.EntityKind("payments"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// openTestStore connects to TEST_DATABASE_URL, which must point at a
// disposable database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := db.Connect(ctx, url, 4, 2)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(ctx, conn))
	return New(conn)
}

func seedCenter(t *testing.T, s *Store) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	c := &models.Center{
		Audit:    models.Audit{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:     "Test Center",
		Code:     "T" + uuid.NewString()[:8],
		Timezone: "UTC",
		IsActive: true,
	}
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error { return tx.CreateCenter(ctx, c) }))
	return c.ID
}

func TestEnrollmentVersioning(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	center := seedCenter(t, s)
	now := time.Now().UTC()
	audit := func() models.Audit { return models.Audit{ID: uuid.New(), CreatedAt: now, UpdatedAt: now} }

	child := &models.Child{Audit: audit(), Tenant: models.Tenant{CenterID: center}, FullName: "Mia",
		DateOfBirth: now.AddDate(-5, 0, 0), Gender: models.GenderUnspecified}
	batch := &models.Batch{Audit: audit(), Tenant: models.Tenant{CenterID: center}, Name: "Tigers",
		MinAgeMonths: 36, MaxAgeMonths: 96, DaysOfWeek: []models.Weekday{models.Monday},
		StartTime: "10:00", EndTime: "11:00", Capacity: 5, IsActive: true}
	included := 4
	e := &models.Enrollment{Audit: audit(), Tenant: models.Tenant{CenterID: center}, PlanType: models.PlanVisitPack,
		StartDate: models.DateOnly(now), VisitsIncluded: &included, Status: models.EnrollmentActive, Version: 1}

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateChild(ctx, child))
		require.NoError(t, tx.CreateBatch(ctx, batch))
		e.ChildID, e.BatchID = child.ID, batch.ID
		return tx.CreateEnrollment(ctx, e)
	}))

	err := s.WithTx(ctx, func(tx store.Tx) error {
		locked, err := tx.LockEnrollment(ctx, center, e.ID, false)
		require.NoError(t, err)
		locked.VisitsUsed = 1
		require.NoError(t, tx.UpdateEnrollment(ctx, locked))
		assert.Equal(t, 2, locked.Version)

		stale := *e
		stale.VisitsUsed = 3
		return tx.UpdateEnrollment(ctx, &stale)
	})
	assert.True(t, models.IsKind(err, models.KindConflict), "stale update: %v", err)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		got, err := tx.GetEnrollment(ctx, center, e.ID, false)
		require.NoError(t, err)
		assert.Equal(t, 0, got.VisitsUsed, "rolled back")
		assert.Equal(t, 1, got.Version)

		b, err := tx.GetBatch(ctx, center, batch.ID, false)
		require.NoError(t, err)
		assert.Equal(t, []models.Weekday{models.Monday}, b.DaysOfWeek)
		return nil
	}))
}

func TestArchiveCascadeAndReportCards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	center := seedCenter(t, s)
	now := time.Now().UTC()
	audit := func() models.Audit { return models.Audit{ID: uuid.New(), CreatedAt: now, UpdatedAt: now} }

	child := &models.Child{Audit: audit(), Tenant: models.Tenant{CenterID: center}, FullName: "Noah",
		DateOfBirth: now.AddDate(-6, 0, 0), Gender: models.GenderMale}
	parent := &models.Parent{Audit: audit(), Tenant: models.Tenant{CenterID: center}, FullName: "Sara", Phone: "555"}
	link := &models.FamilyLink{Audit: audit(), Tenant: models.Tenant{CenterID: center},
		Relationship: models.RelationMother, IsPrimaryContact: true}
	card := &models.ReportCard{Audit: audit(), Tenant: models.Tenant{CenterID: center},
		PeriodStart: models.DateOnly(now), PeriodEnd: models.DateOnly(now), GeneratedAt: now,
		SkillSnapshot: []models.SkillSnapshotEntry{{SkillID: uuid.New(), SkillName: "Cartwheel", Level: models.SkillPracticing}}}

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateChild(ctx, child))
		require.NoError(t, tx.CreateParent(ctx, parent))
		link.ParentID, link.ChildID, card.ChildID = parent.ID, child.ID, child.ID
		require.NoError(t, tx.CreateFamilyLink(ctx, link))
		return tx.CreateReportCard(ctx, card)
	}))

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.SetArchived(ctx, models.KindChild, center, child.ID, true, nil))
		ids, err := tx.ArchiveByParent(ctx, models.CascadeRule{Child: models.KindFamilyLink, ForeignKey: "child_id"}, center, child.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{link.ID}, ids)

		_, err = tx.GetChild(ctx, center, child.ID, false)
		assert.True(t, errors.Is(err, store.ErrNotFound))

		got, err := tx.GetReportCard(ctx, center, card.ID)
		require.NoError(t, err)
		require.Len(t, got.SkillSnapshot, 1)
		assert.Equal(t, "Cartwheel", got.SkillSnapshot[0].SkillName)
		assert.Empty(t, got.LevelSnapshot)
		return nil
	}))
}
