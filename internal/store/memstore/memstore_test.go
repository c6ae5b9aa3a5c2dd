package memstore

import (
	"context"
	"errors"
	"testing"

	"fitkids-crm/internal/models"
	"fitkids-crm/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChild(centerID uuid.UUID, name string) *models.Child {
	return &models.Child{
		Audit:    models.Audit{ID: uuid.New()},
		Tenant:   models.Tenant{CenterID: centerID},
		FullName: name,
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	center := uuid.New()
	kept, dropped := newChild(center, "Kept"), newChild(center, "Dropped")

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.CreateChild(ctx, kept)
	}))
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateChild(ctx, dropped); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.GetChild(ctx, center, dropped.ID, true)
		assert.ErrorIs(t, err, store.ErrNotFound)
		got, err := tx.GetChild(ctx, center, kept.ID, false)
		require.NoError(t, err)
		assert.Equal(t, "Kept", got.FullName)
		return nil
	}))
}

func TestTenantFiltering(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := uuid.New(), uuid.New()
	child := newChild(a, "Ava")

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateChild(ctx, child))

		_, err := tx.GetChild(ctx, b, child.ID, true)
		assert.ErrorIs(t, err, store.ErrNotFound)

		err = tx.SetArchived(ctx, models.KindChild, b, child.ID, true, nil)
		assert.ErrorIs(t, err, store.ErrNotFound)

		list, err := tx.ListChildren(ctx, b, store.ChildFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)
		return nil
	}))
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	s := New()
	center := uuid.New()
	names := []string{"A", "B", "C", "D", "E"}

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		for _, n := range names {
			require.NoError(t, tx.CreateChild(ctx, newChild(center, n)))
		}
		return nil
	}))

	tests := []struct {
		name string
		opts store.ListOptions
		want []string
	}{
		{"default", store.ListOptions{}, names},
		{"first page", store.ListOptions{Limit: 2}, []string{"A", "B"}},
		{"second page", store.ListOptions{Offset: 2, Limit: 2}, []string{"C", "D"}},
		{"past the end", store.ListOptions{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
				list, err := tx.ListChildren(ctx, center, store.ChildFilter{ListOptions: tt.opts})
				got = make([]string, 0, len(list))
				for _, c := range list {
					got = append(got, c.FullName)
				}
				return err
			}))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnrollmentVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := New()
	center := uuid.New()
	e := &models.Enrollment{
		Audit:    models.Audit{ID: uuid.New()},
		Tenant:   models.Tenant{CenterID: center},
		PlanType: models.PlanMonthly,
		Status:   models.EnrollmentActive,
		Version:  1,
	}

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateEnrollment(ctx, e))

		stale, err := tx.GetEnrollment(ctx, center, e.ID, false)
		require.NoError(t, err)
		fresh, err := tx.LockEnrollment(ctx, center, e.ID, false)
		require.NoError(t, err)

		fresh.VisitsUsed = 1
		require.NoError(t, tx.UpdateEnrollment(ctx, fresh))
		assert.Equal(t, 2, fresh.Version)

		stale.Status = models.EnrollmentCancelled
		err = tx.UpdateEnrollment(ctx, stale)
		assert.True(t, models.IsKind(err, models.KindConflict), "stale update: %v", err)
		return nil
	}))
}

func TestArchiveByParent(t *testing.T) {
	ctx := context.Background()
	s := New()
	center := uuid.New()
	child := newChild(center, "Leo")
	links := []*models.FamilyLink{
		{Audit: models.Audit{ID: uuid.New()}, Tenant: models.Tenant{CenterID: center}, ParentID: uuid.New(), ChildID: child.ID},
		{Audit: models.Audit{ID: uuid.New()}, Tenant: models.Tenant{CenterID: center}, ParentID: uuid.New(), ChildID: child.ID},
		{Audit: models.Audit{ID: uuid.New()}, Tenant: models.Tenant{CenterID: center}, ParentID: uuid.New(), ChildID: uuid.New()},
	}

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateChild(ctx, child))
		for _, l := range links {
			require.NoError(t, tx.CreateFamilyLink(ctx, l))
		}
		rule := models.CascadeRule{Child: models.KindFamilyLink, ForeignKey: "child_id"}
		ids, err := tx.ArchiveByParent(ctx, rule, center, child.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{links[0].ID, links[1].ID}, ids)

		again, err := tx.ArchiveByParent(ctx, rule, center, child.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, again)

		live, err := tx.ListFamilyLinks(ctx, center, child.ID, false)
		require.NoError(t, err)
		assert.Empty(t, live)
		return nil
	}))
}
