package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finware/notify/internal/bus"
	testutil "github.com/finware/notify/internal/database/testutil"
	"github.com/finware/notify/internal/models"
)

func TestPruneRead(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Date(2026, 8, 10, 15, 0, 0, 0, time.UTC)

	oldRead := models.Notification{
		UserID:    1,
		Title:     "old read",
		Content:   "c",
		Type:      models.TypeInvoices,
		Read:      true,
		CreatedAt: now.AddDate(0, 0, -120),
	}
	oldUnread := models.Notification{
		UserID:    1,
		Title:     "old unread",
		Content:   "c",
		Type:      models.TypeInvoices,
		Read:      false,
		CreatedAt: now.AddDate(0, 0, -120),
	}
	freshRead := models.Notification{
		UserID:    1,
		Title:     "fresh read",
		Content:   "c",
		Type:      models.TypeReports,
		Read:      true,
		CreatedAt: now.AddDate(0, 0, -5),
	}
	require.NoError(t, db.Create(&oldRead).Error)
	require.NoError(t, db.Create(&oldUnread).Error)
	require.NoError(t, db.Create(&freshRead).Error)

	deleted, err := PruneRead(context.Background(), db, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, n := range remaining {
		require.NotEqual(t, "old read", n.Title)
	}
}

func TestPruneReadRequiresDB(t *testing.T) {
	_, err := PruneRead(context.Background(), nil, time.Now())
	require.Error(t, err)
}

func TestReporterDefaultNeverDeletes(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	now := time.Date(2026, 8, 10, 15, 0, 0, 0, time.UTC)
	ancient := models.Notification{
		UserID:    1,
		Title:     "ancient read",
		Content:   "c",
		Type:      models.TypeInvoices,
		Read:      true,
		CreatedAt: now.AddDate(0, 0, -120),
	}
	require.NoError(t, db.Create(&ancient).Error)

	// Without an explicit retention the reporter must leave records alone.
	reporter := NewReporter(db, nil, WithNow(func() time.Time { return now }))
	require.NoError(t, reporter.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// A zero retention option is the same as no option.
	reporter = NewReporter(db, nil, WithRetentionDays(0))
	require.NoError(t, reporter.RunOnce(context.Background()))
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestReporterRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	b := bus.New[models.Notification]()
	t.Cleanup(b.Close)

	now := time.Date(2026, 8, 10, 15, 0, 0, 0, time.UTC)
	stale := models.Notification{
		UserID:    1,
		Title:     "stale",
		Content:   "c",
		Type:      models.TypeInvoices,
		Read:      true,
		CreatedAt: now.AddDate(0, 0, -200),
	}
	require.NoError(t, db.Create(&stale).Error)

	reporter := NewReporter(db, b.Registry(),
		WithNow(func() time.Time { return now }),
		WithRetentionDays(30),
	)
	require.NoError(t, reporter.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestReporterStartStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	b := bus.New[models.Notification]()
	t.Cleanup(b.Close)

	reporter := NewReporter(db, b.Registry())
	require.NoError(t, reporter.Start())

	stopCtx := reporter.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
