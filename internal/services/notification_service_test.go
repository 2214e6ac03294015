package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finware/notify/internal/bus"
	"github.com/finware/notify/internal/database/testutil"
	"github.com/finware/notify/internal/models"
	"github.com/finware/notify/internal/store"
	apperrors "github.com/finware/notify/pkg/errors"
)

// failingStore rejects every operation, simulating a persistence outage.
type failingStore struct {
	err error
}

func (f *failingStore) Create(context.Context, *models.Notification) (*models.Notification, error) {
	return nil, f.err
}

func (f *failingStore) FindByUser(context.Context, int64, int, int) ([]models.Notification, error) {
	return nil, f.err
}

func (f *failingStore) UnreadCount(context.Context, int64) (int64, error) {
	return 0, f.err
}

func (f *failingStore) MarkAsRead(context.Context, uint) error {
	return f.err
}

func newTestService(t *testing.T) (*NotificationService, *bus.Bus[models.Notification]) {
	t.Helper()

	st, err := store.NewGormStore(testutil.MustOpenTestDB(t))
	require.NoError(t, err)

	b := bus.New[models.Notification]()
	svc, err := NewNotificationService(st, b)
	require.NoError(t, err)
	return svc, b
}

func TestTopicShape(t *testing.T) {
	require.Equal(t, "42.notify", Topic(42))
	require.Equal(t, "7.notify", Topic(7))
}

func TestCreateAndEmitReachesLiveSubscriber(t *testing.T) {
	svc, _ := newTestService(t)

	sub := svc.Subscribe(Topic(42))
	defer sub.Cancel()

	created, err := svc.CreateAndEmit(context.Background(), CreateNotificationInput{
		UserID:      42,
		Title:       "Sua fatura Visa fechou!",
		Content:     "Efetue o pagamento até o dia 10/03.",
		ReferenceID: "inv-1",
		Type:        models.TypeInvoices,
		Metadata:    map[string]any{"month": "2024-03"},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	select {
	case got := <-sub.C():
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, created.Title, got.Title)
		require.False(t, got.Read)
	case <-time.After(time.Second):
		t.Fatal("expected live delivery")
	}
}

func TestCreateAndEmitWithoutSubscribersSucceeds(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateAndEmit(context.Background(), CreateNotificationInput{
		UserID:  99,
		Title:   "Relatório pronto!",
		Content: "clique aqui para baixar",
		Type:    models.TypeReports,
	})
	require.NoError(t, err)
}

func TestCreateFailureNeverEmits(t *testing.T) {
	b := bus.New[models.Notification]()
	svc, err := NewNotificationService(&failingStore{err: errors.New("connection refused")}, b)
	require.NoError(t, err)

	sub := svc.Subscribe(Topic(42))
	defer sub.Cancel()

	_, err = svc.CreateAndEmit(context.Background(), CreateNotificationInput{
		UserID:  42,
		Title:   "t",
		Content: "c",
		Type:    models.TypeInvoices,
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrStoreUnavailable.Code, appErr.Code)

	select {
	case got := <-sub.C():
		t.Fatalf("unpersisted notification delivered live: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCreateAndEmitValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAndEmit(ctx, CreateNotificationInput{Title: "t", Content: "c", Type: models.TypeInvoices})
	require.Error(t, err)

	_, err = svc.CreateAndEmit(ctx, CreateNotificationInput{UserID: 42, Type: models.TypeInvoices})
	require.Error(t, err)
}

func TestMarkAsReadMapsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.MarkAsRead(context.Background(), 12345)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListAndUnreadCountRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateAndEmit(ctx, CreateNotificationInput{
			UserID:  42,
			Title:   "t",
			Content: "c",
			Type:    models.TypeInvoices,
		})
		require.NoError(t, err)
	}

	count, err := svc.UnreadCount(ctx, 42)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	rows, err := svc.ListForUser(ctx, 42, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, svc.MarkAsRead(ctx, rows[0].ID))

	count, err = svc.UnreadCount(ctx, 42)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}
