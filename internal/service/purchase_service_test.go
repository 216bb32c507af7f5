package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/internal/repository"
	"github.com/noah-isme/aulao-api/internal/repository/memory"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
)

type purchaseFixture struct {
	svc     *PurchaseService
	store   *memory.Store
	emitter *fakeEmitter
	cache   *fakeCacheRepo
	metrics *MetricsService
}

func newPurchaseFixture(t *testing.T, store *memory.Store) *purchaseFixture {
	t.Helper()
	metrics := NewMetricsService()
	cacheRepo := newFakeCacheRepo()
	emitter := &fakeEmitter{}
	svc := NewPurchaseService(PurchaseServiceParams{
		Purchases:   memory.NewPurchaseRepository(store),
		Payments:    memory.NewPaymentRepository(store),
		Enrollments: memory.NewEnrollmentRepository(store),
		Events:      memory.NewClassEventRepository(store),
		Cache:       NewCacheService(cacheRepo, metrics, time.Minute, nil, true),
		Metrics:     metrics,
		Emitter:     emitter,
	})
	svc.now = fixedClock(seedNow)
	return &purchaseFixture{svc: svc, store: store, emitter: emitter, cache: cacheRepo, metrics: metrics}
}

func singleEventStore(capacity, sold int) *memory.Store {
	store := memory.New()
	store.PutClassEvent(models.ClassEvent{
		ID: "ce-1", Title: "Cálculo", TeacherProfileID: "tp-rafael", StartsAt: seedNow.Add(24 * time.Hour),
		DurationMin: 90, PriceCents: 14900, Capacity: capacity, SoldSeats: sold,
		PublicationStatus: models.PublicationPublished, MeetingStatus: models.MeetingLocked,
	})
	return store
}

func TestPurchaseSeatLastSeatThenSoldOut(t *testing.T) {
	f := newPurchaseFixture(t, singleEventStore(60, 59))
	ctx := context.Background()

	resp, err := f.svc.PurchaseSeat(ctx, "ce-1", "sp-a", dto.PurchaseRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPaid, resp.Enrollment.Status)
	assert.Equal(t, models.ProviderMock, resp.Payment.Provider)
	assert.Equal(t, models.PaymentSucceeded, resp.Payment.Status)
	assert.Equal(t, int64(14900), resp.Payment.AmountCents)
	assert.Equal(t, models.AccessWaitingRelease, resp.AccessState)
	assert.True(t, resp.Availability.IsSoldOut)
	assert.Equal(t, 60, resp.Availability.SoldSeats)

	_, err = f.svc.PurchaseSeat(ctx, "ce-1", "sp-b", dto.PurchaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrEventNotPurchasable)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.purchaseAttempts.WithLabelValues(PurchaseOutcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.purchaseAttempts.WithLabelValues(PurchaseOutcomeNotPurchasable)))
	assert.Equal(t, []string{EventEnrollmentCreated, EventEnrollmentPaid}, f.emitter.types())
}

func TestPurchaseSeatDuplicateCarriesExistingEnrollment(t *testing.T) {
	f := newPurchaseFixture(t, seededStore(t))

	_, err := f.svc.PurchaseSeat(context.Background(), "ce-insper-calculo", "sp-ana", dto.PurchaseRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateEnrollment)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "enr-ana-insper-calculo", appErr.Details["enrollmentId"])
	assert.Equal(t, models.EnrollmentPaid, appErr.Details["enrollmentStatus"])
	assert.Equal(t, models.AccessCanEnter, appErr.Details["accessState"])
	assert.Equal(t, "pay-ana-insper-calculo", appErr.Details["paymentId"])

	event, err := memory.NewClassEventRepository(f.store).FindByID(context.Background(), "ce-insper-calculo")
	require.NoError(t, err)
	assert.Equal(t, 34, event.SoldSeats)
	assert.Empty(t, f.emitter.types())
}

func TestPurchaseSeatRebuyOfSoldOutEventIsDuplicate(t *testing.T) {
	f := newPurchaseFixture(t, singleEventStore(1, 0))
	ctx := context.Background()

	first, err := f.svc.PurchaseSeat(ctx, "ce-1", "sp-a", dto.PurchaseRequest{})
	require.NoError(t, err)
	require.True(t, first.Availability.IsSoldOut)

	_, err = f.svc.PurchaseSeat(ctx, "ce-1", "sp-a", dto.PurchaseRequest{})
	require.ErrorIs(t, err, appErrors.ErrDuplicateEnrollment)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, first.Enrollment.ID, appErr.Details["enrollmentId"])
	assert.Equal(t, models.AccessWaitingRelease, appErr.Details["accessState"])
	assert.Equal(t, first.Payment.ID, appErr.Details["paymentId"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.purchaseAttempts.WithLabelValues(PurchaseOutcomeDuplicate)))
}

func TestPurchaseSeatPendingProviderAndSettlement(t *testing.T) {
	f := newPurchaseFixture(t, singleEventStore(10, 0))
	ctx := context.Background()
	f.cache.store[teacherDashboardCacheKey("tp-rafael")] = []byte(`{}`)

	resp, err := f.svc.PurchaseSeat(ctx, "ce-1", "sp-a", dto.PurchaseRequest{Provider: models.ProviderStripe})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, resp.Enrollment.Status)
	assert.Equal(t, models.AccessPendingPayment, resp.AccessState)
	assert.False(t, f.cache.has(teacherDashboardCacheKey("tp-rafael")))
	assert.Equal(t, []string{EventEnrollmentCreated}, f.emitter.types())

	settled, err := f.svc.ConfirmPayment(ctx, resp.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPaid, settled.Enrollment.Status)
	assert.Equal(t, models.PaymentSucceeded, settled.Payment.Status)
	assert.Equal(t, []string{EventEnrollmentCreated, EventEnrollmentPaid}, f.emitter.types())

	_, err = f.svc.FailPayment(ctx, resp.Payment.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = f.svc.ConfirmPayment(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrPaymentNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.settlements.WithLabelValues("STRIPE", "SUCCEEDED")))

	payment, err := f.svc.Payment(ctx, resp.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSucceeded, payment.Payment.Status)
	assert.Equal(t, models.EnrollmentPaid, payment.Enrollment.Status)
	_, err = f.svc.Payment(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrPaymentNotFound)
}

func TestFailPaymentReleasesSeat(t *testing.T) {
	f := newPurchaseFixture(t, seededStore(t))
	ctx := context.Background()

	settled, err := f.svc.FailPayment(ctx, "pay-ana-mobile-fisica")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCancelled, settled.Enrollment.Status)
	assert.Equal(t, models.PaymentFailed, settled.Payment.Status)
	assert.Equal(t, []string{EventEnrollmentCancelled}, f.emitter.types())
	assert.Contains(t, f.cache.deleted, teacherDashboardCacheKey("tp-rafael"))

	event, err := memory.NewClassEventRepository(f.store).FindByID(ctx, "ce-mobile-fisica")
	require.NoError(t, err)
	assert.Equal(t, 54, event.SoldSeats)

	again, err := f.svc.PurchaseSeat(ctx, "ce-mobile-fisica", "sp-ana", dto.PurchaseRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPaid, again.Enrollment.Status)
}

func TestPurchaseSeatRejections(t *testing.T) {
	f := newPurchaseFixture(t, seededStore(t))
	ctx := context.Background()

	_, err := f.svc.PurchaseSeat(ctx, "missing", "sp-ana", dto.PurchaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrEventNotFound)

	_, err = f.svc.PurchaseSeat(ctx, "ce-fgv-draft-casos", "sp-ana", dto.PurchaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrEventNotPurchasable)

	_, err = f.svc.PurchaseSeat(ctx, "ce-fgv-redacao", "sp-ana", dto.PurchaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrEventNotPurchasable)

	_, err = f.svc.PurchaseSeat(ctx, "ce-insper-estatistica", "sp-ana", dto.PurchaseRequest{Provider: "PIX"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.PurchaseSeat(ctx, "ce-insper-estatistica", "", dto.PurchaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

type stubPurchaseStore struct {
	purchase func(ctx context.Context, params repository.PurchaseParams) (*repository.PurchaseResult, error)
}

func (s *stubPurchaseStore) Purchase(ctx context.Context, params repository.PurchaseParams) (*repository.PurchaseResult, error) {
	return s.purchase(ctx, params)
}

func (s *stubPurchaseStore) Settle(context.Context, string, bool, time.Time) (*repository.SettlementResult, error) {
	return nil, errors.New("not implemented")
}

func TestPurchaseSeatTimeout(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewPurchaseService(PurchaseServiceParams{
		Purchases: &stubPurchaseStore{purchase: func(ctx context.Context, _ repository.PurchaseParams) (*repository.PurchaseResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
		Metrics: metrics,
		Timeout: 10 * time.Millisecond,
	})

	_, err := svc.PurchaseSeat(context.Background(), "ce-1", "sp-a", dto.PurchaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrPurchaseTimeout)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.purchaseAttempts.WithLabelValues(PurchaseOutcomeTimeout)))
}

func TestPurchaseSeatLostRaceMapsToCapacityExceeded(t *testing.T) {
	svc := NewPurchaseService(PurchaseServiceParams{
		Purchases: &stubPurchaseStore{purchase: func(context.Context, repository.PurchaseParams) (*repository.PurchaseResult, error) {
			return nil, repository.ErrCapacityExceeded
		}},
	})

	_, err := svc.PurchaseSeat(context.Background(), "ce-1", "sp-a", dto.PurchaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrCapacityExceeded)
}

func TestPurchaseSeatUnexpectedErrorIsInternal(t *testing.T) {
	svc := NewPurchaseService(PurchaseServiceParams{
		Purchases: &stubPurchaseStore{purchase: func(context.Context, repository.PurchaseParams) (*repository.PurchaseResult, error) {
			return nil, errors.New("connection refused")
		}},
	})

	_, err := svc.PurchaseSeat(context.Background(), "ce-1", "sp-a", dto.PurchaseRequest{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
