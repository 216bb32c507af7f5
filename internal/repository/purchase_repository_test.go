package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aulao-api/internal/models"
)

var enrollmentColumnNames = []string{"id", "class_event_id", "student_profile_id", "status", "created_at"}

func expectEventLoad(mock sqlmock.Sqlmock, status models.PublicationStatus, capacity, sold int, startsAt time.Time) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM class_events WHERE id = $1 FOR UPDATE`)).
		WithArgs("ce-1").
		WillReturnRows(sqlmock.NewRows(classEventColumnNames).AddRow(classEventRow("ce-1", status, capacity, sold, startsAt)...))
}

func expectSeatReserved(mock sqlmock.Sqlmock, now time.Time, sold int) {
	mock.ExpectQuery(regexp.QuoteMeta(`RETURNING sold_seats`)).
		WithArgs("ce-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"sold_seats"}).AddRow(sold))
}

func expectNoActiveEnrollment(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollments`)).
		WithArgs("sp-ana", "ce-1", "CANCELLED").
		WillReturnRows(sqlmock.NewRows(enrollmentColumnNames))
}

func TestPurchaseRepositoryPurchaseMockSettlesImmediately(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectEventLoad(mock, models.PublicationPublished, 60, 48, now.Add(24*time.Hour))
	expectNoActiveEnrollment(mock)
	expectSeatReserved(mock, now, 49)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO enrollments`)).
		WithArgs(sqlmock.AnyArg(), "ce-1", "sp-ana", "PAID", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO payments`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "MOCK", int64(12900), "SUCCEEDED", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Purchase(context.Background(), PurchaseParams{
		ClassEventID:     "ce-1",
		StudentProfileID: "sp-ana",
		Provider:         models.ProviderMock,
		Now:              now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPaid, result.Enrollment.Status)
	assert.Equal(t, models.PaymentSucceeded, result.Payment.Status)
	assert.Equal(t, result.Enrollment.ID, result.Payment.EnrollmentID)
	assert.Equal(t, int64(12900), result.Payment.AmountCents)
	assert.Equal(t, 49, result.ClassEvent.SoldSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositoryPurchaseProviderStaysPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectEventLoad(mock, models.PublicationPublished, 60, 48, now.Add(24*time.Hour))
	expectNoActiveEnrollment(mock)
	expectSeatReserved(mock, now, 53)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO enrollments`)).
		WithArgs(sqlmock.AnyArg(), "ce-1", "sp-ana", "PENDING", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO payments`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "STRIPE", int64(12900), "PENDING", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Purchase(context.Background(), PurchaseParams{
		ClassEventID: "ce-1", StudentProfileID: "sp-ana", Provider: models.ProviderStripe, Now: now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPending, result.Enrollment.Status)
	assert.Equal(t, models.PaymentPending, result.Payment.Status)
	assert.Equal(t, 53, result.ClassEvent.SoldSeats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositoryPurchaseRejections(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		setup  func(mock sqlmock.Sqlmock)
		expect error
	}{
		{
			name: "missing event",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`FROM class_events WHERE id = $1`)).
					WithArgs("ce-1").
					WillReturnRows(sqlmock.NewRows(classEventColumnNames))
			},
			expect: sql.ErrNoRows,
		},
		{
			name: "draft event",
			setup: func(mock sqlmock.Sqlmock) {
				expectEventLoad(mock, models.PublicationDraft, 60, 0, now.Add(time.Hour))
				expectNoActiveEnrollment(mock)
			},
			expect: ErrEventNotPurchasable,
		},
		{
			name: "finished event",
			setup: func(mock sqlmock.Sqlmock) {
				expectEventLoad(mock, models.PublicationFinished, 60, 10, now.Add(-time.Hour))
				expectNoActiveEnrollment(mock)
			},
			expect: ErrEventNotPurchasable,
		},
		{
			name: "sold out",
			setup: func(mock sqlmock.Sqlmock) {
				expectEventLoad(mock, models.PublicationPublished, 90, 90, now.Add(time.Hour))
				expectNoActiveEnrollment(mock)
			},
			expect: ErrEventNotPurchasable,
		},
		{
			name: "active enrollment",
			setup: func(mock sqlmock.Sqlmock) {
				expectEventLoad(mock, models.PublicationPublished, 60, 48, now.Add(time.Hour))
				mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollments`)).
					WithArgs("sp-ana", "ce-1", "CANCELLED").
					WillReturnRows(sqlmock.NewRows(enrollmentColumnNames).AddRow("enr-1", "ce-1", "sp-ana", "PENDING", now.Add(-time.Hour)))
			},
			expect: ErrDuplicateEnrollment,
		},
		{
			name: "sold out rebuy by holder",
			setup: func(mock sqlmock.Sqlmock) {
				expectEventLoad(mock, models.PublicationPublished, 1, 1, now.Add(time.Hour))
				mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollments`)).
					WithArgs("sp-ana", "ce-1", "CANCELLED").
					WillReturnRows(sqlmock.NewRows(enrollmentColumnNames).AddRow("enr-1", "ce-1", "sp-ana", "PAID", now.Add(-time.Hour)))
			},
			expect: ErrDuplicateEnrollment,
		},
		{
			name: "lost the last seat",
			setup: func(mock sqlmock.Sqlmock) {
				expectEventLoad(mock, models.PublicationPublished, 60, 59, now.Add(time.Hour))
				expectNoActiveEnrollment(mock)
				mock.ExpectQuery(regexp.QuoteMeta(`RETURNING sold_seats`)).WillReturnRows(sqlmock.NewRows([]string{"sold_seats"}))
			},
			expect: ErrCapacityExceeded,
		},
		{
			name: "concurrent duplicate insert",
			setup: func(mock sqlmock.Sqlmock) {
				expectEventLoad(mock, models.PublicationPublished, 60, 48, now.Add(time.Hour))
				expectNoActiveEnrollment(mock)
				expectSeatReserved(mock, now, 49)
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO enrollments`)).WillReturnError(&pq.Error{Code: "23505"})
			},
			expect: ErrDuplicateEnrollment,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, cleanup := newRepoMock(t)
			defer cleanup()
			repo := NewPurchaseRepository(db)

			mock.ExpectBegin()
			tc.setup(mock)
			mock.ExpectRollback()

			_, err := repo.Purchase(context.Background(), PurchaseParams{
				ClassEventID: "ce-1", StudentProfileID: "sp-ana", Provider: models.ProviderMock, Now: now,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expect)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPurchaseRepositoryDuplicateCarriesExistingEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	expectEventLoad(mock, models.PublicationPublished, 60, 48, now.Add(time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollments`)).
		WillReturnRows(sqlmock.NewRows(enrollmentColumnNames).AddRow("enr-1", "ce-1", "sp-ana", "PAID", now.Add(-time.Hour)))
	mock.ExpectRollback()

	_, err := repo.Purchase(context.Background(), PurchaseParams{
		ClassEventID: "ce-1", StudentProfileID: "sp-ana", Provider: models.ProviderMock, Now: now,
	})
	var dup *DuplicateEnrollmentError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "enr-1", dup.Existing.ID)
	assert.Equal(t, models.EnrollmentPaid, dup.Existing.Status)
}

func TestPurchaseRepositorySettleFailureReleasesSeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM payments WHERE id = $1 FOR UPDATE`)).
		WithArgs("pay-1").
		WillReturnRows(sqlmock.NewRows(paymentColumnNames).AddRow("pay-1", "enr-1", "STRIPE", int64(12900), "PENDING", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollments WHERE id = $1 FOR UPDATE`)).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows(enrollmentColumnNames).AddRow("enr-1", "ce-1", "sp-ana", "PENDING", now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE payments SET status = $2`)).
		WithArgs("pay-1", "FAILED", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET status = $2`)).
		WithArgs("enr-1", "CANCELLED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET sold_seats = sold_seats - 1`)).
		WithArgs("ce-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Settle(context.Background(), "pay-1", false, now)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, result.Payment.Status)
	assert.Equal(t, models.EnrollmentCancelled, result.Enrollment.Status)
	assert.Equal(t, "ce-1", result.ClassEventID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositorySettleSuccessKeepsSeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM payments WHERE id = $1 FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(paymentColumnNames).AddRow("pay-1", "enr-1", "MERCADOPAGO", int64(12900), "PENDING", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollments WHERE id = $1 FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(enrollmentColumnNames).AddRow("enr-1", "ce-1", "sp-ana", "PENDING", now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE payments SET status = $2`)).
		WithArgs("pay-1", "SUCCEEDED", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE enrollments SET status = $2`)).
		WithArgs("enr-1", "PAID").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Settle(context.Background(), "pay-1", true, now)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentPaid, result.Enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepositorySettleRejectsSettledPayment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPurchaseRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM payments WHERE id = $1 FOR UPDATE`)).
		WillReturnRows(sqlmock.NewRows(paymentColumnNames).AddRow("pay-1", "enr-1", "MOCK", int64(8900), "SUCCEEDED", now, now))
	mock.ExpectRollback()

	_, err := repo.Settle(context.Background(), "pay-1", false, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}
