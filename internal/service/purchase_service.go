package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aulao-api/internal/access"
	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/models"
	"github.com/noah-isme/aulao-api/internal/repository"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
)

type paymentReader interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error)
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type purchaseStore interface {
	Purchase(ctx context.Context, params repository.PurchaseParams) (*repository.PurchaseResult, error)
	Settle(ctx context.Context, paymentID string, succeeded bool, now time.Time) (*repository.SettlementResult, error)
}

// PurchaseServiceParams groups constructor dependencies.
type PurchaseServiceParams struct {
	Purchases   purchaseStore
	Payments    paymentReader
	Enrollments enrollmentReader
	Events      classEventReader
	Cache       *CacheService
	Metrics     *MetricsService
	Emitter     EventEmitter
	Validator   *validator.Validate
	Logger      *zap.Logger
	// Timeout bounds the seat reservation transaction.
	Timeout time.Duration
}

// PurchaseService is the single write path turning a checkout into ledger state.
type PurchaseService struct {
	purchases   purchaseStore
	payments    paymentReader
	enrollments enrollmentReader
	events      classEventReader
	cache       *CacheService
	metrics     *MetricsService
	emitter     EventEmitter
	validator   *validator.Validate
	logger      *zap.Logger
	timeout     time.Duration
	now         func() time.Time
}

// NewPurchaseService constructs a PurchaseService.
func NewPurchaseService(params PurchaseServiceParams) *PurchaseService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	v := params.Validator
	if v == nil {
		v = validator.New()
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PurchaseService{
		purchases:   params.Purchases,
		payments:    params.Payments,
		enrollments: params.Enrollments,
		events:      params.Events,
		cache:       params.Cache,
		metrics:     params.Metrics,
		emitter:     params.Emitter,
		validator:   v,
		logger:      logger,
		timeout:     timeout,
		now:         time.Now,
	}
}

// PurchaseSeat reserves a seat for the student and records the enrollment and payment.
// Rejections are never retried here: a retry could enroll the student twice.
func (s *PurchaseService) PurchaseSeat(ctx context.Context, classEventID, studentProfileID string, req dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid purchase payload")
	}
	if classEventID == "" || studentProfileID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class event and student are required")
	}
	provider := req.Provider
	if provider == "" {
		provider = models.ProviderMock
	}

	reserveCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	now := s.now().UTC()
	result, err := s.purchases.Purchase(reserveCtx, repository.PurchaseParams{
		ClassEventID:     classEventID,
		StudentProfileID: studentProfileID,
		Provider:         provider,
		Now:              now,
	})
	elapsed := time.Since(start)
	if err != nil {
		if reserveCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = context.DeadlineExceeded
		}
		outcome, mapped := s.mapPurchaseError(ctx, classEventID, err)
		s.metrics.RecordPurchase(outcome, elapsed)
		if outcome == PurchaseOutcomeError || outcome == PurchaseOutcomeTimeout {
			s.logger.Error("purchase failed",
				zap.String("class_event_id", classEventID),
				zap.String("student_profile_id", studentProfileID),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		}
		return nil, mapped
	}

	outcome := PurchaseOutcomePending
	if result.Enrollment.Status == models.EnrollmentPaid {
		outcome = PurchaseOutcomeSucceeded
	}
	s.metrics.RecordPurchase(outcome, elapsed)
	s.logger.Info("seat purchased",
		zap.String("class_event_id", classEventID),
		zap.String("student_profile_id", studentProfileID),
		zap.String("enrollment_id", result.Enrollment.ID),
		zap.String("status", string(result.Enrollment.Status)),
		zap.String("provider", string(provider)),
		zap.Int("spots_remaining", result.ClassEvent.SpotsRemaining()),
	)

	payload := EnrollmentEvent{
		EnrollmentID:     result.Enrollment.ID,
		ClassEventID:     classEventID,
		TeacherProfileID: result.ClassEvent.TeacherProfileID,
		StudentProfileID: studentProfileID,
		Status:           result.Enrollment.Status,
		PaymentID:        result.Payment.ID,
		Provider:         result.Payment.Provider,
		AmountCents:      result.Payment.AmountCents,
	}
	s.emit(EventEnrollmentCreated, payload)
	if result.Enrollment.Status == models.EnrollmentPaid {
		s.emit(EventEnrollmentPaid, payload)
	}
	s.invalidateDashboard(ctx, result.ClassEvent.TeacherProfileID)

	return &dto.PurchaseResponse{
		Enrollment:   result.Enrollment,
		Payment:      result.Payment,
		AccessState:  access.State(result.ClassEvent, &result.Enrollment, now),
		Availability: dto.NewAvailability(result.ClassEvent),
	}, nil
}

func (s *PurchaseService) mapPurchaseError(ctx context.Context, classEventID string, err error) (string, error) {
	var duplicate *repository.DuplicateEnrollmentError
	switch {
	case errors.As(err, &duplicate):
		return PurchaseOutcomeDuplicate, s.duplicateError(ctx, classEventID, &duplicate.Existing)
	case errors.Is(err, repository.ErrDuplicateEnrollment):
		return PurchaseOutcomeDuplicate, appErrors.ErrDuplicateEnrollment
	case errors.Is(err, sql.ErrNoRows):
		return PurchaseOutcomeNotFound, appErrors.ErrEventNotFound
	case errors.Is(err, repository.ErrEventNotPurchasable):
		return PurchaseOutcomeNotPurchasable, appErrors.ErrEventNotPurchasable
	case errors.Is(err, repository.ErrCapacityExceeded):
		return PurchaseOutcomeSoldOut, appErrors.ErrCapacityExceeded
	case errors.Is(err, context.DeadlineExceeded):
		return PurchaseOutcomeTimeout, appErrors.ErrPurchaseTimeout
	default:
		return PurchaseOutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purchase seat")
	}
}

// duplicateError points the caller at the enrollment it already holds.
func (s *PurchaseService) duplicateError(ctx context.Context, classEventID string, existing *models.Enrollment) error {
	details := map[string]interface{}{
		"enrollmentId":     existing.ID,
		"enrollmentStatus": existing.Status,
	}
	if s.events != nil {
		if event, err := s.events.FindByID(ctx, classEventID); err == nil {
			details["accessState"] = access.State(*event, existing, s.now())
		}
	}
	if s.payments != nil {
		if payment, err := s.payments.FindByEnrollment(ctx, existing.ID); err == nil {
			details["paymentId"] = payment.ID
			details["paymentStatus"] = payment.Status
		}
	}
	return appErrors.WithDetails(appErrors.ErrDuplicateEnrollment, details)
}

// Payment returns a payment with its enrollment so clients can poll a pending checkout.
func (s *PurchaseService) Payment(ctx context.Context, paymentID string) (*dto.SettlementResponse, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrPaymentNotFound
		}
		return nil, internalError(err, "failed to load payment")
	}
	enrollment, err := s.enrollments.FindByID(ctx, payment.EnrollmentID)
	if err != nil {
		return nil, internalError(err, "failed to load enrollment")
	}
	return &dto.SettlementResponse{Enrollment: *enrollment, Payment: *payment}, nil
}

// ConfirmPayment settles a pending payment as succeeded.
func (s *PurchaseService) ConfirmPayment(ctx context.Context, paymentID string) (*dto.SettlementResponse, error) {
	return s.settle(ctx, paymentID, true)
}

// FailPayment settles a pending payment as failed, cancelling the enrollment and freeing its seat.
func (s *PurchaseService) FailPayment(ctx context.Context, paymentID string) (*dto.SettlementResponse, error) {
	return s.settle(ctx, paymentID, false)
}

func (s *PurchaseService) settle(ctx context.Context, paymentID string, succeeded bool) (*dto.SettlementResponse, error) {
	if paymentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment id is required")
	}
	result, err := s.purchases.Settle(ctx, paymentID, succeeded, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.ErrPaymentNotFound
		case errors.Is(err, repository.ErrInvalidTransition):
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "payment is already settled")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle payment")
		}
	}

	s.metrics.RecordSettlement(string(result.Payment.Provider), string(result.Payment.Status))
	s.logger.Info("payment settled",
		zap.String("payment_id", paymentID),
		zap.String("enrollment_id", result.Enrollment.ID),
		zap.String("status", string(result.Payment.Status)),
	)

	payload := EnrollmentEvent{
		EnrollmentID:     result.Enrollment.ID,
		ClassEventID:     result.ClassEventID,
		StudentProfileID: result.Enrollment.StudentProfileID,
		Status:           result.Enrollment.Status,
		PaymentID:        result.Payment.ID,
		Provider:         result.Payment.Provider,
		AmountCents:      result.Payment.AmountCents,
	}
	if s.events != nil {
		if event, err := s.events.FindByID(ctx, result.ClassEventID); err == nil {
			payload.TeacherProfileID = event.TeacherProfileID
			s.invalidateDashboard(ctx, event.TeacherProfileID)
		}
	}
	if succeeded {
		s.emit(EventEnrollmentPaid, payload)
	} else {
		s.emit(EventEnrollmentCancelled, payload)
	}

	return &dto.SettlementResponse{Enrollment: result.Enrollment, Payment: result.Payment}, nil
}

func (s *PurchaseService) emit(eventType string, data interface{}) {
	if s.emitter != nil {
		s.emitter.Emit(eventType, data)
	}
}

func (s *PurchaseService) invalidateDashboard(ctx context.Context, teacherProfileID string) {
	if teacherProfileID == "" {
		return
	}
	_ = s.cache.Invalidate(ctx, teacherDashboardCacheKey(teacherProfileID))
}
