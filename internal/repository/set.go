package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aulao-api/internal/models"
)

// CatalogStore reads institutions, subjects and teacher profiles.
type CatalogStore interface {
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	FindInstitution(ctx context.Context, id string) (*models.Institution, error)
	FindSubject(ctx context.Context, id string) (*models.Subject, error)
	FindTeacher(ctx context.Context, id string) (*models.TeacherProfile, error)
	FindUser(ctx context.Context, id string) (*models.User, error)
	ListInstitutionSubjects(ctx context.Context, institutionID string) ([]models.InstitutionSubjectDetail, error)
	ListTeachersWithPublishedClasses(ctx context.Context, institutionID, subjectID string) ([]models.TeacherProfile, error)
}

// ClassEventStore persists class events and their lifecycle transitions.
type ClassEventStore interface {
	FindByID(ctx context.Context, id string) (*models.ClassEvent, error)
	List(ctx context.Context, filter models.ClassEventFilter) ([]models.ClassEvent, error)
	Create(ctx context.Context, event *models.ClassEvent) error
	TransitionPublication(ctx context.Context, id string, from, to models.PublicationStatus, now time.Time) error
	ReleaseMeeting(ctx context.Context, id, meetingURL string, now time.Time) error
	ReleaseDue(ctx context.Context, now time.Time) ([]models.ClassEvent, error)
	FinishElapsed(ctx context.Context, now time.Time) (int64, error)
}

// EnrollmentStore reads the enrollment ledger.
type EnrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindActive(ctx context.Context, studentProfileID, classEventID string) (*models.Enrollment, error)
	ListForStudent(ctx context.Context, studentProfileID string) ([]models.AgendaEntry, error)
	ListForClassEvent(ctx context.Context, classEventID string) ([]models.BuyerEntry, error)
}

// PaymentStore reads payments.
type PaymentStore interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Payment, error)
}

// CheckoutStore runs the transactional purchase and settlement steps.
type CheckoutStore interface {
	Purchase(ctx context.Context, params PurchaseParams) (*PurchaseResult, error)
	Settle(ctx context.Context, paymentID string, succeeded bool, now time.Time) (*SettlementResult, error)
}

// ReportStore aggregates per-event sales figures.
type ReportStore interface {
	ListTeacherClassStats(ctx context.Context, teacherProfileID string) ([]models.ClassEventStats, error)
	ClassEventStats(ctx context.Context, classEventID string) (*models.ClassEventStats, error)
}

// Set bundles one implementation of every store so callers can swap backends.
type Set struct {
	Catalog     CatalogStore
	ClassEvents ClassEventStore
	Enrollments EnrollmentStore
	Payments    PaymentStore
	Purchases   CheckoutStore
	Reports     ReportStore
}

// NewPostgresSet builds the Postgres-backed stores over one connection pool.
func NewPostgresSet(db *sqlx.DB) Set {
	return Set{
		Catalog:     NewCatalogRepository(db),
		ClassEvents: NewClassEventRepository(db),
		Enrollments: NewEnrollmentRepository(db),
		Payments:    NewPaymentRepository(db),
		Purchases:   NewPurchaseRepository(db),
		Reports:     NewReportRepository(db),
	}
}
