package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aulao-api/internal/dto"
	"github.com/noah-isme/aulao-api/internal/models"
	appErrors "github.com/noah-isme/aulao-api/pkg/errors"
	"github.com/noah-isme/aulao-api/pkg/export"
)

type reportRepository interface {
	ListTeacherClassStats(ctx context.Context, teacherProfileID string) ([]models.ClassEventStats, error)
	ClassEventStats(ctx context.Context, classEventID string) (*models.ClassEventStats, error)
}

type buyerLister interface {
	ListForClassEvent(ctx context.Context, classEventID string) ([]models.BuyerEntry, error)
}

func teacherDashboardCacheKey(teacherProfileID string) string {
	return fmt.Sprintf("dash:teacher:%s", teacherProfileID)
}

// ReportingServiceConfig tunes reporting behaviour.
type ReportingServiceConfig struct {
	CacheTTL time.Duration
}

// ReportingServiceParams groups constructor dependencies.
type ReportingServiceParams struct {
	Reports reportRepository
	Buyers  buyerLister
	Cache   *CacheService
	Logger  *zap.Logger
	Config  ReportingServiceConfig
}

// ReportingService aggregates the ledger for teachers.
type ReportingService struct {
	reports reportRepository
	buyers  buyerLister
	cache   *CacheService
	logger  *zap.Logger
	cfg     ReportingServiceConfig
	now     func() time.Time
}

// NewReportingService constructs a ReportingService.
func NewReportingService(params ReportingServiceParams) *ReportingService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{
		reports: params.Reports,
		buyers:  params.Buyers,
		cache:   params.Cache,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Dashboard returns the teacher's totals and per-class aggregates and reports whether the cache served it.
func (s *ReportingService) Dashboard(ctx context.Context, teacherProfileID string) (*models.TeacherDashboard, bool, error) {
	if teacherProfileID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "teacher profile is required")
	}
	cacheKey := teacherDashboardCacheKey(teacherProfileID)
	var cached models.TeacherDashboard
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	stats, err := s.reports.ListTeacherClassStats(ctx, teacherProfileID)
	if err != nil {
		return nil, false, internalError(err, "failed to load teacher dashboard")
	}
	dashboard := composeDashboard(teacherProfileID, stats, s.now().UTC())

	if err := s.cache.Set(ctx, cacheKey, dashboard, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return dashboard, false, nil
}

func composeDashboard(teacherProfileID string, stats []models.ClassEventStats, now time.Time) *models.TeacherDashboard {
	dashboard := &models.TeacherDashboard{
		TeacherProfileID: teacherProfileID,
		TotalClasses:     len(stats),
		Classes:          make([]models.ClassEventStats, 0, len(stats)),
		GeneratedAt:      now,
	}
	for _, stat := range stats {
		stat.ClassEvent.MeetingURL = nil
		dashboard.TotalRevenueSucceededCents += stat.RevenueSucceededCents
		dashboard.TotalPaidStudents += stat.PaidEnrollments
		if stat.ClassEvent.IsPublished() {
			dashboard.PublishedClasses++
			if !stat.ClassEvent.StartsAt.Before(now) && (dashboard.NextClass == nil || stat.ClassEvent.StartsAt.Before(dashboard.NextClass.StartsAt)) {
				next := stat.ClassEvent
				dashboard.NextClass = &next
			}
		}
		dashboard.Classes = append(dashboard.Classes, stat)
	}
	return dashboard
}

// InvalidateDashboard drops the cached dashboard of the teacher.
func (s *ReportingService) InvalidateDashboard(ctx context.Context, teacherProfileID string) {
	_ = s.cache.Invalidate(ctx, teacherDashboardCacheKey(teacherProfileID))
}

// BuyerList returns the class aggregates and every enrollment with its buyer and payment.
func (s *ReportingService) BuyerList(ctx context.Context, teacherProfileID, classEventID string) (*dto.BuyerListResponse, error) {
	stats, err := s.reports.ClassEventStats(ctx, classEventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEventNotFound
		}
		return nil, internalError(err, "failed to load class event")
	}
	if stats.ClassEvent.TeacherProfileID != teacherProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class event belongs to another teacher")
	}
	buyers, err := s.buyers.ListForClassEvent(ctx, classEventID)
	if err != nil {
		return nil, internalError(err, "failed to list buyers")
	}
	stats.ClassEvent.MeetingURL = nil
	return &dto.BuyerListResponse{ClassEvent: *stats, Buyers: buyers}, nil
}

var buyerColumns = []export.Column{
	{Key: "student", Label: "Aluno", Width: 55},
	{Key: "email", Label: "E-mail", Width: 65},
	{Key: "status", Label: "Matrícula", Width: 25},
	{Key: "enrolled_at", Label: "Data", Width: 35},
	{Key: "provider", Label: "Provedor", Width: 30},
	{Key: "payment_status", Label: "Pagamento", Width: 30},
	{Key: "amount", Label: "Valor"},
}

// ExportBuyers renders the buyer list as CSV or PDF.
func (s *ReportingService) ExportBuyers(ctx context.Context, teacherProfileID, classEventID, rawFormat string) (*dto.ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	list, err := s.BuyerList(ctx, teacherProfileID, classEventID)
	if err != nil {
		return nil, err
	}

	event := list.ClassEvent.ClassEvent
	dataset := export.Dataset{
		Title:   "Compradores - " + event.Title,
		Columns: buyerColumns,
		Rows:    make([]map[string]string, 0, len(list.Buyers)),
	}
	dataset.Subtitle = fmt.Sprintf("%s | %d/%d vagas | receita %s",
		event.StartsAt.UTC().Format("02/01/2006 15:04 MST"),
		event.SoldSeats, event.Capacity,
		formatCents(list.ClassEvent.RevenueSucceededCents),
	)
	for _, buyer := range list.Buyers {
		row := map[string]string{
			"student":     buyer.User.Name,
			"email":       buyer.User.Email,
			"status":      string(buyer.Enrollment.Status),
			"enrolled_at": buyer.Enrollment.CreatedAt.UTC().Format(time.RFC3339),
		}
		if buyer.Payment != nil {
			row["provider"] = string(buyer.Payment.Provider)
			row["payment_status"] = string(buyer.Payment.Status)
			row["amount"] = formatCents(buyer.Payment.AmountCents)
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, internalError(err, "failed to render buyer export")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("compradores-%s.%s", event.ID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// formatCents renders minor units as a decimal amount, e.g. 14900 -> 149.00.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	fraction := strconv.FormatInt(cents%100, 10)
	return sign + strconv.FormatInt(cents/100, 10) + "." + strings.Repeat("0", 2-len(fraction)) + fraction
}
