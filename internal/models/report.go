package models

import "time"

// ClassEventStats aggregates the ledger of one class event.
type ClassEventStats struct {
	ClassEvent            ClassEvent `db:"class_event" json:"classEvent"`
	PaidEnrollments       int        `db:"paid_enrollments" json:"paidEnrollments"`
	PendingEnrollments    int        `db:"pending_enrollments" json:"pendingEnrollments"`
	RevenueSucceededCents int64      `db:"revenue_succeeded_cents" json:"revenueSucceededCents"`
}

// TeacherDashboard summarises every class event owned by a teacher.
type TeacherDashboard struct {
	TeacherProfileID           string            `json:"teacherProfileId"`
	TotalRevenueSucceededCents int64             `json:"totalRevenueSucceededCents"`
	TotalPaidStudents          int               `json:"totalPaidStudents"`
	TotalClasses               int               `json:"totalClasses"`
	PublishedClasses           int               `json:"publishedClasses"`
	NextClass                  *ClassEvent       `json:"nextClass,omitempty"`
	Classes                    []ClassEventStats `json:"classes"`
	GeneratedAt                time.Time         `json:"generatedAt"`
}
