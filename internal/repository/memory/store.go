// Package memory provides an in-process datastore with the same contracts as the
// Postgres repositories. Every write runs under a single store-wide lock, so a
// purchase observes and mutates seats and enrollments as one unit.
package memory

import (
	"sort"
	"sync"

	"github.com/noah-isme/aulao-api/internal/models"
)

type enrollmentKey struct {
	studentProfileID string
	classEventID     string
}

// Store holds every record in maps keyed by ID.
type Store struct {
	mu sync.RWMutex

	users               map[string]models.User
	studentProfiles     map[string]models.StudentProfile
	teacherProfiles     map[string]models.TeacherProfile
	institutions        map[string]models.Institution
	subjects            map[string]models.Subject
	institutionSubjects []models.InstitutionSubject
	teacherSubjects     []models.TeacherSubject

	classEvents map[string]models.ClassEvent
	enrollments map[string]models.Enrollment
	payments    map[string]models.Payment

	// active indexes the non-cancelled enrollment of each (student, event) pair.
	active map[enrollmentKey]string
	// paymentByEnrollment maps enrollment IDs to payment IDs.
	paymentByEnrollment map[string]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:               make(map[string]models.User),
		studentProfiles:     make(map[string]models.StudentProfile),
		teacherProfiles:     make(map[string]models.TeacherProfile),
		institutions:        make(map[string]models.Institution),
		subjects:            make(map[string]models.Subject),
		classEvents:         make(map[string]models.ClassEvent),
		enrollments:         make(map[string]models.Enrollment),
		payments:            make(map[string]models.Payment),
		active:              make(map[enrollmentKey]string),
		paymentByEnrollment: make(map[string]string),
	}
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// PutStudentProfile inserts or replaces a student profile.
func (s *Store) PutStudentProfile(profile models.StudentProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.studentProfiles[profile.ID] = profile
}

// PutTeacherProfile inserts or replaces a teacher profile.
func (s *Store) PutTeacherProfile(profile models.TeacherProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teacherProfiles[profile.ID] = profile
}

// PutInstitution inserts or replaces an institution.
func (s *Store) PutInstitution(institution models.Institution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.institutions[institution.ID] = institution
}

// PutSubject inserts or replaces a subject.
func (s *Store) PutSubject(subject models.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subject.ID] = subject
}

// AddInstitutionSubject appends a curriculum entry.
func (s *Store) AddInstitutionSubject(entry models.InstitutionSubject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.institutionSubjects = append(s.institutionSubjects, entry)
}

// AddTeacherSubject appends a teacher specialty.
func (s *Store) AddTeacherSubject(entry models.TeacherSubject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teacherSubjects = append(s.teacherSubjects, entry)
}

// PutClassEvent inserts or replaces a class event as-is.
func (s *Store) PutClassEvent(event models.ClassEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classEvents[event.ID] = cloneEvent(event)
}

// PutEnrollment inserts an enrollment and, when given, its payment.
func (s *Store) PutEnrollment(enrollment models.Enrollment, payment *models.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putEnrollmentLocked(enrollment)
	if payment != nil {
		s.payments[payment.ID] = *payment
		s.paymentByEnrollment[enrollment.ID] = payment.ID
	}
}

func (s *Store) putEnrollmentLocked(enrollment models.Enrollment) {
	key := enrollmentKey{studentProfileID: enrollment.StudentProfileID, classEventID: enrollment.ClassEventID}
	s.enrollments[enrollment.ID] = enrollment
	if enrollment.Status.IsActive() {
		s.active[key] = enrollment.ID
	} else if s.active[key] == enrollment.ID {
		delete(s.active, key)
	}
}

func (s *Store) sortedEvents(match func(models.ClassEvent) bool) []models.ClassEvent {
	events := make([]models.ClassEvent, 0)
	for _, event := range s.classEvents {
		if match(event) {
			events = append(events, cloneEvent(event))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events
}

func cloneEvent(event models.ClassEvent) models.ClassEvent {
	if event.MeetingURL != nil {
		url := *event.MeetingURL
		event.MeetingURL = &url
	}
	return event
}
