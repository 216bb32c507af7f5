package memory

import (
	"context"
	"database/sql"
	"sort"

	"github.com/noah-isme/aulao-api/internal/models"
)

// CatalogRepository serves reference data from the store.
type CatalogRepository struct {
	store *Store
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{store: store}
}

// ListInstitutions returns institutions ordered by name.
func (r *CatalogRepository) ListInstitutions(_ context.Context) ([]models.Institution, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	institutions := make([]models.Institution, 0, len(r.store.institutions))
	for _, institution := range r.store.institutions {
		institutions = append(institutions, institution)
	}
	sort.Slice(institutions, func(i, j int) bool { return institutions[i].Name < institutions[j].Name })
	return institutions, nil
}

// FindInstitution returns an institution or sql.ErrNoRows.
func (r *CatalogRepository) FindInstitution(_ context.Context, id string) (*models.Institution, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	institution, ok := r.store.institutions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &institution, nil
}

// FindSubject returns a subject or sql.ErrNoRows.
func (r *CatalogRepository) FindSubject(_ context.Context, id string) (*models.Subject, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	subject, ok := r.store.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &subject, nil
}

// FindTeacher returns a teacher profile or sql.ErrNoRows.
func (r *CatalogRepository) FindTeacher(_ context.Context, id string) (*models.TeacherProfile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	teacher, ok := r.store.teacherProfiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &teacher, nil
}

// FindUser returns a user or sql.ErrNoRows.
func (r *CatalogRepository) FindUser(_ context.Context, id string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

// ListInstitutionSubjects returns the institution curriculum ordered by year then subject name.
func (r *CatalogRepository) ListInstitutionSubjects(_ context.Context, institutionID string) ([]models.InstitutionSubjectDetail, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	items := make([]models.InstitutionSubjectDetail, 0)
	for _, entry := range r.store.institutionSubjects {
		if entry.InstitutionID != institutionID {
			continue
		}
		subject, ok := r.store.subjects[entry.SubjectID]
		if !ok {
			continue
		}
		items = append(items, models.InstitutionSubjectDetail{
			InstitutionSubject: entry,
			SubjectName:        subject.Name,
			SubjectIcon:        subject.Icon,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].YearOrder != items[j].YearOrder {
			return items[i].YearOrder < items[j].YearOrder
		}
		return items[i].SubjectName < items[j].SubjectName
	})
	return items, nil
}

// ListTeachersWithPublishedClasses returns teachers holding a published class for the subject at the institution.
func (r *CatalogRepository) ListTeachersWithPublishedClasses(_ context.Context, institutionID, subjectID string) ([]models.TeacherProfile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	seen := make(map[string]struct{})
	teachers := make([]models.TeacherProfile, 0)
	for _, event := range r.store.classEvents {
		if !event.IsPublished() || event.InstitutionID != institutionID || event.SubjectID != subjectID {
			continue
		}
		if _, ok := seen[event.TeacherProfileID]; ok {
			continue
		}
		seen[event.TeacherProfileID] = struct{}{}
		if teacher, ok := r.store.teacherProfiles[event.TeacherProfileID]; ok {
			teachers = append(teachers, teacher)
		}
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].ID < teachers[j].ID })
	return teachers, nil
}
