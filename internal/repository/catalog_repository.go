package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aulao-api/internal/models"
)

// CatalogRepository reads institutions, subjects, teachers and users.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListInstitutions returns every institution ordered by name.
func (r *CatalogRepository) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	const query = `SELECT id, name, short_name, city, type, logo_url FROM institutions ORDER BY name ASC`
	var institutions []models.Institution
	if err := r.db.SelectContext(ctx, &institutions, query); err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	return institutions, nil
}

// FindInstitution returns an institution by ID.
func (r *CatalogRepository) FindInstitution(ctx context.Context, id string) (*models.Institution, error) {
	const query = `SELECT id, name, short_name, city, type, logo_url FROM institutions WHERE id = $1`
	var institution models.Institution
	if err := r.db.GetContext(ctx, &institution, query, id); err != nil {
		return nil, err
	}
	return &institution, nil
}

// FindSubject returns a subject by ID.
func (r *CatalogRepository) FindSubject(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, icon FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// FindTeacher returns a teacher profile by ID.
func (r *CatalogRepository) FindTeacher(ctx context.Context, id string) (*models.TeacherProfile, error) {
	const query = `SELECT id, user_id, photo, bio, headline, is_verified FROM teacher_profiles WHERE id = $1`
	var teacher models.TeacherProfile
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindUser returns a user by ID.
func (r *CatalogRepository) FindUser(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, name, email, role FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListInstitutionSubjects returns the curriculum of an institution ordered by year then subject name.
func (r *CatalogRepository) ListInstitutionSubjects(ctx context.Context, institutionID string) ([]models.InstitutionSubjectDetail, error) {
	const query = `SELECT isub.id, isub.institution_id, isub.subject_id, isub.year_label, isub.year_order,
        s.name AS subject_name, s.icon AS subject_icon
        FROM institution_subjects isub
        JOIN subjects s ON s.id = isub.subject_id
        WHERE isub.institution_id = $1
        ORDER BY isub.year_order ASC, s.name ASC`
	var items []models.InstitutionSubjectDetail
	if err := r.db.SelectContext(ctx, &items, query, institutionID); err != nil {
		return nil, fmt.Errorf("list institution subjects: %w", err)
	}
	return items, nil
}

// ListTeachersWithPublishedClasses returns teachers holding a published class for the subject at the institution.
func (r *CatalogRepository) ListTeachersWithPublishedClasses(ctx context.Context, institutionID, subjectID string) ([]models.TeacherProfile, error) {
	const query = `SELECT tp.id, tp.user_id, tp.photo, tp.bio, tp.headline, tp.is_verified
        FROM teacher_profiles tp
        WHERE EXISTS (
            SELECT 1 FROM class_events ce
            WHERE ce.teacher_profile_id = tp.id AND ce.institution_id = $1 AND ce.subject_id = $2 AND ce.publication_status = $3
        )
        ORDER BY tp.id ASC`
	var teachers []models.TeacherProfile
	if err := r.db.SelectContext(ctx, &teachers, query, institutionID, subjectID, models.PublicationPublished); err != nil {
		return nil, fmt.Errorf("list subject teachers: %w", err)
	}
	return teachers, nil
}
