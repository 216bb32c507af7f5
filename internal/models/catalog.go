package models

// UserRole represents what a user can do on the marketplace.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
	RoleBoth    UserRole = "BOTH"
)

// User is an account holder.
type User struct {
	ID    string   `db:"id" json:"id"`
	Name  string   `db:"name" json:"name"`
	Email string   `db:"email" json:"email"`
	Role  UserRole `db:"role" json:"role"`
}

// StudentProfile links a user to their purchases.
type StudentProfile struct {
	ID                     string  `db:"id" json:"id"`
	UserID                 string  `db:"user_id" json:"userId"`
	PreferredInstitutionID *string `db:"preferred_institution_id" json:"preferredInstitutionId,omitempty"`
}

// TeacherProfile is the public face of a teacher.
type TeacherProfile struct {
	ID         string `db:"id" json:"id"`
	UserID     string `db:"user_id" json:"userId"`
	Photo      string `db:"photo" json:"photo"`
	Bio        string `db:"bio" json:"bio"`
	Headline   string `db:"headline" json:"headline"`
	IsVerified bool   `db:"is_verified" json:"isVerified"`
}

// InstitutionType distinguishes schools from universities.
type InstitutionType string

const (
	InstitutionSchool     InstitutionType = "SCHOOL"
	InstitutionUniversity InstitutionType = "UNIVERSITY"
)

// Institution is a school or university whose curriculum classes target.
type Institution struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	ShortName string          `db:"short_name" json:"shortName"`
	City      string          `db:"city" json:"city"`
	Type      InstitutionType `db:"type" json:"type"`
	LogoURL   string          `db:"logo_url" json:"logoUrl"`
}

// Subject is a course topic.
type Subject struct {
	ID   string  `db:"id" json:"id"`
	Name string  `db:"name" json:"name"`
	Icon *string `db:"icon" json:"icon,omitempty"`
}

// InstitutionSubject places a subject within an institution's year.
type InstitutionSubject struct {
	ID            string `db:"id" json:"id"`
	InstitutionID string `db:"institution_id" json:"institutionId"`
	SubjectID     string `db:"subject_id" json:"subjectId"`
	YearLabel     string `db:"year_label" json:"yearLabel"`
	YearOrder     int    `db:"year_order" json:"yearOrder"`
}

// InstitutionSubjectDetail joins the association with its subject.
type InstitutionSubjectDetail struct {
	InstitutionSubject
	SubjectName string  `db:"subject_name" json:"subjectName"`
	SubjectIcon *string `db:"subject_icon" json:"subjectIcon,omitempty"`
}

// TeacherSubject records what a teacher teaches.
type TeacherSubject struct {
	ID               string  `db:"id" json:"id"`
	TeacherProfileID string  `db:"teacher_profile_id" json:"teacherProfileId"`
	SubjectID        string  `db:"subject_id" json:"subjectId"`
	LevelTag         *string `db:"level_tag" json:"levelTag,omitempty"`
}

// YearLevel groups an institution's subjects by academic year.
type YearLevel struct {
	YearLabel string    `json:"yearLabel"`
	YearOrder int       `json:"yearOrder"`
	Subjects  []Subject `json:"subjects"`
}
