package dto

import "github.com/noah-isme/aulao-api/internal/models"

// InstitutionDetail is an institution with its curriculum grouped by year.
type InstitutionDetail struct {
	Institution models.Institution `json:"institution"`
	YearLevels  []models.YearLevel `json:"yearLevels"`
}

// TeacherCard is a teacher listed under a subject.
type TeacherCard struct {
	Profile models.TeacherProfile `json:"profile"`
	Name    string                `json:"name"`
}
