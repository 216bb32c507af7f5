package dto

import "github.com/noah-isme/aulao-api/internal/models"

// BuyerListResponse is the teacher's view of one class event's buyers.
type BuyerListResponse struct {
	ClassEvent models.ClassEventStats `json:"classEvent"`
	Buyers     []models.BuyerEntry    `json:"buyers"`
}

// ExportFile is a rendered buyer list download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
