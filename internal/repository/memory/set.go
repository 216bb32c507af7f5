package memory

import "github.com/noah-isme/aulao-api/internal/repository"

// NewSet builds every store over the same in-memory state.
func NewSet(store *Store) repository.Set {
	return repository.Set{
		Catalog:     NewCatalogRepository(store),
		ClassEvents: NewClassEventRepository(store),
		Enrollments: NewEnrollmentRepository(store),
		Payments:    NewPaymentRepository(store),
		Purchases:   NewPurchaseRepository(store),
		Reports:     NewReportRepository(store),
	}
}
