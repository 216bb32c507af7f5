package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aulao-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

var classEventColumnNames = []string{
	"id", "title", "description", "teacher_profile_id", "subject_id", "institution_id", "starts_at", "duration_min",
	"price_cents", "capacity", "sold_seats", "publication_status", "meeting_status", "meeting_url", "created_at", "updated_at",
}

func classEventRow(id string, status models.PublicationStatus, capacity, sold int, startsAt time.Time) []driver.Value {
	return []driver.Value{
		id, "Argumentação", "Revisão", "tp-luiza", "sub-direito", "ins-fgv", startsAt, 90,
		int64(12900), capacity, sold, string(status), string(models.MeetingLocked), nil, startsAt.Add(-48 * time.Hour), startsAt.Add(-48 * time.Hour),
	}
}

func TestClassEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEventRepository(db)

	startsAt := time.Date(2026, 3, 10, 19, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM class_events WHERE id = $1`)).
		WithArgs("ce-1").
		WillReturnRows(sqlmock.NewRows(classEventColumnNames).AddRow(classEventRow("ce-1", models.PublicationPublished, 60, 48, startsAt)...))

	event, err := repo.FindByID(context.Background(), "ce-1")
	require.NoError(t, err)
	assert.Equal(t, "ce-1", event.ID)
	assert.Equal(t, 12, event.SpotsRemaining())
	assert.Nil(t, event.MeetingURL)
	assert.True(t, event.StartsAt.Equal(startsAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassEventRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEventRepository(db)

	startsAt := time.Date(2026, 3, 10, 19, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM class_events WHERE institution_id = $1 AND subject_id = $2 AND publication_status = $3 ORDER BY starts_at ASC`)).
		WithArgs("ins-fgv", "sub-direito", "PUBLISHED").
		WillReturnRows(sqlmock.NewRows(classEventColumnNames).
			AddRow(classEventRow("ce-1", models.PublicationPublished, 60, 48, startsAt)...).
			AddRow(classEventRow("ce-2", models.PublicationPublished, 90, 90, startsAt.Add(24*time.Hour))...))

	events, err := repo.List(context.Background(), models.ClassEventFilter{
		InstitutionID: "ins-fgv",
		SubjectID:     "sub-direito",
		Status:        models.PublicationPublished,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[1].IsSoldOut())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassEventRepositoryCreateForcesDraft(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO class_events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &models.ClassEvent{
		Title:             "Cálculo",
		TeacherProfileID:  "tp-rafael",
		SubjectID:         "sub-calculo",
		InstitutionID:     "ins-insper",
		StartsAt:          time.Now().Add(48 * time.Hour),
		DurationMin:       100,
		PriceCents:        14900,
		Capacity:          50,
		SoldSeats:         7,
		PublicationStatus: models.PublicationPublished,
	}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, 0, event.SoldSeats)
	assert.Equal(t, models.PublicationDraft, event.PublicationStatus)
	assert.Equal(t, models.MeetingLocked, event.MeetingStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassEventRepositoryTransitionPublicationRejectsWrongSource(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE class_events SET publication_status = $3`)).
		WithArgs("ce-1", "DRAFT", "PUBLISHED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionPublication(context.Background(), "ce-1", models.PublicationDraft, models.PublicationPublished, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassEventRepositoryReleaseDue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEventRepository(db)

	now := time.Date(2026, 3, 10, 19, 31, 0, 0, time.UTC)
	row := classEventRow("ce-1", models.PublicationPublished, 60, 48, now.Add(-time.Minute))
	row[12] = string(models.MeetingReleased)
	row[13] = "https://meet.example.com/ce-1"
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE class_events SET meeting_status = $1`)).
		WithArgs("RELEASED", now, "LOCKED", "PUBLISHED").
		WillReturnRows(sqlmock.NewRows(classEventColumnNames).AddRow(row...))

	released, err := repo.ReleaseDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, models.MeetingReleased, released[0].MeetingStatus)
	require.NotNil(t, released[0].MeetingURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassEventRepositoryReleaseMeetingBeforeStart(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE class_events SET meeting_status = $2, meeting_url = $3`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReleaseMeeting(context.Background(), "ce-1", "https://meet.example.com/x", time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}
