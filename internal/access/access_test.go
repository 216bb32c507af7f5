package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/aulao-api/internal/models"
)

var base = time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)

func event(meeting models.MeetingStatus) models.ClassEvent {
	return models.ClassEvent{
		ID:                "ce-1",
		StartsAt:          base,
		DurationMin:       90,
		Capacity:          10,
		PublicationStatus: models.PublicationPublished,
		MeetingStatus:     meeting,
	}
}

func enrollment(status models.EnrollmentStatus) *models.Enrollment {
	return &models.Enrollment{ID: "enr-1", ClassEventID: "ce-1", StudentProfileID: "sp-1", Status: status}
}

func TestStateTable(t *testing.T) {
	cases := []struct {
		name       string
		meeting    models.MeetingStatus
		enrollment *models.Enrollment
		now        time.Time
		want       models.AccessState
	}{
		{"no enrollment", models.MeetingReleased, nil, base.Add(time.Minute), models.AccessNeedsPurchase},
		{"pending before start", models.MeetingLocked, enrollment(models.EnrollmentPending), base.Add(-time.Hour), models.AccessPendingPayment},
		{"pending after release", models.MeetingReleased, enrollment(models.EnrollmentPending), base.Add(time.Hour), models.AccessPendingPayment},
		{"paid an hour early and locked", models.MeetingLocked, enrollment(models.EnrollmentPaid), base.Add(-time.Hour), models.AccessWaitingRelease},
		{"paid early but released", models.MeetingReleased, enrollment(models.EnrollmentPaid), base.Add(-time.Second), models.AccessWaitingRelease},
		{"paid started and released", models.MeetingReleased, enrollment(models.EnrollmentPaid), base.Add(10 * time.Minute), models.AccessCanEnter},
		{"paid started but locked", models.MeetingLocked, enrollment(models.EnrollmentPaid), base.Add(10 * time.Minute), models.AccessWaitingRelease},
		{"paid long after start but locked", models.MeetingLocked, enrollment(models.EnrollmentPaid), base.Add(48 * time.Hour), models.AccessWaitingRelease},
		{"cancelled", models.MeetingReleased, enrollment(models.EnrollmentCancelled), base.Add(time.Minute), models.AccessNeedsPurchase},
		{"refunded", models.MeetingReleased, enrollment(models.EnrollmentRefunded), base.Add(time.Minute), models.AccessNeedsPurchase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, State(event(tc.meeting), tc.enrollment, tc.now))
		})
	}
}

func TestStateAlwaysReturnsKnownValue(t *testing.T) {
	statuses := []models.EnrollmentStatus{
		models.EnrollmentPending, models.EnrollmentPaid, models.EnrollmentCancelled, models.EnrollmentRefunded, "",
	}
	meetings := []models.MeetingStatus{models.MeetingLocked, models.MeetingReleased, ""}
	offsets := []time.Duration{-24 * time.Hour, -time.Second, 0, time.Second, 24 * time.Hour}

	known := map[models.AccessState]bool{}
	for _, s := range models.AllAccessStates {
		known[s] = true
	}

	for _, status := range statuses {
		for _, meeting := range meetings {
			for _, offset := range offsets {
				got := State(event(meeting), enrollment(status), base.Add(offset))
				assert.True(t, known[got], "status=%s meeting=%s offset=%s produced %q", status, meeting, offset, got)
			}
		}
	}
}

func TestStartBoundary(t *testing.T) {
	ev := event(models.MeetingReleased)
	paid := enrollment(models.EnrollmentPaid)

	assert.Equal(t, models.AccessWaitingRelease, State(ev, paid, base.Add(-time.Second)))
	assert.Equal(t, models.AccessCanEnter, State(ev, paid, base))
}

func TestLockedNeverEnters(t *testing.T) {
	ev := event(models.MeetingLocked)
	paid := enrollment(models.EnrollmentPaid)
	for _, offset := range []time.Duration{0, time.Minute, 90 * time.Minute, 30 * 24 * time.Hour} {
		assert.False(t, CanEnter(ev, paid, base.Add(offset)))
		assert.Equal(t, models.AccessWaitingRelease, State(ev, paid, base.Add(offset)))
	}
}

func TestCanEnterMatchesState(t *testing.T) {
	for _, meeting := range []models.MeetingStatus{models.MeetingLocked, models.MeetingReleased} {
		for _, offset := range []time.Duration{-time.Minute, 0, time.Minute} {
			ev := event(meeting)
			paid := enrollment(models.EnrollmentPaid)
			now := base.Add(offset)
			assert.Equal(t, State(ev, paid, now) == models.AccessCanEnter, CanEnter(ev, paid, now))
		}
	}
	assert.False(t, CanEnter(event(models.MeetingReleased), nil, base))
}

func TestPurchasable(t *testing.T) {
	ev := event(models.MeetingLocked)
	assert.True(t, Purchasable(ev, models.AccessNeedsPurchase))
	assert.False(t, Purchasable(ev, models.AccessWaitingRelease))

	ev.SoldSeats = ev.Capacity
	assert.False(t, Purchasable(ev, models.AccessNeedsPurchase))

	draft := event(models.MeetingLocked)
	draft.PublicationStatus = models.PublicationDraft
	assert.False(t, Purchasable(draft, models.AccessNeedsPurchase))
}
