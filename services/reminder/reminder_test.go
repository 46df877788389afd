package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"medvisit/apperrors"
	"medvisit/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReminderRepo struct {
	reminders map[string]*models.Reminder
	createErr error
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{reminders: make(map[string]*models.Reminder)}
}

func (f *fakeReminderRepo) Create(ctx context.Context, r *models.Reminder) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *r
	f.reminders[r.ID] = &cp
	return nil
}

func (f *fakeReminderRepo) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	r, ok := f.reminders[id]
	if !ok {
		return nil, apperrors.NotFound("reminder", id)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReminderRepo) ListUnsentByBooking(ctx context.Context, bookingID string) ([]models.Reminder, error) {
	var out []models.Reminder
	for _, r := range f.reminders {
		if r.BookingID == bookingID && !r.Sent {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) MarkSent(ctx context.Context, id string) (bool, error) {
	r, ok := f.reminders[id]
	if !ok || r.Sent {
		return false, nil
	}
	r.Sent = true
	return true, nil
}

func (f *fakeReminderRepo) DeleteUnsentByBooking(ctx context.Context, bookingID string) error {
	for id, r := range f.reminders {
		if r.BookingID == bookingID && !r.Sent {
			delete(f.reminders, id)
		}
	}
	return nil
}

type fakeQueue struct {
	scheduled   map[string]time.Time
	removed     []string
	scheduleErr error
	removeErr   error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{scheduled: make(map[string]time.Time)}
}

func (q *fakeQueue) Schedule(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) (string, error) {
	if q.scheduleErr != nil {
		return "", q.scheduleErr
	}
	jobID := "job-" + payload.ReminderID
	q.scheduled[jobID] = fireAt
	return jobID, nil
}

func (q *fakeQueue) Remove(ctx context.Context, jobID string) error {
	q.removed = append(q.removed, jobID)
	if q.removeErr != nil {
		return q.removeErr
	}
	delete(q.scheduled, jobID)
	return nil
}

type fakeBookingGetter struct {
	bookings map[string]*models.Booking
}

func (f *fakeBookingGetter) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking", id)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingGetter) CreateWithConflictCheck(ctx context.Context, b *models.Booking) error {
	return nil
}
func (f *fakeBookingGetter) Update(ctx context.Context, b *models.Booking) error { return nil }
func (f *fakeBookingGetter) UpdateScheduleWithConflictCheck(ctx context.Context, b *models.Booking) error {
	return nil
}
func (f *fakeBookingGetter) FindActiveOverlapping(ctx context.Context, practitionerID string, start, end time.Time, excludeID string) ([]models.Booking, error) {
	return nil, nil
}
func (f *fakeBookingGetter) FindActiveBetween(ctx context.Context, practitionerID string, from, to time.Time) ([]models.Booking, error) {
	return nil, nil
}

type countingNotifier struct {
	sends []string
	err   error
}

func (n *countingNotifier) Send(ctx context.Context, userID, role, notificationType, title, body string, data map[string]string) error {
	n.sends = append(n.sends, userID)
	return n.err
}

var schedTestNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

type schedEnv struct {
	sched    *DefaultScheduler
	repo     *fakeReminderRepo
	queue    *fakeQueue
	bookings *fakeBookingGetter
	notifier *countingNotifier
}

func newSchedEnv() *schedEnv {
	repo := newFakeReminderRepo()
	queue := newFakeQueue()
	bookings := &fakeBookingGetter{bookings: make(map[string]*models.Booking)}
	notifier := &countingNotifier{}
	return &schedEnv{
		sched: &DefaultScheduler{
			Repo:     repo,
			Bookings: bookings,
			Queue:    queue,
			Notifier: notifier,
			Logger:   zap.NewNop(),
			Now:      func() time.Time { return schedTestNow },
		},
		repo:     repo,
		queue:    queue,
		bookings: bookings,
		notifier: notifier,
	}
}

func confirmedBooking(id string, startIn time.Duration) *models.Booking {
	return &models.Booking{
		ID:               id,
		PatientID:        "pat-1",
		PractitionerID:   "prac-1",
		Status:           models.StatusConfirmed,
		ScheduledAt:      schedTestNow.Add(startIn),
		ScheduledEndTime: schedTestNow.Add(startIn + time.Hour),
	}
}

func TestCreateForBookingSchedulesBothKinds(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 48*time.Hour)

	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, env.queue.scheduled, 2)

	fireTimes := map[models.ReminderKind]time.Time{}
	for _, r := range rows {
		fireTimes[r.Kind] = r.ScheduledFor
		assert.NotEmpty(t, r.JobID)
	}
	assert.Equal(t, booking.ScheduledAt.Add(-24*time.Hour), fireTimes[models.ReminderTwentyFourHour])
	assert.Equal(t, booking.ScheduledAt.Add(-time.Hour), fireTimes[models.ReminderOneHour])
}

func TestCreateForBookingSkipsPastInstants(t *testing.T) {
	env := newSchedEnv()
	// Visit in 2 hours: the 24h mark is long past, only the 1h reminder fits.
	booking := confirmedBooking("bk-1", 2*time.Hour)

	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ReminderOneHour, rows[0].Kind)
}

func TestCreateForBookingAllInPast(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 30*time.Minute)

	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, env.queue.scheduled)
}

func TestCreateForBookingQueueFailure(t *testing.T) {
	env := newSchedEnv()
	env.queue.scheduleErr = errors.New("redis down")
	booking := confirmedBooking("bk-1", 48*time.Hour)

	err := env.sched.CreateForBooking(context.Background(), booking)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeDependency, appErr.Code)
}

func TestCreateForBookingRetractsJobOnPersistFailure(t *testing.T) {
	env := newSchedEnv()
	env.repo.createErr = errors.New("write failed")
	booking := confirmedBooking("bk-1", 48*time.Hour)

	err := env.sched.CreateForBooking(context.Background(), booking)
	require.Error(t, err)
	assert.Len(t, env.queue.removed, 1, "queued job must be retracted when the row cannot be written")
}

func TestCancelForBooking(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 48*time.Hour)
	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	require.NoError(t, env.sched.CancelForBooking(context.Background(), "bk-1"))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, env.queue.scheduled)
}

func TestCancelForBookingSurvivesRemoveFailure(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 48*time.Hour)
	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	// Jobs that already fired cannot be removed; the rows still go.
	env.queue.removeErr = errors.New("job not found")
	require.NoError(t, env.sched.CancelForBooking(context.Background(), "bk-1"))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRefreshForBooking(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 48*time.Hour)
	env.bookings.bookings["bk-1"] = booking
	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	// The booking moves; refresh drops the stale pair and schedules fresh ones.
	booking.ScheduledAt = schedTestNow.Add(96 * time.Hour)
	require.NoError(t, env.sched.RefreshForBooking(context.Background(), "bk-1"))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.True(t, r.ScheduledFor.After(schedTestNow.Add(48*time.Hour)),
			"refreshed reminders track the new start time")
	}
}

func TestRefreshForBookingRequiresConfirmed(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 48*time.Hour)
	booking.Status = models.StatusPending
	env.bookings.bookings["bk-1"] = booking

	err := env.sched.RefreshForBooking(context.Background(), "bk-1")
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestHandleDueNotifiesBothParties(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 24*time.Hour)
	env.bookings.bookings["bk-1"] = booking
	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	payload := models.ReminderPayload{BookingID: "bk-1", ReminderID: rows[0].ID}
	require.NoError(t, env.sched.HandleDue(context.Background(), payload))
	assert.Equal(t, []string{"pat-1", "prac-1"}, env.notifier.sends)
}

func TestHandleDueFiresExactlyOnce(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 24*time.Hour)
	env.bookings.bookings["bk-1"] = booking
	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	payload := models.ReminderPayload{BookingID: "bk-1", ReminderID: rows[0].ID}

	// The queue redelivered the same job; only the first delivery sends.
	require.NoError(t, env.sched.HandleDue(context.Background(), payload))
	require.NoError(t, env.sched.HandleDue(context.Background(), payload))
	assert.Len(t, env.notifier.sends, 2, "one notification per party, not per delivery")
}

func TestHandleDueMissingRowIsNoop(t *testing.T) {
	env := newSchedEnv()

	payload := models.ReminderPayload{BookingID: "bk-1", ReminderID: "gone"}
	require.NoError(t, env.sched.HandleDue(context.Background(), payload))
	assert.Empty(t, env.notifier.sends)
}

func TestHandleDueSkipsInactiveBooking(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 24*time.Hour)
	env.bookings.bookings["bk-1"] = booking
	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)

	booking.Status = models.StatusCancelled

	payload := models.ReminderPayload{BookingID: "bk-1", ReminderID: rows[0].ID}
	require.NoError(t, env.sched.HandleDue(context.Background(), payload))
	assert.Empty(t, env.notifier.sends, "cancelled booking must not produce reminders")
}

func TestHandleDueDeliveryFailureDoesNotRequeue(t *testing.T) {
	env := newSchedEnv()
	booking := confirmedBooking("bk-1", 24*time.Hour)
	env.bookings.bookings["bk-1"] = booking
	require.NoError(t, env.sched.CreateForBooking(context.Background(), booking))

	rows, err := env.repo.ListUnsentByBooking(context.Background(), "bk-1")
	require.NoError(t, err)

	env.notifier.err = errors.New("fcm unavailable")
	payload := models.ReminderPayload{BookingID: "bk-1", ReminderID: rows[0].ID}

	// The reminder is claimed before delivery; a send failure must not error
	// the task into a retry that would double-deliver the other party.
	require.NoError(t, env.sched.HandleDue(context.Background(), payload))
	assert.Len(t, env.notifier.sends, 2, "both deliveries attempted")
}
