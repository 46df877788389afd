package booking

import (
	"context"
	"testing"
	"time"

	"medvisit/apperrors"
	"medvisit/models"
	"medvisit/services/profile"
	"medvisit/services/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBookingRepo is an in-memory store with the same atomic-overlap contract
// as the Mongo implementation.
type fakeBookingRepo struct {
	bookings map[string]*models.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[string]*models.Booking)}
}

func (f *fakeBookingRepo) overlaps(b *models.Booking) bool {
	for _, other := range f.bookings {
		if other.ID == b.ID || other.PractitionerID != b.PractitionerID || !other.Status.Active() {
			continue
		}
		if b.ScheduledAt.Before(other.ScheduledEndTime) && b.ScheduledEndTime.After(other.ScheduledAt) {
			return true
		}
	}
	return false
}

func (f *fakeBookingRepo) CreateWithConflictCheck(ctx context.Context, b *models.Booking) error {
	if f.overlaps(b) {
		return apperrors.Conflict(apperrors.ReasonOverlap, "practitioner already booked for this time")
	}
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking", id)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingRepo) Update(ctx context.Context, b *models.Booking) error {
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookingRepo) UpdateScheduleWithConflictCheck(ctx context.Context, b *models.Booking) error {
	if f.overlaps(b) {
		return apperrors.Conflict(apperrors.ReasonOverlap, "practitioner already booked for this time")
	}
	return f.Update(ctx, b)
}

func (f *fakeBookingRepo) FindActiveOverlapping(ctx context.Context, practitionerID string, start, end time.Time, excludeID string) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.PractitionerID != practitionerID || !b.Status.Active() || b.ID == excludeID {
			continue
		}
		if b.ScheduledAt.Before(end) && b.ScheduledEndTime.After(start) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) FindActiveBetween(ctx context.Context, practitionerID string, from, to time.Time) ([]models.Booking, error) {
	return f.FindActiveOverlapping(ctx, practitionerID, from, to, "")
}

// stubAvailabilityRepo serves settings and, when a test wires a real slot
// validator, weekly windows.
type stubAvailabilityRepo struct {
	settings *models.SchedulingSettings
	windows  []models.AvailabilityWindow
}

func (s *stubAvailabilityRepo) CreateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	return nil
}
func (s *stubAvailabilityRepo) UpdateWindow(ctx context.Context, w *models.AvailabilityWindow) error {
	return nil
}
func (s *stubAvailabilityRepo) DeleteWindow(ctx context.Context, practitionerID, windowID string) error {
	return nil
}
func (s *stubAvailabilityRepo) ListWindows(ctx context.Context, practitionerID string) ([]models.AvailabilityWindow, error) {
	return nil, nil
}
func (s *stubAvailabilityRepo) ListWindowsForDay(ctx context.Context, practitionerID string, day time.Weekday) ([]models.AvailabilityWindow, error) {
	var out []models.AvailabilityWindow
	for _, w := range s.windows {
		if w.Active && w.DayOfWeek == int(day) {
			out = append(out, w)
		}
	}
	return out, nil
}
func (s *stubAvailabilityRepo) ReplaceWindows(ctx context.Context, practitionerID string, windows []models.AvailabilityWindow) error {
	return nil
}
func (s *stubAvailabilityRepo) CreateBlackout(ctx context.Context, b *models.Blackout) error {
	return nil
}
func (s *stubAvailabilityRepo) DeleteBlackout(ctx context.Context, practitionerID, blackoutID string) error {
	return nil
}
func (s *stubAvailabilityRepo) ListBlackouts(ctx context.Context, practitionerID string) ([]models.Blackout, error) {
	return nil, nil
}
func (s *stubAvailabilityRepo) ListBlackoutsBetween(ctx context.Context, practitionerID, fromDate, toDate string) ([]models.Blackout, error) {
	return nil, nil
}
func (s *stubAvailabilityRepo) GetSettings(ctx context.Context, practitionerID string) (*models.SchedulingSettings, error) {
	if s.settings != nil {
		return s.settings, nil
	}
	return models.DefaultSchedulingSettings(practitionerID), nil
}
func (s *stubAvailabilityRepo) UpsertSettings(ctx context.Context, settings *models.SchedulingSettings) error {
	return nil
}

type fakeDirectory struct {
	profiles map[string]*profile.PractitionerProfile
}

func (f *fakeDirectory) GetPractitionerProfile(ctx context.Context, practitionerID string) (*profile.PractitionerProfile, error) {
	p, ok := f.profiles[practitionerID]
	if !ok {
		return nil, apperrors.NotFound("practitioner", practitionerID)
	}
	return p, nil
}

func (f *fakeDirectory) FCMToken(ctx context.Context, userID, role string) (string, error) {
	return "token-" + userID, nil
}

type sentNote struct {
	userID string
	role   string
	kind   string
}

type recordingNotifier struct {
	sends []sentNote
}

func (n *recordingNotifier) Send(ctx context.Context, userID, role, notificationType, title, body string, data map[string]string) error {
	n.sends = append(n.sends, sentNote{userID: userID, role: role, kind: notificationType})
	return nil
}

type stubReminderScheduler struct {
	created   []string
	cancelled []string
}

func (s *stubReminderScheduler) CreateForBooking(ctx context.Context, b *models.Booking) error {
	s.created = append(s.created, b.ID)
	return nil
}

func (s *stubReminderScheduler) CancelForBooking(ctx context.Context, bookingID string) error {
	s.cancelled = append(s.cancelled, bookingID)
	return nil
}

func (s *stubReminderScheduler) RefreshForBooking(ctx context.Context, bookingID string) error {
	return nil
}

func (s *stubReminderScheduler) HandleDue(ctx context.Context, payload models.ReminderPayload) error {
	return nil
}

var testNow = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	svc       *DefaultBookingService
	repo      *fakeBookingRepo
	notifier  *recordingNotifier
	reminders *stubReminderScheduler
}

func newTestEnv() *testEnv {
	repo := newFakeBookingRepo()
	notifier := &recordingNotifier{}
	reminders := &stubReminderScheduler{}
	svc := &DefaultBookingService{
		Repo:         repo,
		Availability: &stubAvailabilityRepo{},
		Directory: &fakeDirectory{profiles: map[string]*profile.PractitionerProfile{
			"prac-1": {Verified: true, Available: true},
			"prac-2": {Verified: false, Available: true},
			"prac-3": {Verified: true, Available: false},
		}},
		Reminders: reminders,
		Notifier:  notifier,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return testNow },
	}
	return &testEnv{svc: svc, repo: repo, notifier: notifier, reminders: reminders}
}

func validInput() CreateInput {
	return CreateInput{
		PatientID:      "pat-1",
		PractitionerID: "prac-1",
		ServiceType:    "home_visit",
		ScheduledAt:    testNow.Add(48 * time.Hour),
		Address:        "12 Riverside Dr",
	}
}

func (e *testEnv) seedBooking(t *testing.T, status models.BookingStatus) *models.Booking {
	t.Helper()
	b := &models.Booking{
		ID:               "bk-seed",
		PatientID:        "pat-1",
		PractitionerID:   "prac-1",
		Status:           status,
		ScheduledAt:      testNow.Add(48 * time.Hour),
		ScheduledEndTime: testNow.Add(49 * time.Hour),
		CreatedAt:        testNow,
	}
	require.NoError(t, e.repo.Update(context.Background(), b))
	return b
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, created.ScheduledAt.Add(time.Hour), created.ScheduledEndTime,
		"end time snapshots the default 60-minute slot duration")
	require.Len(t, env.notifier.sends, 1)
	assert.Equal(t, "prac-1", env.notifier.sends[0].userID)
	assert.Equal(t, "booking_requested", env.notifier.sends[0].kind)
}

func TestCreateBookingRejectsBadInput(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{name: "past instant", mutate: func(in *CreateInput) { in.ScheduledAt = testNow.Add(-time.Hour) }},
		{name: "present instant", mutate: func(in *CreateInput) { in.ScheduledAt = testNow }},
		{name: "self booking", mutate: func(in *CreateInput) { in.PatientID = "prac-1" }},
		{name: "missing patient", mutate: func(in *CreateInput) { in.PatientID = "" }},
		{name: "unverified practitioner", mutate: func(in *CreateInput) { in.PractitionerID = "prac-2" }},
		{name: "practitioner not accepting bookings", mutate: func(in *CreateInput) { in.PractitionerID = "prac-3" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := env.svc.Create(ctx, input)
			require.Error(t, err)
			appErr, ok := err.(*apperrors.AppError)
			require.True(t, ok)
			assert.Equal(t, apperrors.CodeValidation, appErr.Code)
		})
	}
}

func TestCreateBookingFallbackConflict(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first := validInput()
	_, err := env.svc.Create(ctx, first)
	require.NoError(t, err)

	// 30 minutes into the first booking; the coarse fallback scan rejects it.
	second := validInput()
	second.PatientID = "pat-2"
	second.ScheduledAt = first.ScheduledAt.Add(30 * time.Minute)
	_, err = env.svc.Create(ctx, second)
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonOverlap, apperrors.ConflictReason(err))
}

func TestPractitionerTransitions(t *testing.T) {
	type op func(s *DefaultBookingService, ctx context.Context, id, actor string) (*models.Booking, error)
	accept := func(s *DefaultBookingService, ctx context.Context, id, actor string) (*models.Booking, error) {
		return s.Accept(ctx, id, actor)
	}
	enRoute := func(s *DefaultBookingService, ctx context.Context, id, actor string) (*models.Booking, error) {
		return s.MarkEnRoute(ctx, id, actor)
	}
	start := func(s *DefaultBookingService, ctx context.Context, id, actor string) (*models.Booking, error) {
		return s.StartVisit(ctx, id, actor)
	}
	complete := func(s *DefaultBookingService, ctx context.Context, id, actor string) (*models.Booking, error) {
		return s.Complete(ctx, id, actor)
	}

	tests := []struct {
		name     string
		from     models.BookingStatus
		apply    op
		want     models.BookingStatus
		wantCode string
	}{
		{name: "accept pending", from: models.StatusPending, apply: accept, want: models.StatusConfirmed},
		{name: "accept confirmed", from: models.StatusConfirmed, apply: accept, wantCode: apperrors.CodeTransition},
		{name: "accept cancelled", from: models.StatusCancelled, apply: accept, wantCode: apperrors.CodeTransition},
		{name: "en-route confirmed", from: models.StatusConfirmed, apply: enRoute, want: models.StatusEnRoute},
		{name: "en-route pending", from: models.StatusPending, apply: enRoute, wantCode: apperrors.CodeTransition},
		{name: "start confirmed skips en-route", from: models.StatusConfirmed, apply: start, want: models.StatusInProgress},
		{name: "start en-route", from: models.StatusEnRoute, apply: start, want: models.StatusInProgress},
		{name: "start pending", from: models.StatusPending, apply: start, wantCode: apperrors.CodeTransition},
		{name: "complete in-progress", from: models.StatusInProgress, apply: complete, want: models.StatusCompleted},
		{name: "complete confirmed", from: models.StatusConfirmed, apply: complete, wantCode: apperrors.CodeTransition},
		{name: "complete completed", from: models.StatusCompleted, apply: complete, wantCode: apperrors.CodeTransition},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			ctx := context.Background()
			seeded := env.seedBooking(t, tc.from)

			got, err := tc.apply(env.svc, ctx, seeded.ID, "prac-1")
			if tc.wantCode != "" {
				require.Error(t, err)
				appErr, ok := err.(*apperrors.AppError)
				require.True(t, ok)
				assert.Equal(t, tc.wantCode, appErr.Code)

				stored, err := env.repo.GetByID(ctx, seeded.ID)
				require.NoError(t, err)
				assert.Equal(t, tc.from, stored.Status, "failed transition must not change stored status")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
		})
	}
}

func TestPractitionerTransitionsRejectOtherActors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seeded := env.seedBooking(t, models.StatusPending)

	for _, actor := range []string{"pat-1", "someone-else"} {
		_, err := env.svc.Accept(ctx, seeded.ID, actor)
		require.Error(t, err, "actor %s", actor)
		appErr, ok := err.(*apperrors.AppError)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeOwnership, appErr.Code)
	}
}

func TestAcceptSchedulesReminders(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seeded := env.seedBooking(t, models.StatusPending)

	_, err := env.svc.Accept(ctx, seeded.ID, "prac-1")
	require.NoError(t, err)
	assert.Equal(t, []string{seeded.ID}, env.reminders.created)
}

func TestRejectDefaultsReason(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seeded := env.seedBooking(t, models.StatusPending)

	rejected, err := env.svc.Reject(ctx, seeded.ID, "prac-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, rejected.Status)
	assert.Equal(t, profile.RolePractitioner, rejected.CancelledBy)
	assert.NotEmpty(t, rejected.CancellationReason)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name     string
		from     models.BookingStatus
		actor    string
		reason   string
		wantBy   string
		wantCode string
	}{
		{name: "patient cancels pending without reason", from: models.StatusPending, actor: "pat-1", wantBy: profile.RolePatient},
		{name: "practitioner cancels pending", from: models.StatusPending, actor: "prac-1", wantBy: profile.RolePractitioner},
		{name: "confirmed requires reason", from: models.StatusConfirmed, actor: "pat-1", wantCode: apperrors.CodeValidation},
		{name: "confirmed with reason", from: models.StatusConfirmed, actor: "pat-1", reason: "patient unwell", wantBy: profile.RolePatient},
		{name: "en-route requires reason", from: models.StatusEnRoute, actor: "prac-1", wantCode: apperrors.CodeValidation},
		{name: "in-progress with reason", from: models.StatusInProgress, actor: "prac-1", reason: "emergency", wantBy: profile.RolePractitioner},
		{name: "completed is terminal", from: models.StatusCompleted, actor: "pat-1", reason: "too late", wantCode: apperrors.CodeTransition},
		{name: "cancelled is terminal", from: models.StatusCancelled, actor: "pat-1", reason: "again", wantCode: apperrors.CodeTransition},
		{name: "outsider cannot cancel", from: models.StatusPending, actor: "someone-else", wantCode: apperrors.CodeOwnership},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			ctx := context.Background()
			seeded := env.seedBooking(t, tc.from)

			cancelled, err := env.svc.Cancel(ctx, seeded.ID, tc.actor, tc.reason)
			if tc.wantCode != "" {
				require.Error(t, err)
				appErr, ok := err.(*apperrors.AppError)
				require.True(t, ok)
				assert.Equal(t, tc.wantCode, appErr.Code)

				stored, err := env.repo.GetByID(ctx, seeded.ID)
				require.NoError(t, err)
				assert.Equal(t, tc.from, stored.Status, "failed cancel must leave status untouched")
				assert.Empty(t, env.reminders.cancelled)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, cancelled.Status)
			assert.Equal(t, tc.wantBy, cancelled.CancelledBy)
			require.NotNil(t, cancelled.CancelledAt)
			assert.Equal(t, []string{seeded.ID}, env.reminders.cancelled)
		})
	}
}

func TestReschedule(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seeded := env.seedBooking(t, models.StatusConfirmed)
	original := seeded.ScheduledAt

	newStart := testNow.Add(72 * time.Hour)
	moved, err := env.svc.Reschedule(ctx, seeded.ID, "pat-1", newStart)
	require.NoError(t, err)

	assert.Equal(t, newStart, moved.ScheduledAt)
	assert.Equal(t, newStart.Add(time.Hour), moved.ScheduledEndTime, "duration is preserved across the move")
	require.NotNil(t, moved.RescheduledFrom)
	assert.Equal(t, original, *moved.RescheduledFrom)
	assert.Equal(t, profile.RolePatient, moved.RescheduledBy)
	assert.Equal(t, models.StatusConfirmed, moved.Status, "reschedule never changes status")
}

func TestRescheduleRules(t *testing.T) {
	tests := []struct {
		name     string
		from     models.BookingStatus
		actor    string
		newStart time.Time
		wantCode string
	}{
		{name: "pending ok", from: models.StatusPending, actor: "pat-1", newStart: testNow.Add(72 * time.Hour)},
		{name: "practitioner may move too", from: models.StatusConfirmed, actor: "prac-1", newStart: testNow.Add(72 * time.Hour)},
		{name: "en-route too late", from: models.StatusEnRoute, actor: "pat-1", newStart: testNow.Add(72 * time.Hour), wantCode: apperrors.CodeTransition},
		{name: "in-progress too late", from: models.StatusInProgress, actor: "pat-1", newStart: testNow.Add(72 * time.Hour), wantCode: apperrors.CodeTransition},
		{name: "completed too late", from: models.StatusCompleted, actor: "pat-1", newStart: testNow.Add(72 * time.Hour), wantCode: apperrors.CodeTransition},
		{name: "past instant", from: models.StatusConfirmed, actor: "pat-1", newStart: testNow.Add(-time.Hour), wantCode: apperrors.CodeValidation},
		{name: "outsider", from: models.StatusConfirmed, actor: "someone-else", newStart: testNow.Add(72 * time.Hour), wantCode: apperrors.CodeOwnership},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			ctx := context.Background()
			seeded := env.seedBooking(t, tc.from)

			_, err := env.svc.Reschedule(ctx, seeded.ID, tc.actor, tc.newStart)
			if tc.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr, ok := err.(*apperrors.AppError)
			require.True(t, ok)
			assert.Equal(t, tc.wantCode, appErr.Code)
		})
	}
}

// wireValidator attaches a real slot engine backed by the env's booking repo
// and the given weekly windows.
func (e *testEnv) wireValidator(windows ...models.AvailabilityWindow) {
	avail := e.svc.Availability.(*stubAvailabilityRepo)
	avail.windows = windows
	e.svc.Validator = &scheduling.DefaultSlotEngine{
		Availability: avail,
		Bookings:     e.repo,
		Logger:       zap.NewNop(),
	}
}

func allDayWindow(day time.Weekday, start, end string) models.AvailabilityWindow {
	return models.AvailabilityWindow{
		ID:             "w-1",
		PractitionerID: "prac-1",
		DayOfWeek:      int(day),
		StartTime:      start,
		EndTime:        end,
		Active:         true,
	}
}

func TestRescheduleShiftWithinOwnSlot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seeded := env.seedBooking(t, models.StatusConfirmed)
	env.wireValidator(allDayWindow(seeded.ScheduledAt.Weekday(), "09:00", "17:00"))

	// A 30-minute shift overlaps the booking's current slot; it must not
	// conflict with itself.
	newStart := seeded.ScheduledAt.Add(30 * time.Minute)
	moved, err := env.svc.Reschedule(ctx, seeded.ID, "pat-1", newStart)
	require.NoError(t, err)
	assert.Equal(t, newStart, moved.ScheduledAt)
	assert.Equal(t, newStart.Add(time.Hour), moved.ScheduledEndTime)
}

func TestRescheduleValidatorStillSeesOtherBookings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seeded := env.seedBooking(t, models.StatusConfirmed)
	env.wireValidator(allDayWindow(seeded.ScheduledAt.Weekday(), "09:00", "17:00"))

	other := &models.Booking{
		ID:               "bk-other",
		PatientID:        "pat-2",
		PractitionerID:   "prac-1",
		Status:           models.StatusConfirmed,
		ScheduledAt:      seeded.ScheduledAt.Add(2 * time.Hour),
		ScheduledEndTime: seeded.ScheduledAt.Add(3 * time.Hour),
	}
	require.NoError(t, env.repo.Update(ctx, other))

	_, err := env.svc.Reschedule(ctx, seeded.ID, "pat-1", other.ScheduledAt.Add(30*time.Minute))
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonOverlap, apperrors.ConflictReason(err))
}

func TestRescheduleValidatesSnapshottedDuration(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	seeded := env.seedBooking(t, models.StatusConfirmed)

	// The booking was created against a 90-minute slot; the practitioner's
	// settings have since reverted to the 60-minute default.
	seeded.ScheduledEndTime = seeded.ScheduledAt.Add(90 * time.Minute)
	require.NoError(t, env.repo.Update(ctx, seeded))

	// The window closes at 11:45: a 60-minute interval from 10:30 would fit,
	// the booking's actual 90 minutes does not.
	env.wireValidator(allDayWindow(seeded.ScheduledAt.Weekday(), "10:00", "11:45"))

	_, err := env.svc.Reschedule(ctx, seeded.ID, "pat-1", seeded.ScheduledAt.Add(30*time.Minute))
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonOutsideWindow, apperrors.ConflictReason(err))
}

func TestRescheduleConflict(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	other := &models.Booking{
		ID:               "bk-other",
		PatientID:        "pat-2",
		PractitionerID:   "prac-1",
		Status:           models.StatusConfirmed,
		ScheduledAt:      testNow.Add(72 * time.Hour),
		ScheduledEndTime: testNow.Add(73 * time.Hour),
	}
	require.NoError(t, env.repo.Update(ctx, other))
	seeded := env.seedBooking(t, models.StatusConfirmed)

	// Moving onto the other booking's window trips the atomic overlap check.
	_, err := env.svc.Reschedule(ctx, seeded.ID, "pat-1", other.ScheduledAt.Add(30*time.Minute))
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonOverlap, apperrors.ConflictReason(err))
}
