package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
)

type sessionStoreStub struct {
	existing    map[string]*models.TutoringSession
	direct      []models.TutoringSession
	roster      []models.TutoringSession
	directErr   error
	rosterErr   error
	locks       []string
	inLock      bool
	txReads     int
	created     []*models.TutoringSession
	rescheduled []*models.TutoringSession
	createErr   error
	lockErr     error
}

func (s *sessionStoreStub) FindByID(ctx context.Context, id string) (*models.TutoringSession, error) {
	session, ok := s.existing[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *session
	return &cp, nil
}

func (s *sessionStoreStub) WithTeacherLock(ctx context.Context, teacherID string, fn func(tx *sqlx.Tx) error) error {
	if s.lockErr != nil {
		return s.lockErr
	}
	s.locks = append(s.locks, teacherID)
	s.inLock = true
	defer func() { s.inLock = false }()
	return fn(nil)
}

func (s *sessionStoreStub) ListByTeacherTx(ctx context.Context, tx *sqlx.Tx, teacherID, startDate, endDate string) ([]models.TutoringSession, error) {
	if s.inLock {
		s.txReads++
	}
	if s.directErr != nil {
		return nil, s.directErr
	}
	return s.direct, nil
}

func (s *sessionStoreStub) ListByRosterTx(ctx context.Context, tx *sqlx.Tx, teacherID, startDate, endDate string) ([]models.TutoringSession, error) {
	if s.inLock {
		s.txReads++
	}
	if s.rosterErr != nil {
		return nil, s.rosterErr
	}
	return s.roster, nil
}

func (s *sessionStoreStub) CreateTx(ctx context.Context, tx *sqlx.Tx, session *models.TutoringSession) error {
	if s.createErr != nil {
		return s.createErr
	}
	session.ID = "session-new"
	s.created = append(s.created, session)
	return nil
}

func (s *sessionStoreStub) RescheduleTx(ctx context.Context, tx *sqlx.Tx, session *models.TutoringSession) error {
	s.rescheduled = append(s.rescheduled, session)
	return nil
}

// lockTrackingTemplates records template reads made while the teacher lock is held.
type lockTrackingTemplates struct {
	inner       templateSource
	store       *sessionStoreStub
	readsInLock int
}

func (l *lockTrackingTemplates) GetWeeklyTemplate(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error) {
	if l.store.inLock {
		l.readsInLock++
	}
	return l.inner.GetWeeklyTemplate(ctx, teacherID)
}

type bookingFixture struct {
	store     *sessionStoreStub
	engine    *engineFixture
	templates *lockTrackingTemplates
	service   *BookingService
}

func newBookingFixture(store *sessionStoreStub) *bookingFixture {
	engine := newEngineFixture(weekdayTemplate("09:00", "17:00", 15, "monday", "tuesday"), longAgo())
	templates := &lockTrackingTemplates{inner: engine.templates, store: store}
	engine.service.templates = templates
	return &bookingFixture{
		store:     store,
		engine:    engine,
		templates: templates,
		service:   NewBookingService(activeTeachers(), store, engine.service, nil, zap.NewNop()),
	}
}

func scheduledSession(id, date, start string, duration int) models.TutoringSession {
	teacherID := "teacher-1"
	return models.TutoringSession{ID: id, TeacherID: &teacherID, StudentID: "student-9", Date: date, StartTime: start, Duration: duration, Status: models.SessionStatusScheduled}
}

func bookRequest() BookSessionRequest {
	return BookSessionRequest{StudentID: "student-1", Date: testMonday, StartTime: "10:00", Duration: 60}
}

func TestBookingServiceBook(t *testing.T) {
	f := newBookingFixture(&sessionStoreStub{})

	session, err := f.service.Book(context.Background(), "teacher-1", bookRequest())
	require.NoError(t, err)
	assert.Equal(t, "session-new", session.ID)
	assert.Equal(t, "school-1", session.SchoolID)
	require.NotNil(t, session.TeacherID)
	assert.Equal(t, "teacher-1", *session.TeacherID)
	assert.Equal(t, models.SessionStatusScheduled, session.Status)
	assert.Equal(t, []string{"teacher-1"}, f.store.locks)
	require.Len(t, f.store.created, 1)
}

func TestBookingServiceReadsOnlyThroughTransactionUnderLock(t *testing.T) {
	f := newBookingFixture(&sessionStoreStub{})

	_, err := f.service.Book(context.Background(), "teacher-1", bookRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.txReads)
	assert.Zero(t, f.templates.readsInLock)
	assert.Equal(t, 1, f.engine.blocks.calls)
	assert.Zero(t, f.engine.sessions.calls)
}

func TestBookingServiceRejectsTakenSlot(t *testing.T) {
	store := &sessionStoreStub{roster: []models.TutoringSession{scheduledSession("s-1", testMonday, "09:30", 60)}}
	f := newBookingFixture(store)

	_, err := f.service.Book(context.Background(), "teacher-1", bookRequest())
	requireAppError(t, err, appErrors.ErrConflict.Code)
	assert.Equal(t, "Conflicts with another session", err.Error())
	assert.Empty(t, store.created)
}

func TestBookingServiceAbortsWhenSessionsCannotBeRead(t *testing.T) {
	cases := map[string]*sessionStoreStub{
		"direct lookup fails": {
			directErr: errors.New("db down"),
			roster:    []models.TutoringSession{scheduledSession("s-1", testMonday, "10:00", 60)},
		},
		"roster lookup fails": {
			rosterErr: errors.New("db down"),
		},
	}
	for name, store := range cases {
		t.Run(name, func(t *testing.T) {
			f := newBookingFixture(store)
			_, err := f.service.Book(context.Background(), "teacher-1", bookRequest())
			requireAppError(t, err, appErrors.ErrInternal.Code)
			assert.Empty(t, store.created)
		})
	}
}

func TestBookingServiceBookErrors(t *testing.T) {
	t.Run("invalid payload", func(t *testing.T) {
		f := newBookingFixture(&sessionStoreStub{})
		req := bookRequest()
		req.StartTime = "10"
		_, err := f.service.Book(context.Background(), "teacher-1", req)
		requireAppError(t, err, appErrors.ErrValidation.Code)
	})
	t.Run("unknown teacher", func(t *testing.T) {
		f := newBookingFixture(&sessionStoreStub{})
		_, err := f.service.Book(context.Background(), "nobody", bookRequest())
		requireAppError(t, err, appErrors.ErrNotFound.Code)
	})
	t.Run("inactive teacher", func(t *testing.T) {
		f := newBookingFixture(&sessionStoreStub{})
		_, err := f.service.Book(context.Background(), "teacher-2", bookRequest())
		requireAppError(t, err, appErrors.ErrConflict.Code)
	})
	t.Run("store failure", func(t *testing.T) {
		f := newBookingFixture(&sessionStoreStub{createErr: errors.New("insert failed")})
		_, err := f.service.Book(context.Background(), "teacher-1", bookRequest())
		requireAppError(t, err, appErrors.ErrInternal.Code)
	})
	t.Run("lock failure", func(t *testing.T) {
		f := newBookingFixture(&sessionStoreStub{lockErr: errors.New("acquire teacher lock: lock timeout")})
		_, err := f.service.Book(context.Background(), "teacher-1", bookRequest())
		requireAppError(t, err, appErrors.ErrInternal.Code)
	})
	t.Run("template failure passes through", func(t *testing.T) {
		store := &sessionStoreStub{}
		f := newBookingFixture(store)
		f.engine.templates.err = errors.New("db down")
		_, err := f.service.Book(context.Background(), "teacher-1", bookRequest())
		requireAppError(t, err, appErrors.ErrInternal.Code)
		assert.Contains(t, err.Error(), "availability template")
		assert.Empty(t, store.locks)
	})
}

func TestBookingServiceReschedule(t *testing.T) {
	current := scheduledSession("s-1", testMonday, "10:00", 60)
	store := &sessionStoreStub{
		existing: map[string]*models.TutoringSession{"s-1": &current},
		direct:   []models.TutoringSession{current},
	}
	f := newBookingFixture(store)

	session, err := f.service.Reschedule(context.Background(), "teacher-1", "s-1", RescheduleSessionRequest{Date: testMonday, StartTime: "10:30", Duration: 45})
	require.NoError(t, err)
	assert.Equal(t, testMonday, session.Date)
	assert.Equal(t, "10:30", session.StartTime)
	assert.Equal(t, 45, session.Duration)
	require.Len(t, store.rescheduled, 1)
}

func TestBookingServiceRescheduleErrors(t *testing.T) {
	teacherID := "teacher-1"
	other := "teacher-9"
	store := &sessionStoreStub{existing: map[string]*models.TutoringSession{
		"mine":      {ID: "mine", TeacherID: &teacherID, Status: models.SessionStatusScheduled, CreatedAt: time.Now()},
		"theirs":    {ID: "theirs", TeacherID: &other, Status: models.SessionStatusScheduled},
		"cancelled": {ID: "cancelled", TeacherID: &teacherID, Status: models.SessionStatusCancelled},
	}}
	f := newBookingFixture(store)
	// 2024-01-17 is a Wednesday, which the fixture template leaves off.
	req := RescheduleSessionRequest{Date: "2024-01-17", StartTime: "11:00", Duration: 60}

	_, err := f.service.Reschedule(context.Background(), teacherID, "missing", req)
	requireAppError(t, err, appErrors.ErrNotFound.Code)

	_, err = f.service.Reschedule(context.Background(), teacherID, "theirs", req)
	requireAppError(t, err, appErrors.ErrNotFound.Code)

	_, err = f.service.Reschedule(context.Background(), teacherID, "cancelled", req)
	requireAppError(t, err, appErrors.ErrConflict.Code)

	_, err = f.service.Reschedule(context.Background(), teacherID, "mine", req)
	requireAppError(t, err, appErrors.ErrConflict.Code)
	assert.Equal(t, "Teacher does not work on this day", err.Error())
	assert.Empty(t, store.rescheduled)
}
