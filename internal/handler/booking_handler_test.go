package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	"github.com/noah-isme/tutorcrm-api/internal/service"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
)

type bookingServiceMock struct {
	err           error
	bookReq       service.BookSessionRequest
	rescheduleReq service.RescheduleSessionRequest
	sessionID     string
}

func (m *bookingServiceMock) Book(ctx context.Context, teacherID string, req service.BookSessionRequest) (*models.TutoringSession, error) {
	m.bookReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.TutoringSession{ID: testSessionID, TeacherID: &teacherID, Date: req.Date, StartTime: req.StartTime, Duration: req.Duration, Status: models.SessionStatusScheduled}, nil
}

func (m *bookingServiceMock) Reschedule(ctx context.Context, teacherID, sessionID string, req service.RescheduleSessionRequest) (*models.TutoringSession, error) {
	m.sessionID = sessionID
	m.rescheduleReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.TutoringSession{ID: sessionID, Date: req.Date, StartTime: req.StartTime, Duration: req.Duration}, nil
}

func TestBookingHandlerBook(t *testing.T) {
	svc := &bookingServiceMock{}
	handler := NewBookingHandler(svc)
	body := []byte(`{"student_id":"student-1","date":"2024-01-15","start_time":"10:00","duration":60}`)
	c, w := newTestContext(http.MethodPost, "/teachers/x/sessions", body, teacherParams())

	handler.Book(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, service.BookSessionRequest{StudentID: "student-1", Date: "2024-01-15", StartTime: "10:00", Duration: 60}, svc.bookReq)
	assert.Contains(t, w.Body.String(), testSessionID)
}

func TestBookingHandlerBookConflict(t *testing.T) {
	svc := &bookingServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "Conflicts with another session")}
	handler := NewBookingHandler(svc)
	body := []byte(`{"student_id":"student-1","date":"2024-01-15","start_time":"10:00","duration":60}`)
	c, w := newTestContext(http.MethodPost, "/teachers/x/sessions", body, teacherParams())

	handler.Book(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Conflicts with another session", env.Error.Message)
	assert.Len(t, c.Errors, 1)
}

func TestBookingHandlerBookMalformedBody(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{})
	c, w := newTestContext(http.MethodPost, "/teachers/x/sessions", []byte(`{"duration":"sixty"}`), teacherParams())

	handler.Book(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerReschedule(t *testing.T) {
	svc := &bookingServiceMock{}
	handler := NewBookingHandler(svc)
	body := []byte(`{"date":"2024-01-16","start_time":"11:00","duration":45}`)
	c, w := newTestContext(http.MethodPut, "/teachers/x/sessions/y", body, teacherParams(gin.Param{Key: "sessionId", Value: testSessionID}))

	handler.Reschedule(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testSessionID, svc.sessionID)
	assert.Equal(t, 45, svc.rescheduleReq.Duration)
}

func TestBookingHandlerRescheduleInvalidSession(t *testing.T) {
	svc := &bookingServiceMock{}
	handler := NewBookingHandler(svc)
	c, w := newTestContext(http.MethodPut, "/teachers/x/sessions/y", []byte(`{}`), teacherParams(gin.Param{Key: "sessionId", Value: "nope"}))

	handler.Reschedule(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.sessionID)
}
