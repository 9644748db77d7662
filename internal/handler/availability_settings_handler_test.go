package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	"github.com/noah-isme/tutorcrm-api/internal/service"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
)

type settingsServiceMock struct {
	template   *models.WeeklyAvailabilityTemplate
	blocks     []models.AvailabilityBlock
	err        error
	upsertReq  service.UpsertAvailabilityTemplateRequest
	blockReq   service.CreateAvailabilityBlockRequest
	listRange  [2]string
	deletedIDs []string
}

func (m *settingsServiceMock) GetTemplate(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error) {
	return m.template, m.err
}

func (m *settingsServiceMock) UpsertTemplate(ctx context.Context, teacherID string, req service.UpsertAvailabilityTemplateRequest) (*models.WeeklyAvailabilityTemplate, error) {
	m.upsertReq = req
	return m.template, m.err
}

func (m *settingsServiceMock) ListBlocks(ctx context.Context, teacherID, startDate, endDate string) ([]models.AvailabilityBlock, error) {
	m.listRange = [2]string{startDate, endDate}
	return m.blocks, m.err
}

func (m *settingsServiceMock) CreateBlock(ctx context.Context, teacherID string, req service.CreateAvailabilityBlockRequest) (*models.AvailabilityBlock, error) {
	m.blockReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.AvailabilityBlock{ID: testBlockID, TeacherID: teacherID, Type: req.Type, Date: req.Date}, nil
}

func (m *settingsServiceMock) DeleteBlock(ctx context.Context, teacherID, blockID string) error {
	m.deletedIDs = append(m.deletedIDs, blockID)
	return m.err
}

func TestSettingsHandlerGetTemplate(t *testing.T) {
	svc := &settingsServiceMock{template: &models.WeeklyAvailabilityTemplate{TeacherID: testTeacherID, Timezone: "Asia/Jakarta"}}
	handler := NewAvailabilitySettingsHandler(svc)
	c, w := newTestContext(http.MethodGet, "/teachers/x/availability/template", nil, teacherParams())

	handler.GetTemplate(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var tpl models.WeeklyAvailabilityTemplate
	require.NoError(t, json.Unmarshal(env.Data, &tpl))
	assert.Equal(t, "Asia/Jakarta", tpl.Timezone)
}

func TestSettingsHandlerUpsertTemplate(t *testing.T) {
	svc := &settingsServiceMock{template: &models.WeeklyAvailabilityTemplate{TeacherID: testTeacherID}}
	handler := NewAvailabilitySettingsHandler(svc)
	body := []byte(`{"working_hours":{"monday":{"enabled":true,"start":"09:00","end":"17:00","breaks":[{"start":"12:00","end":"13:00"}]}},"timezone":"UTC","buffer_time":15}`)
	c, w := newTestContext(http.MethodPut, "/teachers/x/availability/template", body, teacherParams())

	handler.UpsertTemplate(c)

	require.Equal(t, http.StatusOK, w.Code)
	monday := svc.upsertReq.WorkingHours["monday"]
	assert.True(t, monday.Enabled)
	assert.Equal(t, []service.BreakRequest{{Start: "12:00", End: "13:00"}}, monday.Breaks)
	assert.Equal(t, 15, svc.upsertReq.BufferTime)
}

func TestSettingsHandlerUpsertTemplateValidationError(t *testing.T) {
	svc := &settingsServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "monday: breaks overlap")}
	handler := NewAvailabilitySettingsHandler(svc)
	c, w := newTestContext(http.MethodPut, "/teachers/x/availability/template", []byte(`{"timezone":"UTC"}`), teacherParams())

	handler.UpsertTemplate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "breaks overlap")
}

func TestSettingsHandlerListBlocks(t *testing.T) {
	svc := &settingsServiceMock{blocks: []models.AvailabilityBlock{{ID: testBlockID, Date: "2024-01-15"}}}
	handler := NewAvailabilitySettingsHandler(svc)
	c, w := newTestContext(http.MethodGet, "/teachers/x/availability/blocks?start_date=2024-01-01&endDate=2024-01-31", nil, teacherParams())

	handler.ListBlocks(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"2024-01-01", "2024-01-31"}, svc.listRange)
}

func TestSettingsHandlerCreateBlock(t *testing.T) {
	svc := &settingsServiceMock{}
	handler := NewAvailabilitySettingsHandler(svc)
	body := []byte(`{"type":"blocked","date":"2024-01-15","start_time":"12:00","end_time":"13:00","reason":"Dentist"}`)
	c, w := newTestContext(http.MethodPost, "/teachers/x/availability/blocks", body, teacherParams())

	handler.CreateBlock(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.AvailabilityBlockBlocked, svc.blockReq.Type)
	require.NotNil(t, svc.blockReq.Reason)
	assert.Equal(t, "Dentist", *svc.blockReq.Reason)
}

func TestSettingsHandlerDeleteBlock(t *testing.T) {
	svc := &settingsServiceMock{}
	handler := NewAvailabilitySettingsHandler(svc)
	c, w := newTestContext(http.MethodDelete, "/teachers/x/availability/blocks/y", nil, teacherParams(gin.Param{Key: "blockId", Value: testBlockID}))

	handler.DeleteBlock(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{testBlockID}, svc.deletedIDs)
}

func TestSettingsHandlerDeleteBlockErrors(t *testing.T) {
	svc := &settingsServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "availability block not found")}
	handler := NewAvailabilitySettingsHandler(svc)

	c, w := newTestContext(http.MethodDelete, "/teachers/x/availability/blocks/y", nil, teacherParams(gin.Param{Key: "blockId", Value: testBlockID}))
	handler.DeleteBlock(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newTestContext(http.MethodDelete, "/teachers/x/availability/blocks/y", nil, teacherParams(gin.Param{Key: "blockId", Value: "not-a-uuid"}))
	handler.DeleteBlock(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, svc.deletedIDs, 1)
}
