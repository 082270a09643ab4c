package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

type repairReportServiceMock struct {
	detail     *models.RepairReportDetail
	rejections []models.RepairReportRejection
	csv        []byte
	pdf        []byte
	updateErr  error
	rejectErr  error

	updateCalled bool
	rejectCalled bool
	exportCalled bool
}

func (m *repairReportServiceMock) List(ctx context.Context, actor authz.Actor, filter models.RepairReportFilter) ([]models.RepairReportDetail, int, error) {
	return nil, 0, nil
}

func (m *repairReportServiceMock) Get(ctx context.Context, actor authz.Actor, id string) (*models.RepairReportDetail, error) {
	return m.detail, nil
}

func (m *repairReportServiceMock) Update(ctx context.Context, actor authz.Actor, id string, req models.UpdateRepairReportRequest) (*models.RepairReportDetail, error) {
	m.updateCalled = true
	return m.detail, m.updateErr
}

func (m *repairReportServiceMock) SetStatus(ctx context.Context, actor authz.Actor, id string, req models.RepairReportStatusRequest) (*models.RepairReportDetail, error) {
	return m.detail, nil
}

func (m *repairReportServiceMock) Reject(ctx context.Context, actor authz.Actor, id string, req models.RejectRepairReportRequest) (*models.RepairReportRejection, error) {
	m.rejectCalled = true
	if m.rejectErr != nil {
		return nil, m.rejectErr
	}
	return &models.RepairReportRejection{ID: "rej-1", RepairReportID: id, Title: req.Title}, nil
}

func (m *repairReportServiceMock) ListRejections(ctx context.Context, actor authz.Actor, id string) ([]models.RepairReportRejection, error) {
	return m.rejections, nil
}

func (m *repairReportServiceMock) Rejections(ctx context.Context, actor authz.Actor, page, pageSize int) ([]models.RepairReportRejection, int, error) {
	return m.rejections, len(m.rejections), nil
}

func (m *repairReportServiceMock) GetRejection(ctx context.Context, actor authz.Actor, id string) (*models.RepairReportRejection, error) {
	for i := range m.rejections {
		if m.rejections[i].ID == id {
			return &m.rejections[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "Rejection not found.")
}

func (m *repairReportServiceMock) ExportCSV(ctx context.Context, actor authz.Actor) ([]byte, error) {
	m.exportCalled = true
	return m.csv, nil
}

func (m *repairReportServiceMock) ExportPDF(ctx context.Context, actor authz.Actor) ([]byte, error) {
	m.exportCalled = true
	return m.pdf, nil
}

func mechanicResolver() *actorResolverStub {
	ws := "ws-1"
	return &actorResolverStub{actor: authz.Actor{ID: "mech-1", Role: models.RoleMechanic, LocationID: &ws}}
}

func TestRepairReportHandlerUpdate(t *testing.T) {
	mockSvc := &repairReportServiceMock{detail: &models.RepairReportDetail{}}
	h := NewRepairReportHandler(mockSvc, mechanicResolver())

	payload, _ := json.Marshal(models.UpdateRepairReportRequest{
		ConditionAnalysis: "worn brake pads",
		RepairAction:      "replaced front pads",
		Cost:              180,
	})
	c, w := testContext(t, http.MethodPut, "/repair-reports/rr-1", payload)
	c.Params = gin.Params{{Key: "id", Value: "rr-1"}}

	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.updateCalled)
}

func TestRepairReportHandlerUpdateInvalidBody(t *testing.T) {
	mockSvc := &repairReportServiceMock{}
	h := NewRepairReportHandler(mockSvc, mechanicResolver())

	c, w := testContext(t, http.MethodPut, "/repair-reports/rr-1", []byte(`{"cost":`))
	c.Params = gin.Params{{Key: "id", Value: "rr-1"}}

	h.Update(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.updateCalled)
}

func TestRepairReportHandlerRejectInvalidState(t *testing.T) {
	mockSvc := &repairReportServiceMock{
		rejectErr: appErrors.Clone(appErrors.ErrInvalidState, "Repair report is not in READY status."),
	}
	resolver := &actorResolverStub{actor: authz.Actor{ID: "mgr-1", Role: models.RoleManager}}
	h := NewRepairReportHandler(mockSvc, resolver)

	payload, _ := json.Marshal(models.RejectRepairReportRequest{Title: "Not fixed", Reason: "Still stalls"})
	c, w := testContext(t, http.MethodPost, "/repair-reports/rr-1/reject", payload)
	c.Params = gin.Params{{Key: "id", Value: "rr-1"}}

	h.Reject(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, mockSvc.rejectCalled)
	assert.Contains(t, w.Body.String(), "not in READY status")
}

func TestRepairReportHandlerExportCSV(t *testing.T) {
	mockSvc := &repairReportServiceMock{csv: []byte("Report,Vehicle\n")}
	resolver := &actorResolverStub{actor: authz.Actor{ID: "mgr-1", Role: models.RoleManager}}
	h := NewRepairReportHandler(mockSvc, resolver)

	c, w := testContext(t, http.MethodGet, "/repair-reports/export?format=csv", nil)

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.exportCalled)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "repair-costs.csv")
}

func TestRepairReportHandlerExportUnknownFormat(t *testing.T) {
	mockSvc := &repairReportServiceMock{}
	resolver := &actorResolverStub{actor: authz.Actor{ID: "mgr-1", Role: models.RoleManager}}
	h := NewRepairReportHandler(mockSvc, resolver)

	c, w := testContext(t, http.MethodGet, "/repair-reports/export?format=xml", nil)

	h.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.exportCalled)
}

func TestRepairReportHandlerGetRejection(t *testing.T) {
	mockSvc := &repairReportServiceMock{rejections: []models.RepairReportRejection{
		{ID: "rej-1", RepairReportID: "rr-1", Title: "Not fixed"},
	}}
	resolver := &actorResolverStub{actor: authz.Actor{ID: "mgr-1", Role: models.RoleManager}}
	h := NewRepairReportHandler(mockSvc, resolver)

	c, w := testContext(t, http.MethodGet, "/repair-report-rejections/rej-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "rej-1"}}

	h.GetRejection(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Not fixed")

	c, w = testContext(t, http.MethodGet, "/repair-report-rejections/rej-404", nil)
	c.Params = gin.Params{{Key: "id", Value: "rej-404"}}

	h.GetRejection(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
