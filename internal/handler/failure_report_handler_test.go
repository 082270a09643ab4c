package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/middleware"
	"github.com/mechfleet/maintenance-api/internal/models"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

type actorResolverStub struct {
	actor authz.Actor
	err   error
}

func (s *actorResolverStub) ResolveActor(ctx context.Context, userID string) (authz.Actor, error) {
	return s.actor, s.err
}

type failureReportServiceMock struct {
	detail    *models.FailureReportDetail
	list      []models.FailureReportDetail
	createErr error
	claimErr  error

	createCalled bool
	claimCalled  bool
	claimedID    string
	lastFilter   models.FailureReportFilter
}

func (m *failureReportServiceMock) Create(ctx context.Context, actor authz.Actor, req models.CreateFailureReportRequest) (*models.FailureReportDetail, error) {
	m.createCalled = true
	return m.detail, m.createErr
}

func (m *failureReportServiceMock) List(ctx context.Context, actor authz.Actor, filter models.FailureReportFilter) ([]models.FailureReportDetail, int, error) {
	m.lastFilter = filter
	return m.list, len(m.list), nil
}

func (m *failureReportServiceMock) Get(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	return m.detail, nil
}

func (m *failureReportServiceMock) Claim(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	m.claimCalled = true
	m.claimedID = id
	return m.detail, m.claimErr
}

func (m *failureReportServiceMock) Release(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	return m.detail, nil
}

func (m *failureReportServiceMock) Assign(ctx context.Context, actor authz.Actor, id string, req models.AssignWorkshopRequest) (*models.FailureReportDetail, error) {
	return m.detail, nil
}

func (m *failureReportServiceMock) Reassign(ctx context.Context, actor authz.Actor, id string, req models.AssignWorkshopRequest) (*models.FailureReportDetail, error) {
	return m.detail, nil
}

func (m *failureReportServiceMock) Dismiss(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	return m.detail, nil
}

func (m *failureReportServiceMock) Resolve(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	return m.detail, nil
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleStandard})
	return c, w
}

func TestFailureReportHandlerCreate(t *testing.T) {
	branch := "branch-1"
	mockSvc := &failureReportServiceMock{detail: &models.FailureReportDetail{}}
	resolver := &actorResolverStub{actor: authz.Actor{ID: "u-1", Role: models.RoleStandard, LocationID: &branch}}
	h := NewFailureReportHandler(mockSvc, resolver)

	payload, _ := json.Marshal(models.CreateFailureReportRequest{
		VehicleID:   "c0a80121-7ac0-4e1c-8bd1-0a4ad3b1c0aa",
		Title:       "Engine stalls",
		Description: "Stalls at idle after warm start",
	})
	c, w := testContext(t, http.MethodPost, "/failure-reports", payload)

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
}

func TestFailureReportHandlerCreateInvalidBody(t *testing.T) {
	h := NewFailureReportHandler(&failureReportServiceMock{}, &actorResolverStub{})

	c, w := testContext(t, http.MethodPost, "/failure-reports", []byte(`{"title":`))

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFailureReportHandlerListPassesFilter(t *testing.T) {
	mockSvc := &failureReportServiceMock{list: []models.FailureReportDetail{{}}}
	resolver := &actorResolverStub{actor: authz.Actor{ID: "mgr-1", Role: models.RoleManager}}
	h := NewFailureReportHandler(mockSvc, resolver)

	c, w := testContext(t, http.MethodGet, "/failure-reports?status=PENDING&managedBy=mgr-1&page=2", nil)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.FailurePending, mockSvc.lastFilter.Status)
	assert.Equal(t, "mgr-1", mockSvc.lastFilter.ManagedBy)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
}

func TestFailureReportHandlerClaimConflict(t *testing.T) {
	mockSvc := &failureReportServiceMock{
		claimErr: appErrors.Clone(appErrors.ErrConflict, "Failure report is already managed by another manager."),
	}
	resolver := &actorResolverStub{actor: authz.Actor{ID: "mgr-1", Role: models.RoleManager}}
	h := NewFailureReportHandler(mockSvc, resolver)

	c, w := testContext(t, http.MethodPost, "/failure-reports/fr-1/claim", nil)
	c.Params = gin.Params{{Key: "id", Value: "fr-1"}}

	h.Claim(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, mockSvc.claimCalled)
	assert.Equal(t, "fr-1", mockSvc.claimedID)
	assert.Contains(t, w.Body.String(), "already managed by another manager")
}

func TestFailureReportHandlerResolverFailure(t *testing.T) {
	h := NewFailureReportHandler(&failureReportServiceMock{}, &actorResolverStub{err: appErrors.ErrUnauthorized})

	c, w := testContext(t, http.MethodPost, "/failure-reports/fr-1/claim", nil)
	c.Params = gin.Params{{Key: "id", Value: "fr-1"}}

	h.Claim(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
