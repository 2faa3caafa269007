package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rumbimoyo/academy-api/internal/middleware"
	"github.com/rumbimoyo/academy-api/internal/models"
	"github.com/rumbimoyo/academy-api/internal/service"
	appErrors "github.com/rumbimoyo/academy-api/pkg/errors"
)

type exportServiceMock struct {
	createResp  *service.ExportJobStatus
	createErr   error
	statusResp  *service.ExportJobStatus
	statusErr   error
	download    *service.ExportDownload
	downloadErr error
}

func (m *exportServiceMock) CreateJob(ctx context.Context, req service.ExportRequest, actorID string) (*service.ExportJobStatus, error) {
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(ctx context.Context, id string, actorID string, role models.ProfileRole) (*service.ExportJobStatus, error) {
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestExportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cohortID := "cohort-1"
	mockSvc := &exportServiceMock{
		createResp: &service.ExportJobStatus{ID: "job-1", Status: models.ExportStatusQueued},
	}
	handler := NewExportHandler(mockSvc)

	payload, _ := json.Marshal(service.ExportRequest{Type: models.ExportTypeRoster, CohortID: &cohortID, Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/exports", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestExportHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{})

	c, w := newGinContext(http.MethodPost, "/exports", []byte(`{}`))
	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{
		statusResp: &service.ExportJobStatus{ID: "job-1", Status: models.ExportStatusFinished},
	}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "lect-1", Role: models.RoleLecturer})

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestExportHandlerStatusForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{statusErr: appErrors.ErrForbidden}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "someone", Role: models.RoleLecturer})

	handler.Status(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportHandlerDownloadServesFile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	path := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("Student,Email\nTari M,tari@academy.dev\n"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &exportServiceMock{download: &service.ExportDownload{
		File:      file,
		Filename:  "roster.csv",
		Format:    models.ExportFormatCSV,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "roster.csv")
	require.Contains(t, w.Body.String(), "Tari M")
}

func TestExportHandlerDownloadInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &exportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")}
	handler := NewExportHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/exports/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}

	handler.Download(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
