package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/pkg/storage"
)

type uploadServiceMock struct {
	limit    int64
	received []byte
}

func (m *uploadServiceMock) MaxBytes(purpose string) int64 {
	if purpose == dto.UploadPurposeGrievance {
		return m.limit
	}
	return 0
}

func (m *uploadServiceMock) Upload(_ context.Context, _ string, data []byte) (*dto.UploadResult, error) {
	m.received = data
	return &dto.UploadResult{FileURL: "/uploads/files?token=abc", MimeType: "image/jpeg", Size: int64(len(data))}, nil
}

func multipartContext(t *testing.T, purpose string, payload []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("purpose", purpose))
	if payload != nil {
		part, err := mw.CreateFormFile("file", "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.Request = req
	return c, w
}

func TestUploadHandlerAccepts(t *testing.T) {
	mock := &uploadServiceMock{limit: 1024}
	h := NewUploadHandler(mock, nil)

	c, w := multipartContext(t, dto.UploadPurposeGrievance, []byte("image-bytes"))
	h.Upload(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []byte("image-bytes"), mock.received)
	assert.Contains(t, w.Body.String(), `"fileUrl":"/uploads/files?token=abc"`)
}

func TestUploadHandlerRejects(t *testing.T) {
	mock := &uploadServiceMock{limit: 4}
	h := NewUploadHandler(mock, nil)

	c, w := multipartContext(t, "avatar", []byte("x"))
	h.Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = multipartContext(t, dto.UploadPurposeGrievance, nil)
	h.Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = multipartContext(t, dto.UploadPurposeGrievance, []byte("too large"))
	h.Upload(c)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Nil(t, mock.received)
}

func TestUploadHandlerServesLocalFiles(t *testing.T) {
	signer := storage.NewSignedURLSigner("file-secret", 0)
	local, err := storage.NewLocalStorage(t.TempDir(), "/uploads", signer)
	require.NoError(t, err)
	fileURL, err := local.Put(context.Background(), "grievance/2026/10/a.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	parsed, err := url.Parse(fileURL)
	require.NoError(t, err)

	h := NewUploadHandler(&uploadServiceMock{}, local)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/uploads/files", h.Serve)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/files?"+parsed.RawQuery, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg-bytes", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/files?token=forged", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUploadHandlerServeDisabled(t *testing.T) {
	h := NewUploadHandler(&uploadServiceMock{}, nil)
	c, w := newJSONContext(http.MethodGet, "/uploads/files?token=x", "")
	h.Serve(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	ok := ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	c, w := newJSONContext(http.MethodGet, "/ready", "")
	NewMetricsHandler(nil, ok).Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newJSONContext(http.MethodGet, "/ready", "")
	NewMetricsHandler(nil, ok, down).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "connection refused"))

	c, w = newJSONContext(http.MethodGet, "/metrics", "")
	NewMetricsHandler(nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
