package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/pkg/config"
)

type objectStoreStub struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newObjectStoreStub() *objectStoreStub {
	return &objectStoreStub{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *objectStoreStub) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.objects[key] = data
	s.types[key] = contentType
	return "https://cdn.example/" + key, nil
}

func (s *objectStoreStub) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testUploadsConfig() config.UploadsConfig {
	return config.UploadsConfig{
		IDProofMaxBytes:    5 * 1024 * 1024,
		GrievanceMaxBytes:  10 * 1024 * 1024,
		ResolutionMaxBytes: 10 * 1024 * 1024,
		MaxEdge:            1280,
		ThumbnailEdge:      320,
		JPEGQuality:        70,
		CompressThreshold:  1024 * 1024,
	}
}

func TestUploadServiceCompressesLargeImage(t *testing.T) {
	store := newObjectStoreStub()
	svc := NewUploadService(store, testUploadsConfig(), NewMetricsService(), nil)

	res, err := svc.Upload(context.Background(), dto.UploadPurposeResolution, testPNG(t, 2000, 1500))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.True(t, strings.HasPrefix(res.FileURL, "https://cdn.example/resolution/"))
	assert.True(t, strings.HasSuffix(res.FileURL, ".jpg"))
	assert.True(t, strings.HasSuffix(res.ThumbnailURL, "_thumb.jpg"))
	assert.Len(t, store.objects, 2)

	key := strings.TrimPrefix(res.FileURL, "https://cdn.example/")
	cfg, _, err := image.DecodeConfig(bytes.NewReader(store.objects[key]))
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 960, cfg.Height)
}

func TestUploadServiceKeepsSmallImage(t *testing.T) {
	store := newObjectStoreStub()
	svc := NewUploadService(store, testUploadsConfig(), nil, nil)

	res, err := svc.Upload(context.Background(), dto.UploadPurposeIDProof, testPNG(t, 200, 100))
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.MimeType)
	assert.True(t, strings.HasSuffix(res.FileURL, ".png"))
}

func TestUploadServiceRejections(t *testing.T) {
	svc := NewUploadService(newObjectStoreStub(), testUploadsConfig(), nil, nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "avatar", testPNG(t, 10, 10))
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = svc.Upload(ctx, dto.UploadPurposeGrievance, nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = svc.Upload(ctx, dto.UploadPurposeGrievance, []byte("%PDF-1.7\n%binary"))
	assert.Equal(t, http.StatusUnsupportedMediaType, statusOf(err))

	small := testUploadsConfig()
	small.IDProofMaxBytes = 64
	_, err = NewUploadService(newObjectStoreStub(), small, nil, nil).Upload(ctx, dto.UploadPurposeIDProof, testPNG(t, 50, 50))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusOf(err))
}

func TestUploadServiceRejectsOversizedDimensions(t *testing.T) {
	store := newObjectStoreStub()
	cfg := testUploadsConfig()
	cfg.MaxPixels = 50 * 50
	svc := NewUploadService(store, cfg, nil, nil)

	_, err := svc.Upload(context.Background(), dto.UploadPurposeGrievance, testPNG(t, 60, 60))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusOf(err))
	assert.Empty(t, store.objects)

	_, err = svc.Upload(context.Background(), dto.UploadPurposeGrievance, testPNG(t, 50, 50))
	assert.NoError(t, err)
}

func TestUploadServiceStoreFailure(t *testing.T) {
	store := newObjectStoreStub()
	store.err = errors.New("bucket unavailable")
	svc := NewUploadService(store, testUploadsConfig(), nil, nil)

	_, err := svc.Upload(context.Background(), dto.UploadPurposeGrievance, testPNG(t, 20, 20))
	assert.Equal(t, http.StatusBadGateway, statusOf(err))
}
