package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/buildings"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/images"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/impressions"
	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testImagePayload = "data:image/png;base64,iVBORw0KGgo="

type testEnvironment struct {
	handler    http.Handler
	db         *gorm.DB
	blobs      *images.MemoryStore
	realtime   *RealtimeDispatcher
	metrics    *Metrics
	buildings  *buildings.Service
	impression *impressions.Service
}

type environmentOption func(*Dependencies)

func newTestEnvironment(t *testing.T, options ...environmentOption) *testEnvironment {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&buildings.Building{}, &impressions.Impression{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	buildingService, err := buildings.NewService(buildings.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build buildings service: %v", err)
	}
	impressionService, err := impressions.NewService(impressions.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build impressions service: %v", err)
	}
	blobs := images.NewMemoryStore()
	imageService, err := images.NewService(images.ServiceConfig{Store: blobs, MaxBytes: 4096})
	if err != nil {
		t.Fatalf("failed to build images service: %v", err)
	}

	dispatcher := NewRealtimeDispatcher()
	metrics := NewMetrics()
	deps := Dependencies{
		Buildings:   buildingService,
		Impressions: impressionService,
		Images:      imageService,
		Logger:      zap.NewNop(),
		Realtime:    dispatcher,
		Metrics:     metrics,
		Upload:      UploadLimits{MaxBytes: 4096},
	}
	for _, option := range options {
		option(&deps)
	}

	handler, err := NewHTTPHandler(deps)
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	return &testEnvironment{
		handler:    handler,
		db:         db,
		blobs:      blobs,
		realtime:   dispatcher,
		metrics:    metrics,
		buildings:  buildingService,
		impression: impressionService,
	}
}

func (e *testEnvironment) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch typed := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(typed))
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return value
}

func buildingBody(id, designer string) map[string]any {
	return map[string]any{
		"id":            id,
		"title":         "Haus " + id,
		"designer":      designer,
		"year":          "1930",
		"neighbourhood": "mitte",
		"era":           "bauhaus",
		"xcoordinate":   13.4,
		"ycoordinate":   52.5,
	}
}
