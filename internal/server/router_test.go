package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type buildingBodyResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Designer      string   `json:"designer"`
	Year          string   `json:"year"`
	Neighbourhood string   `json:"neighbourhood"`
	Era           string   `json:"era"`
	XCoordinate   float64  `json:"xcoordinate"`
	YCoordinate   float64  `json:"ycoordinate"`
	CreatedAt     string   `json:"createdAt"`
	Images        []string `json:"images"`
}

func TestNewHTTPHandlerRequiresServices(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); !errors.Is(err, errMissingBuildingsService) {
		t.Fatalf("expected missing buildings service error, got %v", err)
	}
}

func TestCreateBuildingThenGet(t *testing.T) {
	env := newTestEnvironment(t)

	created := env.do(t, http.MethodPost, "/api/buildings", buildingBody("building-1", "Gropius"))
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}

	fetched := env.do(t, http.MethodGet, "/api/buildings/building-1", nil)
	if fetched.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", fetched.Code)
	}
	building := decodeBody[buildingBodyResponse](t, fetched)
	if building.Title != "Haus building-1" || building.Designer != "Gropius" || building.Era != "bauhaus" {
		t.Fatalf("unexpected building %+v", building)
	}
	if building.Images == nil || len(building.Images) != 0 {
		t.Fatalf("expected empty images array, got %#v", building.Images)
	}
	if building.CreatedAt == "" {
		t.Fatalf("expected createdAt in response")
	}

	listed := env.do(t, http.MethodGet, "/api/buildings", nil)
	all := decodeBody[[]buildingBodyResponse](t, listed)
	if len(all) != 1 || all[0].ID != "building-1" {
		t.Fatalf("unexpected list %+v", all)
	}
}

func TestCreateBuildingAcceptsNumericYear(t *testing.T) {
	env := newTestEnvironment(t)
	body := buildingBody("building-1", "Gropius")
	body["year"] = 1926

	recorder := env.do(t, http.MethodPost, "/api/buildings", body)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if building := decodeBody[buildingBodyResponse](t, recorder); building.Year != "1926" {
		t.Fatalf("expected year 1926, got %q", building.Year)
	}
}

func TestCreateBuildingMissingFieldPersistsNothing(t *testing.T) {
	for _, field := range []string{"id", "title", "designer", "year", "neighbourhood", "era", "xcoordinate", "ycoordinate"} {
		t.Run(field, func(t *testing.T) {
			env := newTestEnvironment(t)
			body := buildingBody("building-1", "Gropius")
			delete(body, field)

			recorder := env.do(t, http.MethodPost, "/api/buildings", body)
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", recorder.Code)
			}
			if payload := decodeBody[errorBody](t, recorder); payload.Error != "Missing required fields" {
				t.Fatalf("unexpected error body %+v", payload)
			}

			listed := decodeBody[[]buildingBodyResponse](t, env.do(t, http.MethodGet, "/api/buildings", nil))
			if len(listed) != 0 {
				t.Fatalf("expected nothing persisted, got %+v", listed)
			}
		})
	}
}

func TestCreateBuildingDuplicateReturnsConflict(t *testing.T) {
	env := newTestEnvironment(t)
	env.do(t, http.MethodPost, "/api/buildings", buildingBody("building-1", "Gropius"))

	recorder := env.do(t, http.MethodPost, "/api/buildings", buildingBody("building-1", "Gropius"))
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
	if payload := decodeBody[errorBody](t, recorder); payload.Code != "buildings.create.conflict" {
		t.Fatalf("unexpected error body %+v", payload)
	}
}

func TestCreateBuildingRejectsMalformedJSON(t *testing.T) {
	env := newTestEnvironment(t)
	recorder := env.do(t, http.MethodPost, "/api/buildings", "{not json")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestGetUnknownBuildingReturnsNotFound(t *testing.T) {
	env := newTestEnvironment(t)
	recorder := env.do(t, http.MethodGet, "/api/buildings/missing", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	payload := decodeBody[errorBody](t, recorder)
	if payload.Error != "Building not found" || payload.Code != "buildings.get.not_found" {
		t.Fatalf("unexpected error body %+v", payload)
	}
}

func TestUpdateCoordinates(t *testing.T) {
	env := newTestEnvironment(t)
	env.do(t, http.MethodPost, "/api/buildings", buildingBody("building-1", "Gropius"))

	moved := env.do(t, http.MethodPut, "/api/buildings/building-1", map[string]any{"xcoordinate": 0, "ycoordinate": 7.5})
	if moved.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", moved.Code, moved.Body.String())
	}
	building := decodeBody[buildingBodyResponse](t, env.do(t, http.MethodGet, "/api/buildings/building-1", nil))
	if building.XCoordinate != 0 || building.YCoordinate != 7.5 {
		t.Fatalf("unexpected coordinates %+v", building)
	}

	missing := env.do(t, http.MethodPut, "/api/buildings/building-1", map[string]any{"xcoordinate": 1})
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing coordinate, got %d", missing.Code)
	}
	unknown := env.do(t, http.MethodPut, "/api/buildings/unknown", map[string]any{"xcoordinate": 1, "ycoordinate": 2})
	if unknown.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown building, got %d", unknown.Code)
	}
}

func TestPatchImagesAppendsInOrder(t *testing.T) {
	env := newTestEnvironment(t)
	body := buildingBody("building-1", "Gropius")
	body["images"] = []string{"a"}
	env.do(t, http.MethodPost, "/api/buildings", body)

	patched := env.do(t, http.MethodPatch, "/api/buildings/building-1", map[string]any{"images": []string{"b", "c"}})
	if patched.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", patched.Code, patched.Body.String())
	}
	building := decodeBody[buildingBodyResponse](t, patched)
	if !reflect.DeepEqual(building.Images, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected images %v", building.Images)
	}

	scalar := env.do(t, http.MethodPatch, "/api/buildings/building-1", map[string]any{"images": "d"})
	building = decodeBody[buildingBodyResponse](t, scalar)
	if !reflect.DeepEqual(building.Images, []string{"a", "b", "c", "d"}) {
		t.Fatalf("unexpected images after scalar patch %v", building.Images)
	}

	empty := env.do(t, http.MethodPatch, "/api/buildings/building-1", map[string]any{})
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty patch, got %d", empty.Code)
	}
	invalid := env.do(t, http.MethodPatch, "/api/buildings/building-1", map[string]any{"images": 42})
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-string images, got %d", invalid.Code)
	}
	unknown := env.do(t, http.MethodPatch, "/api/buildings/unknown", map[string]any{"images": "x"})
	if unknown.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", unknown.Code)
	}
}

func TestDesignersAreFoldedAndSorted(t *testing.T) {
	env := newTestEnvironment(t)
	for index, designer := range []string{"Foo", "foo", "Bar"} {
		env.do(t, http.MethodPost, "/api/buildings", buildingBody(string(rune('a'+index)), designer))
	}

	recorder := env.do(t, http.MethodGet, "/api/designers", nil)
	designers := decodeBody[[]string](t, recorder)
	if !reflect.DeepEqual(designers, []string{"bar", "foo"}) {
		t.Fatalf("unexpected designers %v", designers)
	}
}

func TestImpressionsLifecycle(t *testing.T) {
	env := newTestEnvironment(t)
	env.do(t, http.MethodPost, "/api/buildings", buildingBody("building-1", "Gropius"))

	created := env.do(t, http.MethodPost, "/api/buildings/building-1/impressions", map[string]any{
		"id":         "impression-1",
		"content":    "Calm courtyard",
		"moods":      []string{"happy", "cool"},
		"photos":     []string{},
		"hyperlinks": []string{"https://example.org"},
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}

	type impressionResponse struct {
		ID         string   `json:"id"`
		BuildingID string   `json:"buildingId"`
		Moods      []string `json:"moods"`
		Photos     []string `json:"photos"`
		Hyperlinks []string `json:"hyperlinks"`
	}
	listed := decodeBody[[]impressionResponse](t, env.do(t, http.MethodGet, "/api/buildings/building-1/impressions", nil))
	if len(listed) != 1 || listed[0].BuildingID != "building-1" {
		t.Fatalf("unexpected impressions %+v", listed)
	}
	if !reflect.DeepEqual(listed[0].Moods, []string{"happy", "cool"}) || listed[0].Photos == nil {
		t.Fatalf("unexpected arrays %+v", listed[0])
	}
}

func TestImpressionForUnknownBuildingReturnsNotFound(t *testing.T) {
	env := newTestEnvironment(t)

	recorder := env.do(t, http.MethodPost, "/api/buildings/missing/impressions", map[string]any{
		"id": "impression-1", "content": "text", "moods": []string{},
	})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	if payload := decodeBody[errorBody](t, recorder); payload.Error != "Building not found" {
		t.Fatalf("unexpected error body %+v", payload)
	}

	var count int64
	if err := env.db.Table("impressions").Count(&count).Error; err != nil {
		t.Fatalf("failed to count impressions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected nothing persisted, found %d", count)
	}
}

func TestImpressionValidation(t *testing.T) {
	env := newTestEnvironment(t)
	env.do(t, http.MethodPost, "/api/buildings", buildingBody("building-1", "Gropius"))

	missingContent := env.do(t, http.MethodPost, "/api/buildings/building-1/impressions", map[string]any{
		"id": "impression-1", "moods": []string{},
	})
	if missingContent.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", missingContent.Code)
	}
	if payload := decodeBody[errorBody](t, missingContent); payload.Error != "Content is required" {
		t.Fatalf("unexpected error body %+v", payload)
	}

	tooManyMoods := env.do(t, http.MethodPost, "/api/buildings/building-1/impressions", map[string]any{
		"id": "impression-1", "content": "text", "moods": []string{"happy", "sad", "cool", "love"},
	})
	if tooManyMoods.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for four moods, got %d", tooManyMoods.Code)
	}
	if payload := decodeBody[errorBody](t, tooManyMoods); payload.Error != "Invalid moods" {
		t.Fatalf("unexpected error body for four moods %+v", payload)
	}

	unknownMood := env.do(t, http.MethodPost, "/api/buildings/building-1/impressions", map[string]any{
		"id": "impression-1", "content": "text", "moods": []string{"grumpy"},
	})
	if unknownMood.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mood, got %d", unknownMood.Code)
	}
	if payload := decodeBody[errorBody](t, unknownMood); payload.Error != "Invalid moods" {
		t.Fatalf("unexpected error body for unknown mood %+v", payload)
	}

	missingMoods := env.do(t, http.MethodPost, "/api/buildings/building-1/impressions", map[string]any{
		"id": "impression-1", "content": "text",
	})
	if missingMoods.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for omitted moods, got %d", missingMoods.Code)
	}
	if payload := decodeBody[errorBody](t, missingMoods); payload.Error != "Invalid impression" {
		t.Fatalf("unexpected error body for omitted moods %+v", payload)
	}
}

func TestImageUploadFetchDelete(t *testing.T) {
	env := newTestEnvironment(t)

	uploaded := env.do(t, http.MethodPost, "/api/upload/image", map[string]string{"imageData": testImagePayload})
	if uploaded.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", uploaded.Code, uploaded.Body.String())
	}
	filename := decodeBody[map[string]string](t, uploaded)["filename"]
	if filename == "" {
		t.Fatalf("expected filename in response")
	}

	fetched := env.do(t, http.MethodGet, "/api/image/"+filename, nil)
	if fetched.Code != http.StatusOK || fetched.Body.String() != testImagePayload {
		t.Fatalf("unexpected fetch %d %q", fetched.Code, fetched.Body.String())
	}

	deleted := env.do(t, http.MethodDelete, "/api/delete/image", map[string]string{"filename": filename})
	if deleted.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", deleted.Code)
	}
	if env.blobs.Len() != 0 {
		t.Fatalf("expected blob to be removed")
	}

	again := env.do(t, http.MethodDelete, "/api/delete/image?filename="+filename, nil)
	if again.Code != http.StatusOK {
		t.Fatalf("expected idempotent delete, got %d", again.Code)
	}

	missing := env.do(t, http.MethodGet, "/api/image/"+filename, nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted image, got %d", missing.Code)
	}
}

func TestImageUploadRejections(t *testing.T) {
	env := newTestEnvironment(t)

	notImage := env.do(t, http.MethodPost, "/api/upload/image", map[string]string{"imageData": "hello"})
	if notImage.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", notImage.Code)
	}

	oversized := env.do(t, http.MethodPost, "/api/upload/image", map[string]string{
		"imageData": "data:image/png;base64," + strings.Repeat("A", 8192),
	})
	if oversized.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", oversized.Code)
	}

	noFilename := env.do(t, http.MethodDelete, "/api/delete/image", nil)
	if noFilename.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for delete without filename, got %d", noFilename.Code)
	}
}

func TestUploadRateLimit(t *testing.T) {
	env := newTestEnvironment(t, func(deps *Dependencies) {
		deps.Upload.RatePerSecond = 0.001
		deps.Upload.Burst = 1
	})

	first := env.do(t, http.MethodPost, "/api/upload/image", map[string]string{"imageData": testImagePayload})
	if first.Code != http.StatusOK {
		t.Fatalf("expected first upload to pass, got %d", first.Code)
	}
	second := env.do(t, http.MethodPost, "/api/upload/image", map[string]string{"imageData": testImagePayload})
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	healthy := newTestEnvironment(t)
	if recorder := healthy.do(t, http.MethodGet, "/api/healthz", nil); recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	metrics := healthy.do(t, http.MethodGet, "/metrics", nil)
	if metrics.Code != http.StatusOK || !strings.Contains(metrics.Body.String(), "buildings_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}

	unhealthy := newTestEnvironment(t, func(deps *Dependencies) {
		deps.HealthCheck = func(context.Context) error { return errors.New("database down") }
	})
	if recorder := unhealthy.do(t, http.MethodGet, "/api/healthz", nil); recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
}

func TestCORSPreflightAllowsConfiguredOrigin(t *testing.T) {
	env := newTestEnvironment(t, func(deps *Dependencies) {
		deps.AllowedOrigins = []string{"https://gallery.example.com"}
	})

	request := httptest.NewRequest(http.MethodOptions, "/api/buildings/building-1", http.NoBody)
	request.Header.Set("Origin", "https://gallery.example.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "https://gallery.example.com" {
		t.Fatalf("unexpected allow origin %q", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(recorder.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch) {
		t.Fatalf("expected PATCH in allowed methods")
	}
}
