package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"water-quality-api/config"
	"water-quality-api/models"
	"water-quality-api/rules"
	"water-quality-api/services"
	"water-quality-api/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClassifier struct {
	label models.Label
}

func (s stubClassifier) Classify(ph, turbidity, temperature float64) (models.Label, error) {
	return s.label, nil
}

type brokenStore struct {
	*store.Memory
	err error
}

func (b brokenStore) Append(context.Context, *models.Reading) (int64, error) { return 0, b.err }
func (b brokenStore) Latest(context.Context) (*models.Reading, error)        { return nil, b.err }
func (b brokenStore) Ping(context.Context) error                             { return b.err }

func (b brokenStore) History(context.Context, int) ([]models.Reading, error) {
	return nil, b.err
}

func newTestRouter(st store.Store) *gin.Engine {
	ingest := services.NewIngestionService(stubClassifier{label: models.LabelSafe}, rules.New(), st)
	query := services.NewQueryService(st, 50, 200)
	return NewRouter(RouterDeps{
		Ingest: ingest,
		Query:  query,
		Store:  st,
		CORS:   config.CORSConfig{AllowedOrigins: "*"},
	})
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestCreateReadingOverride(t *testing.T) {
	r := newTestRouter(store.NewMemory())

	w := do(r, http.MethodPost, "/readings", `{"ph": 9.1, "turbidity": 2.0, "temperature": 25.0}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Data stored successfully", body["message"])
	assert.Equal(t, "Unsafe", body["final_status"])
	assert.Equal(t, "Safe", body["ml_label"])

	w = do(r, http.MethodGet, "/readings/latest", "")
	require.Equal(t, http.StatusOK, w.Code)
	latest := decodeBody(t, w)
	assert.Equal(t, 9.1, latest["ph"])
	assert.Equal(t, "Unsafe", latest["final_status"])
	assert.Equal(t, "Safe", latest["ml_label"])
	assert.NotContains(t, latest, "id")
	assert.Contains(t, latest, "recorded_at")
}

func TestCreateReadingAcceptsNumericStrings(t *testing.T) {
	r := newTestRouter(store.NewMemory())

	w := do(r, http.MethodPost, "/readings", `{"ph": "7.2", "turbidity": "1", "temperature": 20}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Safe", decodeBody(t, w)["final_status"])
}

func TestCreateReadingValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{"empty body", ``, []string{"body"}},
		{"malformed", `{"ph":`, []string{"body"}},
		{"array", `[1,2,3]`, []string{"body"}},
		{"trailing data", `{"ph": 7, "turbidity": 1, "temperature": 20} garbage{`, []string{"body"}},
		{"missing temperature", `{"ph": 7, "turbidity": 1}`, []string{"temperature"}},
		{"null and text", `{"ph": null, "turbidity": "cloudy", "temperature": 20}`, []string{"ph", "turbidity"}},
		{"ph out of range", `{"ph": 14.5, "turbidity": 1, "temperature": 20}`, []string{"ph"}},
		{"negative turbidity", `{"ph": 7, "turbidity": -0.1, "temperature": 20}`, []string{"turbidity"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory()
			r := newTestRouter(st)

			w := do(r, http.MethodPost, "/readings", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "validation_error", body["kind"])
			assert.NotEmpty(t, body["error"])

			fields, ok := body["fields"].(map[string]any)
			require.True(t, ok, "fields missing: %v", body)
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
			assert.Equal(t, 0, st.Len())
		})
	}
}

func TestStoreFailuresMapToStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"unavailable", store.ErrUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
		{"store error", store.ErrStore, http.StatusBadGateway, "store_error"},
		{"schema", store.ErrSchema, http.StatusBadGateway, "store_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(brokenStore{Memory: store.NewMemory(), err: tt.err})

			w := do(r, http.MethodPost, "/readings", `{"ph": 7, "turbidity": 1, "temperature": 20}`)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantKind, decodeBody(t, w)["kind"])

			w = do(r, http.MethodGet, "/readings/latest", "")
			assert.Equal(t, tt.wantCode, w.Code)

			w = do(r, http.MethodGet, "/readings/history", "")
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestLatestEmpty(t *testing.T) {
	r := newTestRouter(store.NewMemory())

	w := do(r, http.MethodGet, "/readings/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "not_found", body["kind"])
	assert.Equal(t, "no data found", body["error"])
}

func TestHistory(t *testing.T) {
	r := newTestRouter(store.NewMemory())

	w := do(r, http.MethodGet, "/readings/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for _, ph := range []string{"6.6", "7.0", "7.5", "8.0"} {
		w := do(r, http.MethodPost, "/readings", `{"ph": `+ph+`, "turbidity": 1, "temperature": 20}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	tests := []struct {
		query  string
		wantPH []float64
	}{
		{"", []float64{6.6, 7.0, 7.5, 8.0}},
		{"?limit=2", []float64{7.5, 8.0}},
		{"?limit=0", []float64{6.6, 7.0, 7.5, 8.0}},
		{"?limit=-4", []float64{6.6, 7.0, 7.5, 8.0}},
		{"?limit=abc", []float64{6.6, 7.0, 7.5, 8.0}},
		{"?limit=100000", []float64{6.6, 7.0, 7.5, 8.0}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(r, http.MethodGet, "/readings/history"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)

			var rows []models.Reading
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
			got := make([]float64, len(rows))
			for i, row := range rows {
				got[i] = row.PH
			}
			assert.Equal(t, tt.wantPH, got)
		})
	}
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(store.NewMemory()), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UP", decodeBody(t, w)["status"])

	w = do(newTestRouter(brokenStore{Memory: store.NewMemory(), err: store.ErrUnavailable}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DOWN", decodeBody(t, w)["status"])
}

func TestIndexAndMetrics(t *testing.T) {
	r := newTestRouter(store.NewMemory())

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)

	do(r, http.MethodPost, "/readings", `{"ph": 7, "turbidity": 1, "temperature": 20}`)
	w = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "waterquality_readings_stored_total")
}

func TestLiveWithoutRedis(t *testing.T) {
	r := newTestRouter(store.NewMemory())

	w := do(r, http.MethodGet, "/readings/live", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 0},
		{"limit=10", 10},
		{"limit=-1", 0},
		{"limit=ten", 0},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/readings/history?"+tt.query, nil)
		if got := ParseLimit(c); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusClientClosedRequest, statusFor(services.KindCanceled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(services.KindInternal))
}
