package restapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(cfg ExtractionConfig) *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	v1 := api.Group("/v1")
	v1.GET("/ping", getPing)
	v1.POST("/extract", postExtract(cfg))
	return r
}

func TestGetPing(t *testing.T) {
	r := newTestRouter(ExtractionConfig{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if body["message"] != "pong" {
		t.Errorf("message = %q, want pong", body["message"])
	}
}

func TestPostExtractRejectsMismatchedLength(t *testing.T) {
	r := newTestRouter(ExtractionConfig{BW: 8, BH: 8, Thresh: 3, MinArea: 1})
	body, _ := json.Marshal(ExtractRequest{Width: 4, Height: 4, Pixels: []float32{1, 2, 3}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPostExtractRejectsMalformedJSON(t *testing.T) {
	r := newTestRouter(ExtractionConfig{BW: 8, BH: 8, Thresh: 3, MinArea: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPostExtractReturnsCatalogForCentralSource(t *testing.T) {
	width, height := 32, 32
	pixels := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x-16), float64(y-16)
			v := 100 * (1 - (dx*dx+dy*dy)/512)
			if v < 0 {
				v = 0
			}
			pixels[y*width+x] = float32(v)
		}
	}
	r := newTestRouter(ExtractionConfig{BW: 8, BH: 8, Thresh: 3, MinArea: 3, Conn8: true})
	reqBody, _ := json.Marshal(ExtractRequest{Width: int32(width), Height: int32(height), Pixels: pixels})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, ok := resp["catalog"]; !ok {
		t.Error("response missing catalog field")
	}
	count, ok := resp["count"].(float64)
	if !ok || count < 1 {
		t.Errorf("count = %v, want >= 1", resp["count"])
	}
}
