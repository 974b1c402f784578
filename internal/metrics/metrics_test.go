package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wowedo/searchsync/internal/observability"
)

func TestHandlerExposesServiceMetrics(t *testing.T) {
	observability.IncDispatch("list", "applied")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "dispatch_total") {
		t.Fatalf("scrape output missing dispatch counter")
	}
}
