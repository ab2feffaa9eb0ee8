package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Idempotent(t *testing.T) {
	// must not panic with duplicate registration
	Register()
	Register()
}

func TestRecordLoad(t *testing.T) {
	before := testutil.ToFloat64(loads.WithLabelValues(OutcomeFailure))

	RecordLoad(OutcomeFailure, 25*time.Millisecond)

	after := testutil.ToFloat64(loads.WithLabelValues(OutcomeFailure))
	if after-before != 1 {
		t.Errorf("loads_total{outcome=failure} delta = %v, want 1", after-before)
	}
}

func TestRecordSave(t *testing.T) {
	before := testutil.ToFloat64(saves.WithLabelValues(OutcomeNotFound))

	RecordSave(OutcomeNotFound, 0)

	after := testutil.ToFloat64(saves.WithLabelValues(OutcomeNotFound))
	if after-before != 1 {
		t.Errorf("saves_total{outcome=not_found} delta = %v, want 1", after-before)
	}
}

func TestSetBusy(t *testing.T) {
	SetBusy(true)
	if got := testutil.ToFloat64(busy); got != 1 {
		t.Errorf("busy = %v, want 1", got)
	}
	SetBusy(false)
	if got := testutil.ToFloat64(busy); got != 0 {
		t.Errorf("busy = %v, want 0", got)
	}
}

func TestRecordErrorBatch(t *testing.T) {
	batchesBefore := testutil.ToFloat64(errorBatches)
	messagesBefore := testutil.ToFloat64(errorMessages)

	RecordErrorBatch(3)

	if d := testutil.ToFloat64(errorBatches) - batchesBefore; d != 1 {
		t.Errorf("error_batches_total delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(errorMessages) - messagesBefore; d != 3 {
		t.Errorf("error_messages_total delta = %v, want 3", d)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordLoad(OutcomeSuccess, time.Millisecond)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "coursestore_store_loads_total") {
		t.Errorf("exposition missing coursestore_store_loads_total:\n%s", body)
	}
}
