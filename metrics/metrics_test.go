package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHook(t *testing.T) {
	tests := []struct {
		success, rateLimited bool
		outcome              string
	}{
		{true, false, OutcomeOK},
		{false, false, OutcomeError},
		{false, true, OutcomeRateLimited},
	}
	for _, tt := range tests {
		c := Requests.WithLabelValues("hook_test", tt.outcome)
		before := testutil.ToFloat64(c)
		Hook("hook_test", tt.success, tt.rateLimited)
		if got := testutil.ToFloat64(c) - before; got != 1 {
			t.Errorf("outcome %s: counter grew by %v, want 1", tt.outcome, got)
		}
	}
}

func TestObservePage(t *testing.T) {
	ObservePage("observe_test", 20)
	ObservePage("observe_test", 0)

	if got := testutil.ToFloat64(Pages.WithLabelValues("observe_test")); got != 2 {
		t.Errorf("pages = %v, want 2", got)
	}
	if got := testutil.ToFloat64(Items.WithLabelValues("observe_test")); got != 20 {
		t.Errorf("items = %v, want 20", got)
	}
}
