package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordInvite(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.InvitesTotal.WithLabelValues("success"))

	DefaultMetrics.RecordInvite("success", 0.2)
	DefaultMetrics.RecordInvite("bot", 0)

	after := testutil.ToFloat64(DefaultMetrics.InvitesTotal.WithLabelValues("success"))
	if after-before != 1 {
		t.Errorf("expected success counter to grow by 1, got %v", after-before)
	}
}

func TestMetrics_RecordInvite_EmptyOutcome(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.InvitesTotal.WithLabelValues("unknown"))
	DefaultMetrics.RecordInvite("", 0)
	after := testutil.ToFloat64(DefaultMetrics.InvitesTotal.WithLabelValues("unknown"))
	if after-before != 1 {
		t.Errorf("expected unknown counter to grow by 1, got %v", after-before)
	}
}

func TestMetrics_UpdateAccounts(t *testing.T) {
	DefaultMetrics.UpdateAccounts(3, 5)
	DefaultMetrics.UpdateAvailableAccounts(2)

	if got := testutil.ToFloat64(DefaultMetrics.TotalAccounts); got != 5 {
		t.Errorf("expected total accounts 5, got %v", got)
	}
	if got := testutil.ToFloat64(DefaultMetrics.AvailableAccounts); got != 2 {
		t.Errorf("expected available accounts 2, got %v", got)
	}
}

func TestMetrics_FilterAndRun(t *testing.T) {
	// These only verify that recording does not panic
	DefaultMetrics.RecordFilterLookup(false)
	DefaultMetrics.RecordFilterLookup(true)
	DefaultMetrics.RecordFilterFloodWait()
	DefaultMetrics.RecordFilterResult("active")
	DefaultMetrics.UpdateReadyQueueSize(7)
	DefaultMetrics.RecordMigration("completed", 120)
	DefaultMetrics.RecordRateLimit("flood_wait")
	DefaultMetrics.RecordAccountBlocked()
	DefaultMetrics.RecordKafkaMessage()
	DefaultMetrics.RecordKafkaError("")
}

func TestGetDefaultMetrics_Singleton(t *testing.T) {
	if GetDefaultMetrics() != GetDefaultMetrics() {
		t.Error("GetDefaultMetrics returned different instances")
	}
}
