package fees

import (
	"testing"

	"github.com/nyx-testnet/nyx-gateway/internal/settings"
)

func baseSettings() *settings.Settings {
	return &settings.Settings{
		FeeAddress:       "treasury",
		PlatformFeeBps:   50,
		ProtocolFeeFloor: 1,
	}
}

func TestRouteAppliesFloorWhenNoPlatformFee(t *testing.T) {
	cfg := baseSettings()
	cfg.PlatformFeeBps = 0
	q := Route(cfg, 1000)
	if q.PlatformFeeAmount != 0 {
		t.Fatalf("platform fee = %d, want 0", q.PlatformFeeAmount)
	}
	if q.TotalPaid != 1 {
		t.Fatalf("total paid = %d, want 1", q.TotalPaid)
	}
}

func TestRouteRoundsAndFloorsPlatformFeeAtOne(t *testing.T) {
	cfg := baseSettings()
	q := Route(cfg, 10)
	if q.PlatformFeeAmount != 1 {
		t.Fatalf("platform fee = %d, want 1 (floored)", q.PlatformFeeAmount)
	}
	if q.TotalPaid != q.ProtocolFeeTotal+q.PlatformFeeAmount {
		t.Fatalf("total paid = %d, want protocol+platform", q.TotalPaid)
	}
}

func TestRouteNeverReturnsZeroTotal(t *testing.T) {
	cfg := baseSettings()
	cfg.ProtocolFeeFloor = 0
	cfg.PlatformFeeBps = 0
	q := Route(cfg, 1)
	if q.TotalPaid < 1 {
		t.Fatalf("total paid = %d, want >= 1", q.TotalPaid)
	}
}
