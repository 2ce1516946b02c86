package policy

import "testing"

func TestMinRatio_LoyaltyTiers(t *testing.T) {
	tests := []struct {
		name   string
		points int64
		want   float64
	}{
		{"no points", 0, 0.9},
		{"below first tier", 99, 0.9},
		{"tier 100", 100, 0.8},
		{"tier 500", 500, 0.7},
		{"tier 1000", 1000, 0.6},
		{"tier 2500", 2500, 0.5},
		{"above top tier", 10000, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MinRatio(0, Eligibility{LoyaltyPoints: tt.points})
			if got != tt.want {
				t.Errorf("MinRatio(points=%d) = %v, want %v", tt.points, got, tt.want)
			}
		})
	}
}

func TestMinRatio_ProductOverrideOnlyLowers(t *testing.T) {
	// A product ratio below the tier floor must survive: tiers only lower, never raise.
	got := MinRatio(0.55, Eligibility{LoyaltyPoints: 600}) // tier would give 0.7
	if got != 0.55 {
		t.Errorf("MinRatio = %v, want 0.55 (product override kept)", got)
	}
	// A product ratio above the tier floor is lowered by the tier.
	got = MinRatio(0.95, Eligibility{LoyaltyPoints: 2500})
	if got != 0.5 {
		t.Errorf("MinRatio = %v, want 0.5 (tier lowers product ratio)", got)
	}
}

func TestMinRatio_RepaymentPenaltyOverridesLoyalty(t *testing.T) {
	got := MinRatio(0, Eligibility{LoyaltyPoints: 2500, RecentFailedRepayment: true})
	if got != 0.95 {
		t.Errorf("MinRatio = %v, want 0.95 (risk penalty wins)", got)
	}
}

func TestMinAllowed_ScenarioA(t *testing.T) {
	// base 3000, tier 1000 points -> ratio 0.6, floorByRatio 1800,
	// floorByAbsolute 2500 -> absolute cap dominates.
	got := MinAllowed(3000, 0, Eligibility{LoyaltyPoints: 1200}, 500)
	if got != 2500 {
		t.Errorf("MinAllowed = %d, want 2500", got)
	}
}

func TestMinAllowed_ScenarioB(t *testing.T) {
	// Same as A but with a recent failed repayment: ratio max(0.6, 0.95)=0.95,
	// floorByRatio 2850 beats the 2500 absolute floor.
	got := MinAllowed(3000, 0, Eligibility{LoyaltyPoints: 1200, RecentFailedRepayment: true}, 500)
	if got != 2850 {
		t.Errorf("MinAllowed = %d, want 2850", got)
	}
}

func TestMinAllowed_FloorMonotonicity(t *testing.T) {
	// P1: more points never raises the floor (absent a repayment failure).
	points := []int64{0, 99, 100, 499, 500, 999, 1000, 2499, 2500, 9999}
	prev := int64(-1)
	for i := len(points) - 1; i >= 0; i-- {
		got := MinAllowed(10000, 0, Eligibility{LoyaltyPoints: points[i]}, 9000)
		if prev >= 0 && got > prev {
			t.Fatalf("floor increased from %d to %d when points dropped to %d", prev, got, points[i])
		}
		prev = got
	}
}

func TestMinAllowed_RepaymentFloorRegardlessOfTier(t *testing.T) {
	// P1 second half: with a failed repayment the floor never drops below round(base*0.95).
	for _, points := range []int64{0, 100, 500, 1000, 2500} {
		got := MinAllowed(3000, 0, Eligibility{LoyaltyPoints: points, RecentFailedRepayment: true}, 100000)
		if got < 2850 {
			t.Errorf("points=%d: MinAllowed = %d, want >= 2850", points, got)
		}
	}
}

func TestMinAllowed_AbsoluteCapDominance(t *testing.T) {
	// P2: whenever the ratio floor is below base-maxDiscount, the absolute floor wins.
	got := MinAllowed(100000, 0, Eligibility{LoyaltyPoints: 2500}, 500)
	if got != 99500 {
		t.Errorf("MinAllowed = %d, want 99500 (absolute cap)", got)
	}
}

func TestMinAllowed_AbsoluteFloorClampedAtZero(t *testing.T) {
	got := MinAllowed(300, 0, Eligibility{LoyaltyPoints: 2500}, 500)
	if got != 150 {
		t.Errorf("MinAllowed = %d, want 150 (ratio floor, absolute clamped to 0)", got)
	}
}

func TestMinAllowed_Rounding(t *testing.T) {
	// 333 * 0.5 = 166.5 rounds half away from zero to 167.
	got := MinAllowed(333, 0, Eligibility{LoyaltyPoints: 2500}, 100000)
	if got != 167 {
		t.Errorf("MinAllowed = %d, want 167", got)
	}
}
