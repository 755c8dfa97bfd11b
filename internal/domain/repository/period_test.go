package repository

import "testing"

func TestNormalizePeriod(t *testing.T) {
	cases := map[string]Period{
		"":      PeriodDay,
		"day":   PeriodDay,
		"week":  PeriodWeek,
		"month": PeriodMonth,
		"m5":    PeriodDay,
		"DAY":   PeriodDay,
	}
	for in, want := range cases {
		if got := NormalizePeriod(in); got != want {
			t.Errorf("NormalizePeriod(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClampCount(t *testing.T) {
	for _, tc := range []struct{ in, want int }{
		{0, 100}, {-3, 100}, {1, 1}, {640, 640}, {641, 640},
	} {
		if got := ClampCount(tc.in); got != tc.want {
			t.Errorf("ClampCount(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
