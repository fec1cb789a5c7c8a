package ads

import "testing"

func TestImpressionRank(t *testing.T) {
	tests := []struct {
		impressions string
		want        int
	}{
		{">1M", 5},
		{"1M+", 5},
		{">100K", 4},
		{">10K", 3},
		{">1K", 2},
		{"1000-5000", 2},
		{"<100", 0},
		{"", 1},
		{"unknown", 1},
	}

	for _, tt := range tests {
		if got := ImpressionRank(tt.impressions); got != tt.want {
			t.Errorf("ImpressionRank(%q) = %d, want %d", tt.impressions, got, tt.want)
		}
	}
}

func TestImpressionRankOrdersBuckets(t *testing.T) {
	buckets := []string{"<100", "", ">1K", ">10K", ">100K", ">1M"}
	for i := 1; i < len(buckets); i++ {
		if ImpressionRank(buckets[i-1]) >= ImpressionRank(buckets[i]) {
			t.Errorf("expected %q to rank below %q", buckets[i-1], buckets[i])
		}
	}
}
