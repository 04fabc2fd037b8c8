package store

import "testing"

func TestValidChargeStatus(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{"pending", true},
		{"paid", true},
		{"refunded", true},
		{"", false},
		{"Pending", false},
		{"cancelled", false},
		{"unpaid", false},
	}

	for _, tc := range cases {
		if got := ValidChargeStatus(tc.status); got != tc.want {
			t.Fatalf("ValidChargeStatus(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
