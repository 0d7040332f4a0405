package cli

import "testing"

// TestParseMaxItems verifies N, all and the keep-current default.
func TestParseMaxItems(t *testing.T) {
	three := 3
	cases := []struct {
		value   string
		current *int
		want    *int
		wantErr bool
	}{
		{value: "", current: &three, want: &three},
		{value: "all", current: &three, want: nil},
		{value: "ALL", current: nil, want: nil},
		{value: "0", current: nil, want: intPtr(0)},
		{value: "12", current: &three, want: intPtr(12)},
		{value: "-1", wantErr: true},
		{value: "many", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseMaxItems(tc.value, tc.current)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.value)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.value, err)
		}
		if (got == nil) != (tc.want == nil) || (got != nil && *got != *tc.want) {
			t.Fatalf("%q: got %v, want %v", tc.value, deref(got), deref(tc.want))
		}
	}
}

func intPtr(v int) *int { return &v }

func deref(v *int) any {
	if v == nil {
		return "all"
	}
	return *v
}
