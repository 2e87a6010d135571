package vectorstore

import "testing"

func TestBuildFilterExpression(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"nil filter", nil, ""},
		{"empty filter", Filter{}, ""},
		{"single field", Filter{"user_id": "user-1"}, `user_id == "user-1"`},
		{
			"multiple fields sorted by key",
			Filter{"user_id": "user-1", "type": "general"},
			`type == "general" and user_id == "user-1"`,
		},
		{
			"value with quotes escaped",
			Filter{"user_id": `u"1`},
			`user_id == "u\"1"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildFilterExpression(tc.filter); got != tc.want {
				t.Errorf("buildFilterExpression(%v) = %q, want %q", tc.filter, got, tc.want)
			}
		})
	}
}
