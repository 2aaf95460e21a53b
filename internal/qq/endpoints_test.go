package qq

import "testing"

func TestEndpointBuild(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		params []string
		want   string
	}{
		{"no params", "http://h/x?a={1}", nil, "http://h/x?a={1}"},
		{"in order", "http://h/x?a={1}&b={2}", []string{"one", "two"}, "http://h/x?a=one&b=two"},
		{"repeated", "{1}/{1}", []string{"p"}, "p/p"},
		{"placeholder in value", "http://h/x?a={1}&b={2}", []string{"{2}", "two"}, "http://h/x?a={2}&b=two"},
		{"double digits", "{1}-{10}", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}, "a-j"},
		{"missing param", "{1}&{2}", []string{"a"}, "a&{2}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Endpoint{URL: tt.url}).Build(tt.params...); got != tt.want {
				t.Errorf("Build(%q) = %q, want %q", tt.params, got, tt.want)
			}
		})
	}
}
