package models

import "testing"

func TestPageParamsNormalize(t *testing.T) {
	cases := []struct {
		name     string
		in, want PageParams
	}{
		{"defaults", PageParams{}, PageParams{Page: 1, PageSize: DefaultPageSize}},
		{"negative page", PageParams{Page: -3, PageSize: 10}, PageParams{Page: 1, PageSize: 10}},
		{"oversized page size", PageParams{Page: 2, PageSize: 500}, PageParams{Page: 2, PageSize: MaxPageSize}},
		{"already valid", PageParams{Page: 3, PageSize: 25}, PageParams{Page: 3, PageSize: 25}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestPageParamsOffset(t *testing.T) {
	p := PageParams{Page: 3, PageSize: 20}
	if got := p.Offset(); got != 40 {
		t.Fatalf("got offset %d, want 40", got)
	}
}

func TestNewPageMeta(t *testing.T) {
	meta := NewPageMeta(PageParams{Page: 2, PageSize: 20}, 45)
	if meta.TotalPages != 3 {
		t.Fatalf("got %d total pages, want 3", meta.TotalPages)
	}
	if !meta.HasNext || !meta.HasPrev {
		t.Fatalf("expected both neighbors, got %+v", meta)
	}

	last := NewPageMeta(PageParams{Page: 3, PageSize: 20}, 45)
	if last.HasNext {
		t.Fatal("last page must not report a next page")
	}

	empty := NewPageMeta(PageParams{Page: 1, PageSize: 20}, 0)
	if empty.TotalPages != 0 || empty.HasNext || empty.HasPrev {
		t.Fatalf("unexpected meta for empty result: %+v", empty)
	}
}
