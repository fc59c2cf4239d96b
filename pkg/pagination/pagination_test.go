package pagination

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"limit=50&offset=10", 50, 10},
		{"limit=500", MaxLimit, 0},
		{"limit=-3", DefaultLimit, 0},
		{"offset=-5", DefaultLimit, 0},
		{"limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/appointments?"+tt.query, nil), httptest.NewRecorder())

		p := FromContext(c)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%q: got limit=%d offset=%d, want limit=%d offset=%d",
				tt.query, p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestNewResponse(t *testing.T) {
	data := []string{"a", "b", "c"}
	r := NewResponse(data, 10, 3, 0)

	if r.Total != 10 {
		t.Errorf("expected total 10, got %d", r.Total)
	}
	if !r.HasMore {
		t.Error("expected has_more to be true when offset+limit < total")
	}

	r2 := NewResponse(data, 3, 3, 0)
	if r2.HasMore {
		t.Error("expected has_more to be false when offset+limit >= total")
	}
}

func TestParams_HasNext(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   bool
	}{
		{"more results", Params{Limit: 10, Offset: 0}, 25, true},
		{"exact end", Params{Limit: 10, Offset: 15}, 25, false},
		{"past end", Params{Limit: 10, Offset: 30}, 25, false},
		{"no results", Params{Limit: 10, Offset: 0}, 0, false},
		{"last partial page", Params{Limit: 10, Offset: 20}, 25, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.HasNext(tt.total); got != tt.want {
				t.Errorf("HasNext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParams_HasPrevious(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   bool
	}{
		{"first page", Params{Limit: 10, Offset: 0}, false},
		{"second page", Params{Limit: 10, Offset: 10}, true},
		{"middle", Params{Limit: 10, Offset: 25}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.HasPrevious(); got != tt.want {
				t.Errorf("HasPrevious() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParams_NextOffset(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if got := p.NextOffset(); got != 15 {
		t.Errorf("NextOffset() = %d, want 15", got)
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   int
	}{
		{"normal", Params{Limit: 10, Offset: 20}, 10},
		{"clamp to zero", Params{Limit: 10, Offset: 5}, 0},
		{"exact", Params{Limit: 10, Offset: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.PreviousOffset(); got != tt.want {
				t.Errorf("PreviousOffset() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParams_Links_FirstPage(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	links := p.Links("/api/v1/appointments", url.Values{"doctor_id": {"d1"}}, 25)

	if !strings.Contains(links.Self, "offset=0") || !strings.Contains(links.Self, "doctor_id=d1") {
		t.Errorf("unexpected self link %q", links.Self)
	}
	if !strings.Contains(links.Next, "offset=10") {
		t.Errorf("expected next link at offset 10, got %q", links.Next)
	}
	if links.Previous != "" {
		t.Errorf("expected no previous link, got %q", links.Previous)
	}
}

func TestParams_Links_LastPage(t *testing.T) {
	p := Params{Limit: 10, Offset: 20}
	links := p.Links("/api/v1/appointments", nil, 25)

	if links.Next != "" {
		t.Errorf("expected no next link, got %q", links.Next)
	}
	if !strings.Contains(links.Previous, "offset=10") {
		t.Errorf("expected previous link at offset 10, got %q", links.Previous)
	}
}

func TestParams_Links_OverridesPagingParams(t *testing.T) {
	p := Params{Limit: 5, Offset: 5}
	links := p.Links("/x", url.Values{"limit": {"99"}, "offset": {"99"}}, 100)

	q, err := url.ParseQuery(strings.TrimPrefix(links.Next, "/x?"))
	if err != nil {
		t.Fatalf("parse next link: %v", err)
	}
	if q.Get("limit") != "5" || q.Get("offset") != "10" {
		t.Errorf("unexpected paging params %v", q)
	}
}

func TestResponse_WithLinks(t *testing.T) {
	u, _ := url.Parse("/api/v1/prescriptions?status=active&limit=2&offset=0")
	r := NewResponse([]int{1, 2}, 3, 2, 0).WithLinks(u)

	if r.Links == nil || r.Links.Next == "" {
		t.Fatal("expected next link")
	}
	if !strings.Contains(r.Links.Next, "status=active") {
		t.Errorf("expected filter preserved, got %q", r.Links.Next)
	}
}
