package markers

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"surface-tracker/internal/cachelist"
)

func square(id int, x, y, side, confidence float64) Marker {
	verts := [4]Point{Pt(x, y), Pt(x+side, y), Pt(x+side, y+side), Pt(x, y+side)}
	return Marker{ID: id, IDConfidence: confidence, Verts: verts, Perimeter: Perimeter(verts)}
}

func TestPerimeter(t *testing.T) {
	m := square(1, 10, 10, 25, 1)
	if math.Abs(m.Perimeter-100) > 1e-9 {
		t.Errorf("Expected perimeter 100, got %v", m.Perimeter)
	}
}

func TestRemoveDuplicatesKeepsLargest(t *testing.T) {
	small := square(7, 0, 0, 10, 1)
	large := square(7, 100, 100, 40, 1)
	other := square(3, 50, 50, 20, 1)

	got := RemoveDuplicates([]Marker{small, other, large})
	want := []Marker{large, other}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RemoveDuplicates mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveDuplicatesDoesNotModifyInput(t *testing.T) {
	in := []Marker{square(1, 0, 0, 10, 1), square(1, 0, 0, 20, 1)}
	before := append([]Marker(nil), in...)

	_ = RemoveDuplicates(in)

	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input was modified (-want +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	tiny := square(1, 0, 0, 5, 1)      // perimeter 20
	edge := square(2, 0, 0, 15, 1)     // perimeter 60
	big := square(3, 0, 0, 30, 1)      // perimeter 120
	unsure := square(4, 0, 0, 30, 0.0) // confidence at threshold

	tests := []struct {
		name          string
		minPerimeter  float64
		minConfidence float64
		want          []Marker
	}{
		{name: "cache floor keeps all confident", minPerimeter: CacheMinPerimeter, minConfidence: 0, want: []Marker{tiny, edge, big}},
		{name: "perimeter bound is inclusive", minPerimeter: 60, minConfidence: 0, want: []Marker{edge, big}},
		{name: "confidence bound is exclusive", minPerimeter: 0, minConfidence: -1, want: []Marker{tiny, edge, big, unsure}},
		{name: "nothing passes", minPerimeter: 1000, minConfidence: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter([]Marker{tiny, edge, big, unsure}, tt.minPerimeter, tt.minConfidence)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterSlot(t *testing.T) {
	small := square(1, 0, 0, 10, 1)
	big := square(2, 0, 0, 30, 1)

	if s := FilterSlot(cachelist.Unknown[[]Marker](), 60, 0); s.Known() {
		t.Errorf("Unknown must stay unknown, got %v", s)
	}
	if s := FilterSlot(cachelist.Empty[[]Marker](), 60, 0); s.State() != cachelist.StateEmpty {
		t.Errorf("Empty must stay empty, got %v", s)
	}
	if s := FilterSlot(Slot([]Marker{small}), 60, 0); s.State() != cachelist.StateEmpty {
		t.Errorf("Expected all-filtered slot to become empty, got %v", s)
	}

	s := FilterSlot(Slot([]Marker{small, big}), 60, 0)
	got, ok := s.Get()
	if !ok {
		t.Fatalf("Expected a value slot, got %v", s)
	}
	if diff := cmp.Diff([]Marker{big}, got); diff != "" {
		t.Errorf("filtered markers mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterSlotIsIdempotent(t *testing.T) {
	slots := []cachelist.Slot[[]Marker]{
		Slot([]Marker{square(1, 0, 0, 10, 1), square(2, 0, 0, 30, 1)}),
		cachelist.Empty[[]Marker](),
		cachelist.Unknown[[]Marker](),
		Slot([]Marker{square(3, 0, 0, 12, 1)}),
	}

	once := make([]cachelist.Slot[[]Marker], len(slots))
	twice := make([]cachelist.Slot[[]Marker], len(slots))
	for i, s := range slots {
		once[i] = FilterSlot(s, 60, 0)
		twice[i] = FilterSlot(s, 60, 0)
	}

	for i := range slots {
		a, _ := once[i].Get()
		b, _ := twice[i].Get()
		if once[i].State() != twice[i].State() {
			t.Errorf("slot %d: state %v vs %v", i, once[i].State(), twice[i].State())
		}
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("slot %d differs (-first +second):\n%s", i, diff)
		}
	}
}

func TestNewCacheUsesHasMarkers(t *testing.T) {
	c := NewCache(3)
	if err := c.Update(0, Slot([]Marker{square(1, 0, 0, 10, 1)})); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := c.Update(1, Slot(nil)); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if diff := cmp.Diff([]cachelist.Range{{Start: 0, End: 1}}, c.PositiveRanges()); diff != "" {
		t.Errorf("positive ranges mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]cachelist.Range{{Start: 0, End: 2}}, c.VisitedRanges()); diff != "" {
		t.Errorf("visited ranges mismatch (-want +got):\n%s", diff)
	}
}
