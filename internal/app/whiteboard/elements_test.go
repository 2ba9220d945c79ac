package whiteboard

import (
	"fmt"
	"testing"

	"github.com/dkeye/Seminar/internal/domain"
)

func el(id string) domain.DrawingElement {
	return domain.DrawingElement{ID: domain.ElementID(id), Tool: domain.ToolPen, Points: []domain.Point{{X: 1, Y: 1}}}
}

func TestElementsAppendAcrossLevels(t *testing.T) {
	var v Elements
	versions := make([]Elements, 0, 1200)
	for i := 0; i < 1200; i++ {
		v = v.Append(el(fmt.Sprint(i)))
		versions = append(versions, v)
	}
	if v.Len() != 1200 {
		t.Fatalf("len = %d", v.Len())
	}
	for i := 0; i < 1200; i++ {
		if got := v.At(i).ID; got != domain.ElementID(fmt.Sprint(i)) {
			t.Fatalf("At(%d) = %s", i, got)
		}
	}
	// Old versions are untouched snapshots.
	old := versions[40]
	if old.Len() != 41 || old.At(40).ID != "40" {
		t.Fatalf("snapshot changed: len=%d", old.Len())
	}
	if len(v.Slice()) != 1200 {
		t.Fatal("slice length mismatch")
	}
}

func TestElementsSetIsPersistent(t *testing.T) {
	v := NewElements([]domain.DrawingElement{el("a"), el("b"), el("c")})
	for i := 0; i < 100; i++ {
		v = v.Append(el(fmt.Sprint("x", i)))
	}
	changed := v.Set(1, el("B"))
	if v.At(1).ID != "b" {
		t.Fatal("original mutated by Set")
	}
	if changed.At(1).ID != "B" {
		t.Fatal("Set not applied")
	}
	tailChanged := v.Set(v.Len()-1, el("last"))
	if v.At(v.Len()-1).ID == "last" || tailChanged.At(v.Len()-1).ID != "last" {
		t.Fatal("tail Set leaked into original")
	}
	if changed.Same(v) {
		t.Fatal("versions must differ")
	}
}

func TestElementsRemoveInsertUpsert(t *testing.T) {
	v := NewElements([]domain.DrawingElement{el("a"), el("b"), el("c")})

	r, ok := v.Remove("b")
	if !ok || r.Len() != 2 || r.At(1).ID != "c" {
		t.Fatalf("remove failed: %v %d", ok, r.Len())
	}
	if _, ok := r.Remove("zzz"); ok {
		t.Fatal("removing unknown id must report false")
	}

	ins := r.Insert(1, el("b"))
	if ins.Index("b") != 1 || ins.Len() != 3 {
		t.Fatalf("insert position = %d", ins.Index("b"))
	}
	if got := r.Insert(99, el("z")).Index("z"); got != 2 {
		t.Fatalf("insert clamp = %d", got)
	}

	up := v.Upsert(domain.DrawingElement{ID: "a", Tool: domain.ToolLine, Points: []domain.Point{{}}})
	if up.Len() != 3 || up.At(0).Tool != domain.ToolLine {
		t.Fatal("upsert must replace in place")
	}
	if v.Upsert(el("d")).Index("d") != 3 {
		t.Fatal("upsert must append unknown ids")
	}
}

func TestElementsZeroValue(t *testing.T) {
	var v Elements
	if v.Len() != 0 || len(v.Slice()) != 0 || v.Index("a") != -1 {
		t.Fatal("zero value must be empty")
	}
	if _, ok := v.Find("a"); ok {
		t.Fatal("find on empty list")
	}
}

func TestElementsSameTracksVersions(t *testing.T) {
	v := NewElements([]domain.DrawingElement{el("a"), el("b")})
	if !v.Same(v) {
		t.Fatal("a list must be the same version as itself")
	}
	tests := []struct {
		name string
		next Elements
	}{
		{"append", v.Append(el("c"))},
		{"set", v.Set(0, el("A"))},
		{"insert", v.Insert(0, el("z"))},
		{"rebuilt with equal content", NewElements([]domain.DrawingElement{el("a"), el("b")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.next.Same(v) || v.Same(tt.next) {
				t.Fatal("new version reported as the same")
			}
		})
	}
	if !NewElements(nil).Same(Elements{}) {
		t.Fatal("empty lists differ")
	}
}

func TestElementsReadsDoNotAlias(t *testing.T) {
	v := NewElements([]domain.DrawingElement{el("a")})

	got := v.Slice()
	got[0].Points[0] = domain.Point{X: -1}
	at := v.At(0)
	at.Points[0] = domain.Point{X: -2}
	found, _ := v.Find("a")
	found.Points[0] = domain.Point{X: -3}

	if p := v.At(0).Points[0]; p != (domain.Point{X: 1, Y: 1}) {
		t.Fatalf("stored point changed to %+v", p)
	}
}
