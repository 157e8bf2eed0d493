package diag

import (
	"testing"

	"wirec/internal/source"
)

func TestBagLimitAndErrors(t *testing.T) {
	bag := NewBag(2)
	r := BagReporter{Bag: bag}

	ReportWarning(r, SemInfo, source.Span{}, "first").Emit()
	if bag.HasErrors() {
		t.Fatal("warning counted as error")
	}
	ReportError(r, SemUnresolvedSymbol, source.Span{Start: 3, End: 4}, "second").Emit()
	ReportError(r, SemUnresolvedSymbol, source.Span{Start: 5, End: 6}, "dropped").Emit()

	if bag.Len() != 2 {
		t.Fatalf("expected limit 2, got %d", bag.Len())
	}
	if !bag.HasErrors() {
		t.Fatal("expected errors")
	}
}

func TestEmitOnce(t *testing.T) {
	bag := NewBag(10)
	b := ReportError(BagReporter{Bag: bag}, LayDuplicateMember, source.Span{}, "dup").
		WithNote(source.Span{Start: 1, End: 2}, "previous member here")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
	if len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("note lost: %+v", bag.Items()[0])
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	for range 3 {
		r.Report(SemArityMismatch, SevError, source.Span{Start: 1, End: 2}, "arity", nil)
	}
	r.Report(SemArityMismatch, SevError, source.Span{Start: 4, End: 5}, "arity", nil)
	if bag.Len() != 2 {
		t.Fatalf("expected 2 unique diagnostics, got %d", bag.Len())
	}
}

func TestSortAndFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("s.yaml", []byte("ab\ncd\n"))
	bag := NewBag(10)
	bag.Add(NewError(CodUnknownEnum, source.Span{File: id, Start: 3, End: 4}, "later"))
	bag.Add(New(SevWarning, SemInfo, source.Span{File: id, Start: 0, End: 1}, "first\nline"))
	bag.Sort()

	want := "warning SEM3000 s.yaml:1:1 first line\nerror COD5001 s.yaml:2:1 later"
	if got := bag.FormatShort(fs); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestCodeIDs(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{SchSyntax, "SCH1001"},
		{PrjManifestInvalid, "PRJ2001"},
		{SemArityMismatch, "SEM3003"},
		{LayArrayElementNotReg, "LAY4002"},
		{CodUnionActive, "COD5002"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("%d: got %s, want %s", tt.code, got, tt.want)
		}
	}
	if CodUnionActive.Title() != "Union must have exactly one active member" {
		t.Errorf("unexpected title %q", CodUnionActive.Title())
	}
}
