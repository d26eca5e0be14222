package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSource_String(t *testing.T) {
	tests := []struct {
		source Source
		want   string
	}{
		{SourceLocal, "local"},
		{SourceOverview, "overview"},
		{SourceDetailView, "detail"},
		{Source(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.source.String(); got != tt.want {
			t.Errorf("Source(%d).String() = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestModRecord_RequiresUpdate(t *testing.T) {
	if !(ModRecord{Source: SourceOverview}).RequiresUpdate() {
		t.Error("overview record should require update")
	}
	if !(ModRecord{Source: SourceLocal}).RequiresUpdate() {
		t.Error("local record should require update")
	}
	if (ModRecord{Source: SourceDetailView}).RequiresUpdate() {
		t.Error("detail record should not require update")
	}
}

func TestModRecord_Tags(t *testing.T) {
	rec := ModRecord{Tags: []string{".scenario", "melee", ".objects", "openclonk-9"}}

	if !rec.IsScenario() {
		t.Error("expected scenario")
	}
	if !rec.IsObjectPackage() {
		t.Error("expected object package")
	}
	free := rec.FreeTags()
	if len(free) != 2 || free[0] != "melee" || free[1] != "openclonk-9" {
		t.Errorf("FreeTags() = %v", free)
	}
}

func TestModRecord_TotalSize(t *testing.T) {
	rec := ModRecord{Files: []FileEntry{
		{Name: "a.ocd", Size: 100},
		{Name: "b.ocs", Size: 250},
	}}

	if got := rec.TotalSize(); got != 350 {
		t.Errorf("TotalSize() = %d, want 350", got)
	}
	names := rec.FileNames()
	if len(names) != 2 || names[0] != "a.ocd" || names[1] != "b.ocs" {
		t.Errorf("FileNames() = %v", names)
	}
}

func TestModRecord_Clone(t *testing.T) {
	rec := ModRecord{
		ID:           "1",
		Tags:         []string{"melee"},
		Dependencies: []string{"7"},
		Files:        []FileEntry{{Name: "a.ocd"}},
		Metadata:     []byte("<id>1</id>"),
	}

	c := rec.Clone()
	c.Tags[0] = "changed"
	c.Dependencies[0] = "changed"
	c.Files[0].Name = "changed"
	c.Metadata[0] = 'X'

	if rec.Tags[0] != "melee" || rec.Dependencies[0] != "7" || rec.Files[0].Name != "a.ocd" || rec.Metadata[0] != '<' {
		t.Errorf("Clone() shares memory with the original: %+v", rec)
	}
}

func TestModRecord_DisplayFallbacks(t *testing.T) {
	rec := ModRecord{ID: "42", UpdatedAt: "2024-03-01T12:00:00Z"}

	if got := rec.DisplayName(); got != "42" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := rec.DisplayAuthor(); got != "???" {
		t.Errorf("DisplayAuthor() = %q", got)
	}
	if got := rec.UpdatedDate(); got != "2024-03-01" {
		t.Errorf("UpdatedDate() = %q", got)
	}
	if got := (ModRecord{UpdatedAt: "yesterday"}).UpdatedDate(); got != "/" {
		t.Errorf("UpdatedDate() = %q, want /", got)
	}
}

func TestTruncateDescription(t *testing.T) {
	short := "A short description"
	if got := TruncateDescription(short); got != short {
		t.Errorf("short description changed: %q", got)
	}

	exact := strings.Repeat("a", MaxDescriptionLength)
	if got := TruncateDescription(exact); got != exact {
		t.Error("description of exactly the limit should be kept")
	}

	long := strings.Repeat("b", 200)
	if got := TruncateDescription(long); len(got) != MaxDescriptionLength {
		t.Errorf("len = %d, want %d", len(got), MaxDescriptionLength)
	}
}

func TestTruncateDescription_MultiByte(t *testing.T) {
	// 149 ASCII characters followed by two 4-byte characters: 157 bytes, 151 characters
	s := strings.Repeat("x", 149) + "😀😀"

	got := TruncateDescription(s)

	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != MaxDescriptionLength {
		t.Errorf("rune count = %d, want %d", n, MaxDescriptionLength)
	}
	if !strings.HasSuffix(got, "😀") {
		t.Errorf("expected the first emoji to be kept, got suffix %q", got[len(got)-4:])
	}
}

func TestTruncateDescription_LongBytesFewCharacters(t *testing.T) {
	// More than 150 bytes but fewer than 150 characters stays untouched
	s := strings.Repeat("ä", 100)
	if got := TruncateDescription(s); got != s {
		t.Error("description with fewer characters than the limit was cut")
	}
}

func TestNothingToDoError(t *testing.T) {
	installed := &NothingToDoError{AlreadyInstalled: true}
	noData := &NothingToDoError{Details: []string{"mod 12: transport failure"}}

	if !errors.Is(installed, ErrNothingToDo) {
		t.Error("expected errors.Is to match ErrNothingToDo")
	}
	if !errors.Is(fmt.Errorf("run: %w", noData), ErrNothingToDo) {
		t.Error("expected wrapped error to match ErrNothingToDo")
	}
	if !strings.Contains(installed.Error(), "already installed") {
		t.Errorf("unexpected message %q", installed.Error())
	}
	if !strings.Contains(noData.Error(), "no data available") || !strings.Contains(noData.Error(), "mod 12") {
		t.Errorf("unexpected message %q", noData.Error())
	}
}
