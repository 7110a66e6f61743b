package search

import (
	"fmt"
	"strings"
	"testing"
)

func TestFormat_Empty(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestFormat_TruncatesToThree(t *testing.T) {
	var results []Result
	for i := 1; i <= 5; i++ {
		results = append(results, Result{
			Title:       fmt.Sprintf("T%d", i),
			Description: fmt.Sprintf("D%d", i),
			URL:         fmt.Sprintf("https://%d.example", i),
		})
	}
	want := "1. T1\n   D1\n   https://1.example\n\n" +
		"2. T2\n   D2\n   https://2.example\n\n" +
		"3. T3\n   D3\n   https://3.example\n\n" +
		"...and 2 more results."
	if got := Format(results); got != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormat_OmitsEmptyDescription(t *testing.T) {
	got := Format([]Result{{Title: "Cats", URL: "https://a.example"}})
	want := "1. Cats\n   https://a.example\n\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormat_ExactlyThreeHasNoNote(t *testing.T) {
	results := []Result{
		{Title: "A", URL: "https://a.example"},
		{Title: "B", URL: "https://b.example"},
		{Title: "C", URL: "https://c.example"},
	}
	if got := Format(results); strings.Contains(got, "more results") {
		t.Fatalf("unexpected trailing note: %q", got)
	}
}
