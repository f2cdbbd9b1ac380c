package main

import (
	"testing"
	"time"
)

func TestParsePositiveIDs(t *testing.T) {
	ids, err := parsePositiveIDs([]string{"1", " 42 ", "7"})
	if err != nil {
		t.Fatalf("parsePositiveIDs: %v", err)
	}
	if len(ids) != 3 || ids[1] != 42 {
		t.Fatalf("unexpected ids: %v", ids)
	}

	for _, bad := range []string{"0", "-3", "abc", ""} {
		if _, err := parsePositiveIDs([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseWhen(t *testing.T) {
	if _, err := parseWhen("2026-09-01T10:00:00Z"); err != nil {
		t.Fatalf("RFC 3339: %v", err)
	}
	if _, err := parseWhen("2026-09-01 10:00"); err != nil {
		t.Fatalf("local layout: %v", err)
	}

	before := time.Now()
	got, err := parseWhen("+2h")
	if err != nil {
		t.Fatalf("relative: %v", err)
	}
	if got.Before(before.Add(time.Hour)) {
		t.Fatalf("expected +2h in the future, got %s", got)
	}

	for _, bad := range []string{"", "tomorrow", "+nope"} {
		if _, err := parseWhen(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatStatusLabel(t *testing.T) {
	cases := map[string]string{
		"pending_review": "Pending Review",
		"waiting":        "Waiting",
		"":               "",
	}
	for input, want := range cases {
		if got := formatStatusLabel(input); got != want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncate: %q", got)
	}
	if got := truncate("a long sentence about queues", 10); got != "a long ..." {
		t.Fatalf("unexpected truncate: %q", got)
	}
}
