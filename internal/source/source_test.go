package source

import (
	"errors"
	"strings"
	"testing"
)

func TestLines(t *testing.T) {
	var got []string
	err := Lines(strings.NewReader("one\ntwo\n\nthree"), 1024, func(line []byte) error {
		got = append(got, string(line))
		return nil
	})
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}

	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestLines_StopsOnCallbackError(t *testing.T) {
	boom := errors.New("flush failed")
	calls := 0
	err := Lines(strings.NewReader("one\ntwo\nthree\n"), 1024, func(line []byte) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected reading to stop after the error, got %d calls", calls)
	}
}

func TestLines_OversizedLine(t *testing.T) {
	long := strings.Repeat("a", 100)
	err := Lines(strings.NewReader(long+"\n"), 10, func([]byte) error { return nil })
	if err == nil {
		t.Fatal("expected an error for a line above the limit")
	}
}

func TestLines_EmptyInput(t *testing.T) {
	calls := 0
	err := Lines(strings.NewReader(""), 1024, func([]byte) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no callbacks for empty input, got %d", calls)
	}
}
