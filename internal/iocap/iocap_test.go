package iocap

import (
	"strings"
	"testing"
)

func TestPrefixSuffixSaverUnderCapacityKeepsEverything(t *testing.T) {
	w := &PrefixSuffixSaver{N: 100}
	if _, err := w.Write([]byte("short message")); err != nil {
		t.Fatal(err)
	}
	if got := string(w.Bytes()); got != "short message" {
		t.Fatalf("got %q", got)
	}
}

func TestPrefixSuffixSaverOverCapacityKeepsPrefixAndSuffix(t *testing.T) {
	w := &PrefixSuffixSaver{N: 10}
	body := strings.Repeat("a", 10) + strings.Repeat("b", 1000) + strings.Repeat("c", 10)
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}

	got := string(w.Bytes())
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Fatalf("missing prefix: %q", got)
	}
	if !strings.HasSuffix(got, strings.Repeat("c", 10)) {
		t.Fatalf("missing suffix: %q", got)
	}
	if !strings.Contains(got, "omitting") {
		t.Fatalf("expected an omission marker: %q", got)
	}
}

func TestPrefixSuffixSaverMultipleWrites(t *testing.T) {
	w := &PrefixSuffixSaver{N: 5}
	for _, chunk := range []string{"ab", "cd", "ef", "gh", "ij"} {
		if _, err := w.Write([]byte(chunk)); err != nil {
			t.Fatal(err)
		}
	}
	got := string(w.Bytes())
	if !strings.HasPrefix(got, "abcde") {
		t.Fatalf("got %q", got)
	}
	if !strings.HasSuffix(got, "fghij") {
		t.Fatalf("got %q", got)
	}
}
