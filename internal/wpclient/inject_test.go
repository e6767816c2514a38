package wpclient

import (
	"strings"
	"testing"
)

func TestInjectLinkFirstOccurrence(t *testing.T) {
	html := "<p>Try our driveway service. A driveway service lasts decades.</p>"
	got, ok := InjectLink(html, "driveway service", "/driveway-pavers/")
	if !ok {
		t.Fatal("expected injection to succeed")
	}
	want := `<p>Try our <a href="/driveway-pavers/">driveway service</a>. A driveway service lasts decades.</p>`
	if got != want {
		t.Errorf("unexpected result:\n got %q\nwant %q", got, want)
	}
}

func TestInjectLinkPreservesCasing(t *testing.T) {
	html := "<p>Driveway Service for your home.</p>"
	got, ok := InjectLink(html, "driveway service", "/d/")
	if !ok {
		t.Fatal("expected injection to succeed")
	}
	if !strings.Contains(got, `<a href="/d/">Driveway Service</a>`) {
		t.Errorf("expected original casing kept, got %q", got)
	}
}

func TestInjectLinkNonASCIICaseKeepsOffsets(t *testing.T) {
	// U+212A (KELVIN SIGN) lowercases to a shorter byte sequence, so offsets
	// must come from the original markup, never from a case-folded copy. The
	// length-changing variant is skipped and the plain occurrence linked.
	html := "<p>\u212Aelvin service ratings and kelvin service ratings.</p>"
	got, ok := InjectLink(html, "kelvin service", "/k/")
	if !ok {
		t.Fatal("expected the plain occurrence to be linked")
	}
	if !strings.HasPrefix(got, "<p>\u212Aelvin service ratings and ") {
		t.Errorf("markup before the link must be untouched, got %q", got)
	}
	if !strings.Contains(got, `and <a href="/k/">kelvin service</a> ratings.`) {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestInjectLinkSkipsExistingLinks(t *testing.T) {
	html := `<p><a href="/old/">driveway service</a> and later driveway service again.</p>`
	got, ok := InjectLink(html, "driveway service", "/new/")
	if !ok {
		t.Fatal("expected second occurrence to be linked")
	}
	if !strings.Contains(got, `<a href="/old/">driveway service</a> and later <a href="/new/">driveway service</a> again.`) {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestInjectLinkAllOccurrencesTaken(t *testing.T) {
	html := `<p><a href="/old/">driveway service</a> only.</p>`
	if _, ok := InjectLink(html, "driveway service", "/new/"); ok {
		t.Error("expected no free occurrence")
	}
}

func TestInjectLinkSkipsAttributeMatches(t *testing.T) {
	html := `<img alt="driveway service"> plain driveway service text`
	got, ok := InjectLink(html, "driveway service", "/d/")
	if !ok {
		t.Fatal("expected text occurrence to be linked")
	}
	if !strings.Contains(got, `<img alt="driveway service"> plain <a href="/d/">driveway service</a> text`) {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestInjectLinkMissingAnchor(t *testing.T) {
	if _, ok := InjectLink("<p>nothing relevant</p>", "driveway service", "/d/"); ok {
		t.Error("expected failure for absent anchor")
	}
	if _, ok := InjectLink("", "driveway service", "/d/"); ok {
		t.Error("expected failure for empty html")
	}
	if _, ok := InjectLink("<p>x</p>", "  ", "/d/"); ok {
		t.Error("expected failure for empty anchor")
	}
}
