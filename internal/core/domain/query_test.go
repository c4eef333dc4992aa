package domain

import (
	"errors"
	"testing"
)

func TestParseModeAcceptsKnownModes(t *testing.T) {
	for _, raw := range []string{"qa", "web", "obsidian", "research"} {
		mode, err := ParseMode(raw)
		if err != nil {
			t.Fatalf("ParseMode(%q) error = %v", raw, err)
		}
		if string(mode) != raw {
			t.Fatalf("ParseMode(%q) = %s", raw, mode)
		}
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	if _, err := ParseMode("pdf"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPermittedSourcesAreExclusive(t *testing.T) {
	if ModeWeb.AllowsSource(SourcePDF) {
		t.Fatalf("web mode must never allow pdf sources")
	}
	if ModeObsidian.AllowsSource(SourceWeb) {
		t.Fatalf("obsidian mode must never allow web sources")
	}
	if ModeQA.AllowsSource(SourceObsidianNote) {
		t.Fatalf("qa mode must never allow obsidian notes")
	}
	if ModeResearch.AllowsSource(SourceObsidianNote) {
		t.Fatalf("research mode must never allow obsidian notes")
	}
	if !ModeResearch.AllowsSource(SourceWeb) {
		t.Fatalf("research mode must allow web sources")
	}
}

func TestPermittedSourcesReturnsDefensiveCopy(t *testing.T) {
	sources := ModeQA.PermittedSources()
	if len(sources) == 0 {
		t.Fatalf("qa mode must have permitted sources")
	}
	sources[0] = SourceWeb
	if ModeQA.AllowsSource(SourceWeb) {
		t.Fatalf("mutating the returned slice must not change the mode table")
	}
}

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrBackendUnavailable, "vector search", cause)
	if !IsKind(err, ErrBackendUnavailable) {
		t.Fatalf("expected backend kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
	if WrapError(ErrInvalidInput, "noop", nil) != nil {
		t.Fatalf("wrapping nil must stay nil")
	}
}
