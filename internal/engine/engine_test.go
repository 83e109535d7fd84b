package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"research-collab/internal/citation"
	"research-collab/internal/memory"
	"research-collab/internal/model/llm"
	"research-collab/pkg/config"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(prompt string, opts llm.GenerateOptions) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) GenerateWithContext(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Chat(messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) ChatWithContext(ctx context.Context, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Model() string    { return "fake" }
func (f *fakeLLM) Provider() string { return "fake" }

type fakeCandidates struct {
	papers []citation.CandidatePaper
	err    error
}

func (f *fakeCandidates) LookupCandidates(ctx context.Context, projectID string) ([]citation.CandidatePaper, error) {
	return f.papers, f.err
}

type fakeLinker struct {
	links map[string]string
}

func (f *fakeLinker) PersistCitationLink(ctx context.Context, paperID, referenceID string) error {
	if f.links == nil {
		f.links = make(map[string]string)
	}
	f.links[paperID] = referenceID
	return nil
}

func newTestEngine(t *testing.T, candidates CandidateSource, linker CitationLinker) *Engine {
	t.Helper()
	e, err := New(Options{
		Store:      memory.NewMemStore(),
		Client:     &fakeLLM{response: "{}"},
		Candidates: candidates,
		Linker:     linker,
		Engine:     config.EngineConfig{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNew_RequiredCollaborators(t *testing.T) {
	if _, err := New(Options{Client: &fakeLLM{}, Candidates: &fakeCandidates{}}); err == nil {
		t.Error("missing store should fail")
	}
	if _, err := New(Options{Store: memory.NewMemStore(), Candidates: &fakeCandidates{}}); err == nil {
		t.Error("missing client should fail")
	}
	if _, err := New(Options{Store: memory.NewMemStore(), Client: &fakeLLM{}}); err == nil {
		t.Error("missing candidate source should fail")
	}
}

func TestUpdateThenBuildContext(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, &fakeCandidates{}, nil)

	_, err := e.UpdateAfterExchange(ctx, "ch1",
		"My research question is how ocean warming affects coral bleaching rates.",
		"Let's explore that.", nil, "u1")
	if err != nil {
		t.Fatalf("UpdateAfterExchange: %v", err)
	}

	out, err := e.BuildContext(ctx, "ch1", "u1")
	if err != nil {
		t.Fatalf("BuildContext: %v", err)
	}
	if !strings.Contains(out, "how ocean warming affects coral bleaching rates") {
		t.Errorf("context missing question:\n%s", out)
	}
}

func TestResolveBibliography_EndToEnd(t *testing.T) {
	ctx := context.Background()
	linker := &fakeLinker{}
	e := newTestEngine(t, &fakeCandidates{papers: []citation.CandidatePaper{
		{ID: "p1", Title: "Coral Bleaching Dynamics", Authors: []string{"Jane Smith"}, Year: 2020, ReferenceID: "ref-1"},
	}}, linker)

	doc := "Bleaching accelerates cite{smith2020coral}; see also cite{bogus2001key}."
	res, err := e.ResolveBibliography(ctx, "ch1", "proj1", doc)
	if err != nil {
		t.Fatalf("ResolveBibliography: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries: %d", len(res.Entries))
	}
	if len(res.UnmatchedKeys) != 1 || res.UnmatchedKeys[0] != "bogus2001key" {
		t.Errorf("unmatched: %v", res.UnmatchedKeys)
	}
	if linker.links["p1"] != "ref-1" {
		t.Errorf("citation link not persisted: %v", linker.links)
	}
}

func TestResolveBibliography_LookupFailure(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, &fakeCandidates{err: errors.New("db down")}, nil)
	if _, err := e.ResolveBibliography(ctx, "ch1", "proj1", "cite{x}"); err == nil {
		t.Error("lookup failure should propagate")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, &fakeCandidates{}, nil)

	if err := e.CachePut(ctx, "ch1", "paper_search", "cached result"); err != nil {
		t.Fatalf("CachePut: %v", err)
	}
	val, ok, err := e.CacheGet(ctx, "ch1", "paper_search")
	if err != nil || !ok || val != "cached result" {
		t.Errorf("got %q ok=%v err=%v", val, ok, err)
	}
}
