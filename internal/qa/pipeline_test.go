package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/IslandRhythms/notion-clone/internal/page"
)

type stubEmbedder struct {
	vec []float32
	err error
	got []string
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.got = texts
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

type stubSearcher struct {
	pages []page.Page
	err   error
	gotK  int
	gotV  []float32
}

func (s *stubSearcher) TopSimilar(_ context.Context, vec []float32, k int) ([]page.Page, error) {
	s.gotV, s.gotK = vec, k
	if s.err != nil {
		return nil, s.err
	}
	return s.pages, nil
}

type stubSynth struct {
	answer     string
	err        error
	gotSources []string
	called     bool
}

func (s *stubSynth) Answer(_ context.Context, _ string, sources []string) (string, error) {
	s.called = true
	s.gotSources = sources
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func textPage(id, creator, html string) page.Page {
	return page.Page{
		ID:        id,
		CreatorID: creator,
		Blocks:    []page.ContentBlock{{Tag: "p", HTML: html}},
	}
}

func Test_Pipeline_Ask_HappyPath(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{vec: []float32{1, 0}}
	srch := &stubSearcher{pages: []page.Page{
		textPage("p1", "alice", "<p>Fly to Paris in May</p>"),
		textPage("p2", "", "<p>Pack an umbrella</p>"),
	}}
	syn := &stubSynth{answer: "You fly to Paris in May."}
	p, err := NewPipeline(emb, srch, syn)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	res, err := p.Ask(context.Background(), "alice", "When is my trip?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(emb.got) != 1 || emb.got[0] != "When is my trip?" {
		t.Errorf("embedded texts = %v, want the literal question", emb.got)
	}
	if srch.gotK != DefaultTopK {
		t.Errorf("retrieval k = %d, want %d", srch.gotK, DefaultTopK)
	}
	if len(syn.gotSources) != 2 || syn.gotSources[0] != "Fly to Paris in May" {
		t.Errorf("synthesis sources = %v", syn.gotSources)
	}
	if res.Answer != "You fly to Paris in May." {
		t.Errorf("Answer = %q", res.Answer)
	}
	if res.Question != "When is my trip?" {
		t.Errorf("Question = %q", res.Question)
	}
	if len(res.Pages) != 2 || res.Pages[0].ID != "p1" {
		t.Errorf("Pages = %v", res.Pages)
	}
}

func Test_Pipeline_Ask_EmptyQuestion(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{vec: []float32{1}}
	p, err := NewPipeline(emb, &stubSearcher{}, &stubSynth{})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := p.Ask(context.Background(), "alice", q)
		if !errors.Is(err, page.ErrInvalidQuestion) {
			t.Errorf("Ask(%q) error = %v, want ErrInvalidQuestion", q, err)
		}
	}
	if emb.got != nil {
		t.Error("embedder must not be called for an invalid question")
	}
}

func Test_Pipeline_Ask_ZeroHitsStillAnswers(t *testing.T) {
	t.Parallel()

	syn := &stubSynth{answer: "No matching notes were found."}
	p, err := NewPipeline(&stubEmbedder{vec: []float32{1}}, &stubSearcher{}, syn)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	res, err := p.Ask(context.Background(), "alice", "When is my trip?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !syn.called {
		t.Fatal("synthesis must still run with zero hits")
	}
	if len(syn.gotSources) != 0 {
		t.Errorf("sources = %v, want none", syn.gotSources)
	}
	if len(res.Pages) != 0 || res.Answer == "" {
		t.Errorf("result = %+v", res)
	}
}

func Test_Pipeline_Ask_FiltersInaccessiblePages(t *testing.T) {
	t.Parallel()

	srch := &stubSearcher{pages: []page.Page{
		textPage("mine", "alice", "<p>my note</p>"),
		textPage("theirs", "bob", "<p>bob's secret</p>"),
		textPage("shared", "", "<p>public note</p>"),
	}}
	syn := &stubSynth{answer: "ok"}
	p, err := NewPipeline(&stubEmbedder{vec: []float32{1}}, srch, syn)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	res, err := p.Ask(context.Background(), "alice", "what do I know?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(res.Pages) != 2 {
		t.Fatalf("Pages = %v, want bob's page dropped", res.Pages)
	}
	for _, src := range syn.gotSources {
		if src == "bob's secret" {
			t.Error("inaccessible page text reached synthesis")
		}
	}
}

func Test_Pipeline_Ask_StageFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		emb    *stubEmbedder
		srch   *stubSearcher
		syn    *stubSynth
		wantIs error
	}{
		{
			name:   "embedding unavailable",
			emb:    &stubEmbedder{err: page.ErrEmbeddingUnavailable},
			srch:   &stubSearcher{},
			syn:    &stubSynth{},
			wantIs: page.ErrEmbeddingUnavailable,
		},
		{
			name:   "synthesis unavailable",
			emb:    &stubEmbedder{vec: []float32{1}},
			srch:   &stubSearcher{},
			syn:    &stubSynth{err: page.ErrSynthesisUnavailable},
			wantIs: page.ErrSynthesisUnavailable,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPipeline(tc.emb, tc.srch, tc.syn)
			if err != nil {
				t.Fatalf("NewPipeline() error = %v", err)
			}
			_, err = p.Ask(context.Background(), "alice", "q?")
			if !errors.Is(err, tc.wantIs) {
				t.Errorf("Ask() error = %v, want %v", err, tc.wantIs)
			}
		})
	}
}

func Test_Pipeline_Ask_SearchFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("index offline")
	syn := &stubSynth{}
	p, err := NewPipeline(&stubEmbedder{vec: []float32{1}}, &stubSearcher{err: boom}, syn)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	_, err = p.Ask(context.Background(), "alice", "q?")
	if !errors.Is(err, boom) {
		t.Errorf("Ask() error = %v, want the retrieval error", err)
	}
	if syn.called {
		t.Error("synthesis must not run after a failed retrieval")
	}
}
