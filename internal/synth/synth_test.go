package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/IslandRhythms/notion-clone/internal/page"
)

// fakeModel records the messages it was asked to generate from and returns a
// canned response or error.
type fakeModel struct {
	resp *schema.Message
	err  error

	gotMessages []*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.gotMessages = input
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func Test_Synthesizer_Answer_GroundsInSources(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{resp: schema.AssistantMessage("You are flying to Paris in May.", nil)}
	s, err := New(fm)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := s.Answer(context.Background(), "When is my trip?", []string{
		"Trip notes\nFly to Paris in May",
		"Grocery list\nmilk, eggs",
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got != "You are flying to Paris in May." {
		t.Errorf("Answer() = %q", got)
	}

	if len(fm.gotMessages) != 2 {
		t.Fatalf("expected system + user message, got %d messages", len(fm.gotMessages))
	}
	sys := fm.gotMessages[0]
	if sys.Role != schema.System {
		t.Errorf("first message role = %v, want system", sys.Role)
	}
	if !strings.Contains(sys.Content, "Note: Trip notes") {
		t.Errorf("system prompt missing first note excerpt: %q", sys.Content)
	}
	if !strings.Contains(sys.Content, "Note: Grocery list") {
		t.Errorf("system prompt missing second note excerpt: %q", sys.Content)
	}
	// Relevance order must be preserved.
	if strings.Index(sys.Content, "Trip notes") > strings.Index(sys.Content, "Grocery list") {
		t.Errorf("note excerpts out of relevance order: %q", sys.Content)
	}
	usr := fm.gotMessages[1]
	if usr.Role != schema.User || usr.Content != "When is my trip?" {
		t.Errorf("user message = %v %q", usr.Role, usr.Content)
	}
}

func Test_Synthesizer_Answer_NoSources(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{resp: schema.AssistantMessage("I could not find any matching notes.", nil)}
	s, err := New(fm)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := s.Answer(context.Background(), "When is my trip?", nil); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	sys := fm.gotMessages[0]
	if strings.Contains(sys.Content, "Note:") {
		t.Errorf("ungrounded prompt should carry no note excerpts: %q", sys.Content)
	}
	if !strings.Contains(sys.Content, "none of") {
		t.Errorf("ungrounded prompt should say no notes matched: %q", sys.Content)
	}
}

func Test_Synthesizer_Answer_EmptyQuestion(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{resp: schema.AssistantMessage("unused", nil)}
	s, err := New(fm)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := s.Answer(context.Background(), q, nil)
		if !errors.Is(err, page.ErrInvalidQuestion) {
			t.Errorf("Answer(%q) error = %v, want ErrInvalidQuestion", q, err)
		}
	}
	if fm.gotMessages != nil {
		t.Error("model must not be called for an invalid question")
	}
}

func Test_Synthesizer_Answer_BackendFailure(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{err: errors.New("connection refused")}
	s, err := New(fm)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Answer(context.Background(), "When is my trip?", []string{"Trip notes"})
	if !errors.Is(err, page.ErrSynthesisUnavailable) {
		t.Errorf("Answer() error = %v, want ErrSynthesisUnavailable", err)
	}
}

func Test_Synthesizer_Answer_EmptyCompletion(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{resp: schema.AssistantMessage("", nil)}
	s, err := New(fm)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Answer(context.Background(), "When is my trip?", []string{"Trip notes"})
	if !errors.Is(err, page.ErrSynthesisUnavailable) {
		t.Errorf("Answer() error = %v, want ErrSynthesisUnavailable", err)
	}
}

func Test_Synthesizer_Answer_TrimsToBudget(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{resp: schema.AssistantMessage("ok", nil)}
	// Budget only fits the scaffolding plus the first note.
	s, err := New(fm, WithMaxContextTokens(160))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	big := strings.Repeat("x", 400) // ~100 tokens
	if _, err := s.Answer(context.Background(), "q", []string{"kept " + big, "dropped " + big}); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	sys := fm.gotMessages[0].Content
	if !strings.Contains(sys, "Note: kept") {
		t.Errorf("highest-ranked note missing from prompt")
	}
	if strings.Contains(sys, "dropped") {
		t.Errorf("lowest-ranked note should have been trimmed")
	}
}

func Test_New_NilModel(t *testing.T) {
	t.Parallel()
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) expected error")
	}
}
