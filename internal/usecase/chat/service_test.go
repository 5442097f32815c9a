package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/omnirecall/omnirecall/internal/domain"
	"github.com/omnirecall/omnirecall/internal/usecase/recall"
)

func newTestService(recaller Recaller, router *Router, opts QualityOptions) *Service {
	return New(recaller, router, opts, testLogger())
}

func TestCompleteGroundsPromptInRecalledContext(t *testing.T) {
	recaller := &stubRecaller{result: recall.Result{
		Query: "what did I decide",
		Citations: []domain.Citation{
			testCitation("doc-1", "decision-log.md", "Decided to use serverless for the API layer.", 0, 0.91),
		},
	}}
	primary := newScriptedClient("primary", respondWith("Grounded answer", "gemini", "gemini"))
	fallback := newScriptedClient("fallback", respondWith("Fallback", "deepseek", "github-models"))
	sut := newTestService(recaller, newTestRouter(primary, fallback), DefaultQualityOptions())

	out, err := sut.Complete(context.Background(), "What did I decide for the API layer?", 3)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Answer != "Grounded answer" {
		t.Errorf("answer = %q", out.Answer)
	}
	if len(out.Citations) != 1 || out.Citations[0].FileName != "decision-log.md" {
		t.Errorf("citations = %+v", out.Citations)
	}
	if !strings.Contains(recaller.lastQuery, "API layer") {
		t.Errorf("recall query = %q", recaller.lastQuery)
	}
	for _, want := range []string{"Context:", "decision-log.md", "improvements, critique", "score=0.9100"} {
		if !strings.Contains(primary.lastPrompt, want) {
			t.Errorf("grounded prompt missing %q", want)
		}
	}
}

func TestCompleteStripsInvalidMarkersAndFiltersCitations(t *testing.T) {
	recaller := &stubRecaller{result: recall.Result{Citations: []domain.Citation{
		testCitation("doc-1", "a.md", "alpha", 0, 0.9),
		testCitation("doc-2", "b.md", "beta", 0, 0.8),
	}}}
	primary := newScriptedClient("primary",
		respondWith("We chose serverless [1] and skipped the old stack [9].", "gemini", "gemini"))
	fallback := newScriptedClient("fallback", respondWith("fallback", "deepseek", "github-models"))
	sut := newTestService(recaller, newTestRouter(primary, fallback), DefaultQualityOptions())

	out, err := sut.Complete(context.Background(), "What did we choose?", 5)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Answer != "We chose serverless [1] and skipped the old stack ." {
		t.Errorf("answer = %q", out.Answer)
	}
	if len(out.Citations) != 1 || out.Citations[0].FileName != "a.md" {
		t.Errorf("citations = %+v", out.Citations)
	}
}

func TestCompletePreservesParagraphBreaks(t *testing.T) {
	recaller := &stubRecaller{result: recall.Result{Citations: []domain.Citation{
		testCitation("doc-1", "a.md", "alpha", 0, 0.9),
	}}}
	answer := "Improvement 1 [1]\n\nRewrite:\n- stronger opening\n- quantified impact"
	primary := newScriptedClient("primary", respondWith(answer, "gemini", "gemini"))
	fallback := newScriptedClient("fallback", respondWith("fallback", "deepseek", "github-models"))
	sut := newTestService(recaller, newTestRouter(primary, fallback), DefaultQualityOptions())

	out, err := sut.Complete(context.Background(), "format test", 5)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	for _, want := range []string{"\n\n", "Rewrite:", "- stronger opening"} {
		if !strings.Contains(out.Answer, want) {
			t.Errorf("answer missing %q: %q", want, out.Answer)
		}
	}
}

func TestCompleteGuardsOnWeakEvidenceWithoutProviderCall(t *testing.T) {
	recaller := &stubRecaller{result: recall.Result{Citations: []domain.Citation{
		testCitation("doc-1", "weak.md", "weak context", 0, 0.05),
	}}}
	primary := newScriptedClient("primary", respondWith("should not be used", "gemini", "gemini"))
	fallback := newScriptedClient("fallback", respondWith("fallback", "deepseek", "github-models"))
	opts := DefaultQualityOptions()
	opts.MinStrongCitationScore = 0.2
	opts.InsufficientEvidenceMessage = "Insufficient evidence."
	sut := newTestService(recaller, newTestRouter(primary, fallback), opts)

	out, err := sut.Complete(context.Background(), "Question", 5)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Answer != "Insufficient evidence." || out.Provider != "guard" || out.Model != "insufficient-evidence" {
		t.Errorf("outcome = %+v", out)
	}
	if primary.calls != 0 {
		t.Errorf("provider called %d times, want 0", primary.calls)
	}
}

func TestCompleteGuardsWhenCitationCountBelowMinimum(t *testing.T) {
	recaller := &stubRecaller{result: recall.Result{Citations: []domain.Citation{
		testCitation("doc-1", "single.md", "single snippet", 0, 0.88),
	}}}
	primary := newScriptedClient("primary", respondWith("should not be used", "gemini", "gemini"))
	fallback := newScriptedClient("fallback", respondWith("fallback", "deepseek", "github-models"))
	opts := DefaultQualityOptions()
	opts.MinCitationCount = 2
	sut := newTestService(recaller, newTestRouter(primary, fallback), opts)

	out, err := sut.Complete(context.Background(), "Question", 5)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Provider != "guard" || primary.calls != 0 {
		t.Errorf("provider = %q, calls = %d", out.Provider, primary.calls)
	}
}

func TestCompleteProceedsWhenOneCitationIsStrong(t *testing.T) {
	recaller := &stubRecaller{result: recall.Result{Citations: []domain.Citation{
		testCitation("doc-1", "weak.md", "weak snippet", 0, 0.1),
		testCitation("doc-2", "strong.md", "strong snippet", 0, 0.55),
	}}}
	primary := newScriptedClient("primary", respondWith("Grounded answer [2]", "gemini", "gemini"))
	fallback := newScriptedClient("fallback", respondWith("fallback", "deepseek", "github-models"))
	opts := DefaultQualityOptions()
	opts.MinCitationCount = 2
	opts.MinStrongCitationScore = 0.5
	sut := newTestService(recaller, newTestRouter(primary, fallback), opts)

	out, err := sut.Complete(context.Background(), "Question", 5)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Answer != "Grounded answer [2]" {
		t.Errorf("answer = %q", out.Answer)
	}
	if len(out.Citations) != 1 || out.Citations[0].FileName != "strong.md" {
		t.Errorf("citations = %+v", out.Citations)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d", primary.calls)
	}
}

func TestCompleteRecallOnlyFallbackWhenProvidersUnavailable(t *testing.T) {
	recaller := &stubRecaller{result: recall.Result{Citations: []domain.Citation{
		testCitation("doc-1", "a.md", "alpha snippet", 0, 0.91),
		testCitation("doc-2", "b.md", "beta snippet", 1, 0.82),
		testCitation("doc-3", "c.md", "gamma snippet", 2, 0.80),
	}}}
	primary := newScriptedClient("primary",
		failWith(domain.ErrRateLimited), failWith(context.DeadlineExceeded))
	fallback := newScriptedClient("fallback",
		failWith(domain.ErrProviderTransient), failWith(domain.ErrRateLimited))
	opts := DefaultQualityOptions()
	opts.MinStrongCitationScore = 0.1
	opts.EnableRecallOnlyFallback = true
	opts.RecallOnlyFallbackMaxCitations = 2
	opts.RecallOnlyFallbackMessage = "Free-tier fallback."
	sut := newTestService(recaller, newTestRouter(primary, fallback), opts)

	out, err := sut.Complete(context.Background(), "Question", 5)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out.Provider != "recall-only" || out.Model != "free-tier-fallback" {
		t.Errorf("provider = %q, model = %q", out.Provider, out.Model)
	}
	for _, want := range []string{"Free-tier fallback.", "[1] a.md", "[2] b.md"} {
		if !strings.Contains(out.Answer, want) {
			t.Errorf("answer missing %q: %q", want, out.Answer)
		}
	}
	if strings.Contains(out.Answer, "c.md") {
		t.Error("answer should cap at two evidence entries")
	}
	if len(out.Citations) != 3 {
		t.Errorf("citations = %d, want the full recall list", len(out.Citations))
	}
}

func TestCompletePropagatesProviderErrorWhenFallbackDisabled(t *testing.T) {
	recaller := &stubRecaller{result: recall.Result{Citations: []domain.Citation{
		testCitation("doc-1", "a.md", "alpha snippet", 0, 0.91),
	}}}
	primary := newScriptedClient("primary",
		failWith(domain.ErrRateLimited), failWith(context.DeadlineExceeded))
	fallback := newScriptedClient("fallback",
		failWith(domain.ErrProviderTransient), failWith(domain.ErrRateLimited))
	sut := newTestService(recaller, newTestRouter(primary, fallback), DefaultQualityOptions())

	_, err := sut.Complete(context.Background(), "Question", 5)
	var unavailable *domain.ProviderUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("got %v, want ProviderUnavailableError", err)
	}
}

func TestCompletePropagatesRecallError(t *testing.T) {
	recaller := &stubRecaller{err: domain.ErrInvalidInput}
	sut := newTestService(recaller, newTestRouter(newScriptedClient("p"), newScriptedClient("f")), DefaultQualityOptions())

	if _, err := sut.Complete(context.Background(), "  ", 5); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}
