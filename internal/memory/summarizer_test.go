package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"research-collab/internal/model/llm"
)

func turns(n int, content string) []llm.Message {
	msgs := make([]llm.Message, 0, n)
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: content})
	}
	return msgs
}

func TestSummarizer_UnderBudgetUnchanged(t *testing.T) {
	client := &fakeClient{response: "should not be used"}
	s := NewSummarizer(client, 3000, 300)

	summary, degraded := s.Update(context.Background(), turns(4, "short turn"), "prior summary")
	if degraded || summary != "prior summary" {
		t.Errorf("got %q degraded=%v", summary, degraded)
	}
	if client.calls != 0 {
		t.Errorf("no completion call expected, got %d", client.calls)
	}
}

func TestSummarizer_FirstSummaryAtSixTurns(t *testing.T) {
	client := &fakeClient{response: "- topic: coral reefs"}
	s := NewSummarizer(client, 3000, 300)

	summary, degraded := s.Update(context.Background(), turns(6, "short turn"), "")
	if degraded {
		t.Fatal("should not degrade")
	}
	if summary != "- topic: coral reefs" {
		t.Errorf("got %q", summary)
	}
	if client.calls != 1 {
		t.Errorf("calls: got %d", client.calls)
	}
}

func TestSummarizer_OverBudgetMergesOlderHalf(t *testing.T) {
	client := &fakeClient{response: "merged summary"}
	s := NewSummarizer(client, 3000, 300)

	// 4 条 x 4000 字符 ≈ 4000 tokens，超出预算
	history := turns(4, strings.Repeat("x", 4000))
	summary, degraded := s.Update(context.Background(), history, "earlier summary")
	if degraded || summary != "merged summary" {
		t.Errorf("got %q degraded=%v", summary, degraded)
	}
	if client.calls != 1 {
		t.Fatalf("calls: got %d", client.calls)
	}
	if !strings.Contains(client.prompts[0], "earlier summary") {
		t.Error("prior summary should be part of the prompt")
	}
}

func TestSummarizer_FailureKeepsPrior(t *testing.T) {
	client := &fakeClient{err: errors.New("timeout")}
	s := NewSummarizer(client, 3000, 300)

	history := turns(4, strings.Repeat("x", 4000))
	summary, degraded := s.Update(context.Background(), history, "prior summary")
	if !degraded {
		t.Fatal("should degrade")
	}
	if summary != "prior summary" {
		t.Errorf("got %q", summary)
	}
}

func TestSummarizer_EmptyHistoryNoop(t *testing.T) {
	client := &fakeClient{}
	s := NewSummarizer(client, 0, 0)
	summary, degraded := s.Update(context.Background(), nil, "prior")
	if degraded || summary != "prior" || client.calls != 0 {
		t.Errorf("got %q degraded=%v calls=%d", summary, degraded, client.calls)
	}
}
