package memory

import (
	"strings"
	"testing"
)

const scopeQuestion = "Do you want global coverage or a specific region for this search?"

func TestGuard_InjectsWhenQuestionIgnored(t *testing.T) {
	g := NewClarificationGuard(nil)
	rec := NewRecord()

	instruction := g.Guard(rec, scopeQuestion, "Suggest five keywords for my database search")
	if instruction == "" {
		t.Fatal("expected an injected instruction")
	}
	if !strings.Contains(instruction, "geographic_scope") || !strings.Contains(instruction, `"global"`) {
		t.Errorf("got %q", instruction)
	}
	if rec.Clarification.LastPrompt != instruction {
		t.Error("instruction should be stored on the record")
	}
	if rec.Clarification.AskedCount != 1 {
		t.Errorf("asked count: got %d", rec.Clarification.AskedCount)
	}
}

func TestGuard_AnswerClearsPendingSlot(t *testing.T) {
	g := NewClarificationGuard(nil)
	rec := NewRecord()

	if instruction := g.Guard(rec, scopeQuestion, "Let's focus on Europe only"); instruction != "" {
		t.Errorf("answered question should not inject: %q", instruction)
	}
	if rec.Clarification.PendingSlot != "" {
		t.Errorf("pending slot should clear: %q", rec.Clarification.PendingSlot)
	}
	if rec.Clarification.AskedCount != 0 {
		t.Errorf("answered question should not count as ignored: got %d", rec.Clarification.AskedCount)
	}
}

func TestGuard_NonActionableMessageNoInjection(t *testing.T) {
	g := NewClarificationGuard(nil)
	rec := NewRecord()

	if instruction := g.Guard(rec, scopeQuestion, "hmm, I am not sure yet"); instruction != "" {
		t.Errorf("got %q", instruction)
	}
	if rec.Clarification.PendingSlot != "geographic_scope" {
		t.Errorf("slot should stay pending: %q", rec.Clarification.PendingSlot)
	}
}

func TestGuard_LaterAnswerClearsCarriedSlot(t *testing.T) {
	g := NewClarificationGuard(nil)
	rec := NewRecord()
	rec.Clarification.PendingSlot = "geographic_scope"
	rec.Clarification.LastPrompt = "stale instruction"

	if instruction := g.Guard(rec, "Here are some thoughts on sampling.", "let's keep it worldwide"); instruction != "" {
		t.Errorf("got %q", instruction)
	}
	if rec.Clarification.PendingSlot != "" || rec.Clarification.LastPrompt != "" {
		t.Errorf("carried slot should clear: %+v", rec.Clarification)
	}
}

func TestGuard_NoQuestionNoState(t *testing.T) {
	g := NewClarificationGuard(nil)
	rec := NewRecord()
	if instruction := g.Guard(rec, "Interesting topic, tell me more.", "find recent papers"); instruction != "" {
		t.Errorf("got %q", instruction)
	}
	if rec.Clarification.AskedCount != 0 {
		t.Errorf("asked count: got %d", rec.Clarification.AskedCount)
	}
}
