package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFastPath_ResearchQuestion(t *testing.T) {
	e := NewExtractor(&fakeClient{}, 0)
	rec := NewRecord()
	e.FastPath(rec, "My research question is how ocean warming affects coral bleaching rates.")

	if rec.Facts.ResearchQuestion != "how ocean warming affects coral bleaching rates" {
		t.Errorf("question: got %q", rec.Facts.ResearchQuestion)
	}
	if rec.Facts.ResearchTopic != "ocean warming affects coral bleaching rates" {
		t.Errorf("topic: got %q", rec.Facts.ResearchTopic)
	}
	if len(rec.KeyQuotes) != 1 || !strings.Contains(rec.KeyQuotes[0], "My research question") {
		t.Errorf("quote: got %v", rec.KeyQuotes)
	}
}

func TestFastPath_ExplicitTopic(t *testing.T) {
	e := NewExtractor(&fakeClient{}, 0)
	rec := NewRecord()
	e.FastPath(rec, "Our topic is urban heat islands in coastal cities.")
	if rec.Facts.ResearchTopic != "urban heat islands in coastal cities" {
		t.Errorf("got %q", rec.Facts.ResearchTopic)
	}
}

func TestFastPath_ImplicitQuestionFillsEmptyField(t *testing.T) {
	e := NewExtractor(&fakeClient{}, 0)
	rec := NewRecord()
	e.FastPath(rec, "How does ocean acidification affect shellfish survival rates?")

	if rec.Facts.ResearchQuestion != "How does ocean acidification affect shellfish survival rates" {
		t.Errorf("question: got %q", rec.Facts.ResearchQuestion)
	}
	if rec.Facts.ResearchTopic != "does ocean acidification affect shellfish survival rates" {
		t.Errorf("topic: got %q", rec.Facts.ResearchTopic)
	}
}

func TestFastPath_QuestionNotOverwrittenByPlainQuestions(t *testing.T) {
	e := NewExtractor(&fakeClient{}, 0)
	rec := NewRecord()
	rec.Facts.ResearchQuestion = "how ocean warming affects coral bleaching rates"
	rec.Facts.ResearchTopic = "ocean warming"
	e.FastPath(rec, "What does thermal tolerance mean?")
	if rec.Facts.ResearchQuestion != "how ocean warming affects coral bleaching rates" {
		t.Errorf("question overwritten: %q", rec.Facts.ResearchQuestion)
	}
}

func TestShouldExtract(t *testing.T) {
	e := NewExtractor(&fakeClient{}, 3)
	rec := NewRecord()
	rec.Facts.ResearchTopic = "coral reefs"

	rec.ExchangeCount = 1
	if e.ShouldExtract(rec, "tell me more") {
		t.Error("no marker, topic set, off-interval: should skip")
	}
	rec.ExchangeCount = 3
	if !e.ShouldExtract(rec, "tell me more") {
		t.Error("interval exchange should extract")
	}
	rec.ExchangeCount = 1
	if !e.ShouldExtract(rec, "I decided to use interviews") {
		t.Error("explicit marker should force extraction")
	}
	rec.Facts.ResearchTopic = ""
	if !e.ShouldExtract(rec, "tell me more") {
		t.Error("empty topic should force extraction")
	}
}

func TestExtract_AppliesReturnedFields(t *testing.T) {
	client := &fakeClient{response: "```json\n" + `{
		"research_topic": "coral bleaching",
		"decisions_made": ["focus on the pacific"],
		"papers_discussed": [{"title": "Bleaching Thresholds", "author": "Smith"}],
		"key_quotes": ["I want field data only"]
	}` + "\n```"}
	e := NewExtractor(client, 3)
	rec := NewRecord()

	degraded := e.Extract(context.Background(), rec, "user msg", "ai resp", nil)
	if degraded {
		t.Fatal("should not degrade")
	}
	if rec.Facts.ResearchTopic != "coral bleaching" {
		t.Errorf("topic: got %q", rec.Facts.ResearchTopic)
	}
	if len(rec.Facts.DecisionsMade) != 1 || rec.Facts.DecisionsMade[0] != "focus on the pacific" {
		t.Errorf("decisions: %v", rec.Facts.DecisionsMade)
	}
	if len(rec.Facts.PapersDiscussed) != 1 || rec.Facts.PapersDiscussed[0].Author != "Smith" {
		t.Errorf("papers: %v", rec.Facts.PapersDiscussed)
	}
	if len(rec.KeyQuotes) != 1 {
		t.Errorf("quotes: %v", rec.KeyQuotes)
	}
}

func TestExtract_DegradesOnClientError(t *testing.T) {
	e := NewExtractor(&fakeClient{err: errors.New("rate limited")}, 3)
	rec := NewRecord()
	rec.Facts.ResearchTopic = "kept"

	if degraded := e.Extract(context.Background(), rec, "msg", "resp", nil); !degraded {
		t.Fatal("should degrade")
	}
	if rec.Facts.ResearchTopic != "kept" {
		t.Errorf("record mutated on failure: %q", rec.Facts.ResearchTopic)
	}
}

func TestExtract_BrokenJSONDegrades(t *testing.T) {
	e := NewExtractor(&fakeClient{response: `{"decisions_made": [broken}`}, 3)
	rec := NewRecord()
	if degraded := e.Extract(context.Background(), rec, "msg", "resp", nil); !degraded {
		t.Fatal("broken json should degrade")
	}
	if len(rec.Facts.DecisionsMade) != 0 {
		t.Errorf("record mutated on failure: %v", rec.Facts.DecisionsMade)
	}
}

func TestExtract_NonJSONResponseDegrades(t *testing.T) {
	e := NewExtractor(&fakeClient{response: "sorry, I cannot comply"}, 3)
	rec := NewRecord()
	rec.Facts.ResearchTopic = "kept"

	if degraded := e.Extract(context.Background(), rec, "msg", "resp", nil); !degraded {
		t.Fatal("prose without a json object should degrade")
	}
	if rec.Facts.ResearchTopic != "kept" {
		t.Errorf("record mutated on failure: %q", rec.Facts.ResearchTopic)
	}
}

func TestDeriveTopic_LimitsLength(t *testing.T) {
	long := "how " + strings.Repeat("coral reefs and ocean warming ", 20)
	topic := deriveTopic(long)
	if len(topic) > maxTopicLen {
		t.Errorf("topic too long: %d", len(topic))
	}
	if strings.HasPrefix(topic, "how ") {
		t.Errorf("interrogative prefix kept: %q", topic)
	}
}
