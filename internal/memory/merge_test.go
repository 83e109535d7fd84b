package memory

import (
	"testing"
)

func TestMerge_ListsUnion(t *testing.T) {
	current := NewRecord()
	current.Facts.DecisionsMade = []string{"use mixed methods", "focus on 2015-2025"}
	local := NewRecord()
	local.Facts.DecisionsMade = []string{"focus on 2015-2025", "exclude preprints"}

	merged := Merge(current, local)
	want := []string{"use mixed methods", "focus on 2015-2025", "exclude preprints"}
	if len(merged.Facts.DecisionsMade) != len(want) {
		t.Fatalf("got %v", merged.Facts.DecisionsMade)
	}
	for i, d := range want {
		if merged.Facts.DecisionsMade[i] != d {
			t.Errorf("item %d: got %q want %q", i, merged.Facts.DecisionsMade[i], d)
		}
	}
}

func TestMerge_ScalarLocalWins(t *testing.T) {
	current := NewRecord()
	current.Facts.ResearchTopic = "old topic"
	local := NewRecord()
	local.Facts.ResearchTopic = "new topic"

	merged := Merge(current, local)
	if merged.Facts.ResearchTopic != "new topic" {
		t.Errorf("got %q", merged.Facts.ResearchTopic)
	}
}

func TestMerge_EmptyLocalScalarKeepsCurrent(t *testing.T) {
	current := NewRecord()
	current.Facts.ResearchQuestion = "how X affects Y"
	local := NewRecord()

	merged := Merge(current, local)
	if merged.Facts.ResearchQuestion != "how X affects Y" {
		t.Errorf("got %q", merged.Facts.ResearchQuestion)
	}
}

func TestMerge_ExchangeCountMax(t *testing.T) {
	current := NewRecord()
	current.ExchangeCount = 7
	local := NewRecord()
	local.ExchangeCount = 5

	if merged := Merge(current, local); merged.ExchangeCount != 7 {
		t.Errorf("got %d", merged.ExchangeCount)
	}
}

func TestMerge_PapersByTitle(t *testing.T) {
	current := NewRecord()
	current.Facts.PapersDiscussed = []PaperNote{{Title: "Coral Bleaching Dynamics", Author: "Smith"}}
	local := NewRecord()
	local.Facts.PapersDiscussed = []PaperNote{
		{Title: "coral bleaching dynamics", UserReaction: "liked it"},
		{Title: "Reef Economics", Author: "Jones"},
	}

	merged := Merge(current, local)
	if len(merged.Facts.PapersDiscussed) != 2 {
		t.Fatalf("got %v", merged.Facts.PapersDiscussed)
	}
	first := merged.Facts.PapersDiscussed[0]
	if first.Author != "Smith" || first.UserReaction != "liked it" {
		t.Errorf("fields should merge: %+v", first)
	}
}

func TestMerge_QuotesDedupedAndCapped(t *testing.T) {
	current := NewRecord()
	current.KeyQuotes = []string{"I want qualitative data"}
	local := NewRecord()
	local.KeyQuotes = []string{"i want qualitative data!", "I need recent sources"}

	merged := Merge(current, local)
	if len(merged.KeyQuotes) != 2 {
		t.Fatalf("got %v", merged.KeyQuotes)
	}
	if merged.KeyQuotes[0] != "i want qualitative data!" {
		t.Errorf("longer duplicate should win: %v", merged.KeyQuotes)
	}
}
