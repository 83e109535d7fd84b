// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memory

import (
	"fmt"
	"strings"
)

// BuildContext 把记录渲染为可直接拼入下一次补全调用的文本摘要。
// userID 非空时附带该用户的长期偏好。
func BuildContext(rec *Record, userID string) string {
	var b strings.Builder

	if rec.Summary != "" {
		b.WriteString("## Conversation summary\n")
		b.WriteString(rec.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Research context\n")
	fmt.Fprintf(&b, "Stage: %s (confidence %.1f)\n", rec.ResearchState.Stage, rec.ResearchState.StageConfidence)
	if rec.Facts.ResearchTopic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", rec.Facts.ResearchTopic)
	}
	if rec.Facts.ResearchQuestion != "" {
		fmt.Fprintf(&b, "Research question: %s\n", rec.Facts.ResearchQuestion)
	}
	writeList(&b, "Decisions made", rec.Facts.DecisionsMade)
	writeList(&b, "Pending questions", rec.Facts.PendingQuestions)
	writeList(&b, "Unanswered questions", rec.Facts.UnansweredQuestions)
	writeList(&b, "Methodology notes", rec.Facts.MethodologyNotes)

	if len(rec.Facts.PapersDiscussed) > 0 {
		b.WriteString("Papers discussed:\n")
		for _, p := range rec.Facts.PapersDiscussed {
			fmt.Fprintf(&b, "- %s", p.Title)
			if p.Author != "" {
				fmt.Fprintf(&b, " (%s)", p.Author)
			}
			if p.UserReaction != "" {
				fmt.Fprintf(&b, " — user: %s", p.UserReaction)
			}
			b.WriteString("\n")
		}
	}

	writeList(&b, "Key quotes from the user", rec.KeyQuotes)

	bucket := rec.LongTerm.Global
	if userID != "" {
		if userBucket, ok := rec.LongTerm.Users[userID]; ok {
			bucket = mergeBucket(bucket, userBucket)
		}
	}
	writeList(&b, "User preferences", bucket.UserPreferences)
	writeList(&b, "Rejected approaches", bucket.RejectedApproaches)
	writeList(&b, "Follow-up items", bucket.FollowUpItems)

	if rec.Clarification.LastPrompt != "" {
		b.WriteString("\n## Instruction\n")
		b.WriteString(rec.Clarification.LastPrompt)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
