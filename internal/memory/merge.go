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
	"strings"
)

// Merge 合并持久化记录与本地修改：标量以本地非空值覆盖，列表做去重扩展，
// map 按键递归合并。两个并发写者各自 Save 时，任何一方的追加都不会丢失。
func Merge(current, local *Record) *Record {
	if current == nil {
		return local
	}
	if local == nil {
		return current
	}
	out := *current

	out.Version = maxInt(current.Version, local.Version)
	if local.Summary != "" {
		out.Summary = local.Summary
	}
	out.Facts = mergeFacts(current.Facts, local.Facts)
	out.ResearchState = mergeResearchState(current.ResearchState, local.ResearchState)
	out.LongTerm = mergeLongTerm(current.LongTerm, local.LongTerm)

	quotes := make([]string, len(current.KeyQuotes))
	copy(quotes, current.KeyQuotes)
	tmp := Record{KeyQuotes: quotes}
	for _, q := range local.KeyQuotes {
		tmp.AddQuote(q)
	}
	out.KeyQuotes = tmp.KeyQuotes

	out.ToolCache = mergeToolCache(current.ToolCache, local.ToolCache)
	out.ExchangeCount = maxInt(current.ExchangeCount, local.ExchangeCount)
	if local.UpdatedAt.After(current.UpdatedAt) {
		out.UpdatedAt = local.UpdatedAt
	}
	if local.Clarification.AskedCount >= current.Clarification.AskedCount {
		out.Clarification = local.Clarification
	}

	out.Prune()
	return &out
}

func mergeFacts(current, local Facts) Facts {
	out := current
	if local.ResearchTopic != "" {
		out.ResearchTopic = local.ResearchTopic
	}
	if local.ResearchQuestion != "" {
		out.ResearchQuestion = local.ResearchQuestion
	}
	out.PapersDiscussed = mergePapers(current.PapersDiscussed, local.PapersDiscussed)
	out.DecisionsMade = appendDedupe(current.DecisionsMade, local.DecisionsMade, MaxDecisions)
	out.PendingQuestions = appendDedupe(current.PendingQuestions, local.PendingQuestions, MaxPendingQuestions)
	out.UnansweredQuestions = appendDedupe(current.UnansweredQuestions, local.UnansweredQuestions, MaxUnansweredQuestions)
	out.MethodologyNotes = appendDedupe(current.MethodologyNotes, local.MethodologyNotes, MaxMethodologyNotes)
	return out
}

// mergePapers 按标题（大小写不敏感）去重合并；同名论文以本地字段覆盖非空项
func mergePapers(current, local []PaperNote) []PaperNote {
	out := make([]PaperNote, len(current))
	copy(out, current)
	for _, p := range local {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		found := false
		for i, existing := range out {
			if strings.EqualFold(existing.Title, p.Title) {
				if p.Author != "" {
					out[i].Author = p.Author
				}
				if p.Relevance != "" {
					out[i].Relevance = p.Relevance
				}
				if p.UserReaction != "" {
					out[i].UserReaction = p.UserReaction
				}
				found = true
				break
			}
		}
		if !found {
			out = append(out, p)
		}
	}
	return tailPapers(out, MaxPapersDiscussed)
}

// mergeResearchState 阶段历史更长的一方代表更新的状态机
func mergeResearchState(current, local ResearchState) ResearchState {
	if len(local.StageHistory) >= len(current.StageHistory) {
		return local
	}
	return current
}

func mergeLongTerm(current, local LongTerm) LongTerm {
	out := LongTerm{
		Global: mergeBucket(current.Global, local.Global),
		Users:  make(map[string]LongTermBucket, len(current.Users)),
	}
	for id, bucket := range current.Users {
		out.Users[id] = bucket
	}
	for id, bucket := range local.Users {
		if existing, ok := out.Users[id]; ok {
			out.Users[id] = mergeBucket(existing, bucket)
		} else {
			out.Users[id] = bucket
		}
	}
	return out
}

func mergeBucket(current, local LongTermBucket) LongTermBucket {
	return LongTermBucket{
		UserPreferences:    appendDedupe(current.UserPreferences, local.UserPreferences, MaxLongTermItems),
		RejectedApproaches: appendDedupe(current.RejectedApproaches, local.RejectedApproaches, MaxLongTermItems),
		FollowUpItems:      appendDedupe(current.FollowUpItems, local.FollowUpItems, MaxLongTermItems),
	}
}

// mergeToolCache 按键合并，时间戳新的胜出
func mergeToolCache(current, local map[string]ToolCacheEntry) map[string]ToolCacheEntry {
	out := make(map[string]ToolCacheEntry, len(current)+len(local))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range local {
		if existing, ok := out[k]; !ok || v.Timestamp.After(existing.Timestamp) {
			out[k] = v
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
