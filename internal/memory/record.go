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
	"time"
	"unicode"
)

// 各列表上限；任何更新后都不得超过
const (
	MaxPapersDiscussed     = 20
	MaxDecisions           = 20
	MaxPendingQuestions    = 10
	MaxUnansweredQuestions = 5
	MaxMethodologyNotes    = 10
	MaxKeyQuotes           = 5
	MaxStageHistory        = 10
	MaxLongTermItems       = 10
)

// RecordVersion 当前记录 schema 版本；读取端对缺失字段按默认值补齐
const RecordVersion = 1

// Record 单个会话 channel 的持久化记忆
type Record struct {
	Version       int                       `json:"version"`
	Summary       string                    `json:"summary,omitempty"`
	Facts         Facts                     `json:"facts"`
	ResearchState ResearchState             `json:"research_state"`
	LongTerm      LongTerm                  `json:"long_term"`
	KeyQuotes     []string                  `json:"key_quotes,omitempty"`
	Clarification Clarification             `json:"clarification_state"`
	ToolCache     map[string]ToolCacheEntry `json:"tool_cache,omitempty"`
	ExchangeCount int                       `json:"exchange_count"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// Facts 抽取出的研究事实
type Facts struct {
	ResearchTopic       string      `json:"research_topic,omitempty"`
	ResearchQuestion    string      `json:"research_question,omitempty"`
	PapersDiscussed     []PaperNote `json:"papers_discussed,omitempty"`
	DecisionsMade       []string    `json:"decisions_made,omitempty"`
	PendingQuestions    []string    `json:"pending_questions,omitempty"`
	UnansweredQuestions []string    `json:"unanswered_questions,omitempty"`
	MethodologyNotes    []string    `json:"methodology_notes,omitempty"`
}

// PaperNote 讨论过的论文记录
type PaperNote struct {
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	Relevance    string `json:"relevance,omitempty"`
	UserReaction string `json:"user_reaction,omitempty"`
}

// ResearchState 研究阶段状态机
type ResearchState struct {
	Stage           Stage             `json:"stage"`
	StageConfidence float64           `json:"stage_confidence"`
	StageHistory    []StageTransition `json:"stage_history,omitempty"`
}

// StageTransition 一次被接受的阶段迁移
type StageTransition struct {
	From       Stage     `json:"from"`
	To         Stage     `json:"to"`
	At         time.Time `json:"at"`
	Confidence float64   `json:"confidence"`
}

// LongTerm 长期偏好：全局桶 + 每用户桶
type LongTerm struct {
	Global LongTermBucket            `json:"global"`
	Users  map[string]LongTermBucket `json:"users,omitempty"`
}

// LongTermBucket 偏好/拒绝/待回访列表，各自上限 MaxLongTermItems
type LongTermBucket struct {
	UserPreferences    []string `json:"user_preferences,omitempty"`
	RejectedApproaches []string `json:"rejected_approaches,omitempty"`
	FollowUpItems      []string `json:"follow_up_items,omitempty"`
}

// Clarification 澄清问题防重状态
type Clarification struct {
	PendingSlot  string `json:"pending_slot,omitempty"`
	AskedCount   int    `json:"asked_count"`
	DefaultValue string `json:"default_value,omitempty"`
	LastPrompt   string `json:"last_prompt,omitempty"`
}

// ToolCacheEntry 工具结果缓存项
type ToolCacheEntry struct {
	Result    string    `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord 创建带默认值的记录（channel 首次访问时）
func NewRecord() *Record {
	return &Record{
		Version: RecordVersion,
		ResearchState: ResearchState{
			Stage:           StageExploring,
			StageConfidence: 0.5,
		},
		LongTerm:  LongTerm{Users: make(map[string]LongTermBucket)},
		ToolCache: make(map[string]ToolCacheEntry),
		UpdatedAt: time.Now(),
	}
}

// Normalize 对缺失字段补默认值；读到旧版本或残缺记录时调用，从不失败
func (r *Record) Normalize() {
	if r.Version == 0 {
		r.Version = RecordVersion
	}
	if r.ResearchState.Stage == "" {
		r.ResearchState.Stage = StageExploring
		r.ResearchState.StageConfidence = 0.5
	}
	if r.LongTerm.Users == nil {
		r.LongTerm.Users = make(map[string]LongTermBucket)
	}
	if r.ToolCache == nil {
		r.ToolCache = make(map[string]ToolCacheEntry)
	}
	r.Prune()
}

// Fingerprint 引语去重指纹：小写、标点剥离、空白折叠
func Fingerprint(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// 剥离标点
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// AddQuote 按指纹去重追加引语；重复时保留更长或以标点收尾的版本，上限 MaxKeyQuotes
func (r *Record) AddQuote(quote string) {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return
	}
	fp := Fingerprint(quote)
	if fp == "" {
		return
	}
	for i, existing := range r.KeyQuotes {
		if Fingerprint(existing) == fp {
			if preferQuote(quote, existing) {
				r.KeyQuotes[i] = quote
			}
			return
		}
	}
	r.KeyQuotes = append(r.KeyQuotes, quote)
	if len(r.KeyQuotes) > MaxKeyQuotes {
		r.KeyQuotes = r.KeyQuotes[len(r.KeyQuotes)-MaxKeyQuotes:]
	}
}

// preferQuote 判断 candidate 是否应替换 existing（更长，或以句末标点收尾）
func preferQuote(candidate, existing string) bool {
	if len(candidate) > len(existing) {
		return true
	}
	if len(candidate) == len(existing) {
		return strings.ContainsAny(string(candidate[len(candidate)-1]), ".!?")
	}
	candEnds := strings.ContainsAny(string(candidate[len(candidate)-1]), ".!?")
	exEnds := strings.ContainsAny(string(existing[len(existing)-1]), ".!?")
	return candEnds && !exEnds
}

// Prune 执行上限收敛：保留各列表最近的条目
func (r *Record) Prune() {
	r.Facts.PapersDiscussed = tailPapers(r.Facts.PapersDiscussed, MaxPapersDiscussed)
	r.Facts.DecisionsMade = tailStrings(r.Facts.DecisionsMade, MaxDecisions)
	r.Facts.PendingQuestions = tailStrings(r.Facts.PendingQuestions, MaxPendingQuestions)
	r.Facts.UnansweredQuestions = tailStrings(r.Facts.UnansweredQuestions, MaxUnansweredQuestions)
	r.Facts.MethodologyNotes = tailStrings(r.Facts.MethodologyNotes, MaxMethodologyNotes)
	r.KeyQuotes = tailStrings(r.KeyQuotes, MaxKeyQuotes)
	r.ResearchState.StageHistory = tailTransitions(r.ResearchState.StageHistory, MaxStageHistory)
	r.LongTerm.Global = pruneBucket(r.LongTerm.Global)
	for id, bucket := range r.LongTerm.Users {
		r.LongTerm.Users[id] = pruneBucket(bucket)
	}
}

func pruneBucket(b LongTermBucket) LongTermBucket {
	b.UserPreferences = tailStrings(b.UserPreferences, MaxLongTermItems)
	b.RejectedApproaches = tailStrings(b.RejectedApproaches, MaxLongTermItems)
	b.FollowUpItems = tailStrings(b.FollowUpItems, MaxLongTermItems)
	return b
}

func tailStrings(list []string, max int) []string {
	if len(list) <= max {
		return list
	}
	return list[len(list)-max:]
}

func tailPapers(list []PaperNote, max int) []PaperNote {
	if len(list) <= max {
		return list
	}
	return list[len(list)-max:]
}

func tailTransitions(list []StageTransition, max int) []StageTransition {
	if len(list) <= max {
		return list
	}
	return list[len(list)-max:]
}

// appendDedupe 追加去重（大小写不敏感），超限保留最近条目
func appendDedupe(list []string, items []string, max int) []string {
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		dup := false
		for _, existing := range list {
			if strings.EqualFold(existing, item) {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return tailStrings(list, max)
}
