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
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"research-collab/internal/model/llm"
	"research-collab/pkg/metrics"
)

// DefaultExtractionInterval 无显式标记时每 N 次交换做一次 LLM 抽取
const DefaultExtractionInterval = 3

// maxTopicLen 从研究问题派生主题时的长度上限
const maxTopicLen = 180

// 显式标记：命中即本次交换必做 LLM 抽取
var explicitMarkerRe = regexp.MustCompile(`(?i)\b(?:my|our)\s+research\s+question\s+is|\bi\s+prefer\b|\bi\s+decided\b|\bi\s+don'?t\s+want\b|\b(?:my|our)\s+topic\s+is|\bwe\s+decided\b`)

// 快速路径：显式研究问题/主题声明
var (
	researchQuestionRe = regexp.MustCompile(`(?i)(?:my|our|the)\s+research\s+question\s+is\s*[:,]?\s*(.+)`)
	topicRe            = regexp.MustCompile(`(?i)(?:my|our)\s+(?:research\s+)?topic\s+is\s*[:,]?\s*(.+)`)
)

// 问句形态：疑问引导词开头、以问号收尾的独立问句
var implicitQuestionRe = regexp.MustCompile(`(?i)^(?:how|why|what|whether)\b[^.!?]*\?$`)

// 引语触发词：含这些短语的句子按原样捕获
var quoteMarkers = []string{
	"i want", "i decided", "my research question", "i need", "our goal",
}

// Extractor 事实与引语抽取器：正则快速路径每次交换运行，
// LLM 路径受显式标记与交换间隔约束以控制调用量
type Extractor struct {
	client   llm.Client
	interval int
}

// NewExtractor 创建抽取器；interval < 3 时用默认值
func NewExtractor(client llm.Client, interval int) *Extractor {
	if interval < DefaultExtractionInterval {
		interval = DefaultExtractionInterval
	}
	return &Extractor{client: client, interval: interval}
}

// ShouldExtract 是否对本次交换执行 LLM 抽取
func (e *Extractor) ShouldExtract(rec *Record, userMsg string) bool {
	if explicitMarkerRe.MatchString(userMsg) {
		return true
	}
	if rec.Facts.ResearchTopic == "" {
		return true
	}
	return rec.ExchangeCount%e.interval == 0
}

// FastPath 纯正则路径：每次交换运行，无 LLM 调用。
// 研究问题：显式声明标记可随时覆盖；字段为空时独立问句也可作为初始值，
// 但普通提问不得覆盖已有的研究问题。
func (e *Extractor) FastPath(rec *Record, userMsg string) {
	if m := researchQuestionRe.FindStringSubmatch(userMsg); m != nil {
		q := trimClause(m[1])
		if q != "" {
			rec.Facts.ResearchQuestion = q
		}
	}
	if m := topicRe.FindStringSubmatch(userMsg); m != nil {
		t := trimClause(m[1])
		if t != "" {
			rec.Facts.ResearchTopic = t
		}
	}
	if rec.Facts.ResearchQuestion == "" {
		if msg := strings.TrimSpace(userMsg); implicitQuestionRe.MatchString(msg) {
			rec.Facts.ResearchQuestion = trimClause(msg)
		}
	}
	// 无显式主题时从研究问题派生
	if rec.Facts.ResearchTopic == "" && rec.Facts.ResearchQuestion != "" {
		rec.Facts.ResearchTopic = deriveTopic(rec.Facts.ResearchQuestion)
	}

	for _, q := range captureQuotes(userMsg) {
		rec.AddQuote(q)
	}
}

// Extract LLM 路径：返回仅含新增/变更字段的 JSON，合并进记录。
// 调用失败降级为不变更，degraded 为 true。
func (e *Extractor) Extract(ctx context.Context, rec *Record, userMsg, aiResp string, history []llm.Message) (degraded bool) {
	prompt := e.buildPrompt(rec, userMsg, aiResp, history)
	start := time.Now()
	out, err := e.client.GenerateWithContext(ctx, prompt, llm.GenerateOptions{
		Temperature: 0,
		MaxTokens:   600,
	})
	metrics.LLMCallDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	if err != nil {
		return true
	}

	raw, ok := extractJSON(out)
	if !ok {
		return true
	}
	var partial extractedFacts
	if err := json.Unmarshal(raw, &partial); err != nil {
		return true
	}
	applyExtracted(rec, &partial)
	return false
}

// extractedFacts LLM 返回的增量字段
type extractedFacts struct {
	ResearchTopic       string      `json:"research_topic"`
	ResearchQuestion    string      `json:"research_question"`
	PapersDiscussed     []PaperNote `json:"papers_discussed"`
	DecisionsMade       []string    `json:"decisions_made"`
	PendingQuestions    []string    `json:"pending_questions"`
	UnansweredQuestions []string    `json:"unanswered_questions"`
	MethodologyNotes    []string    `json:"methodology_notes"`
	KeyQuotes           []string    `json:"key_quotes"`
}

// applyExtracted 合并规则：标量覆盖，数组按大小写不敏感键追加去重
func applyExtracted(rec *Record, partial *extractedFacts) {
	if partial.ResearchTopic != "" {
		rec.Facts.ResearchTopic = partial.ResearchTopic
	}
	if partial.ResearchQuestion != "" {
		rec.Facts.ResearchQuestion = partial.ResearchQuestion
	}
	rec.Facts.PapersDiscussed = mergePapers(rec.Facts.PapersDiscussed, partial.PapersDiscussed)
	rec.Facts.DecisionsMade = appendDedupe(rec.Facts.DecisionsMade, partial.DecisionsMade, MaxDecisions)
	rec.Facts.PendingQuestions = appendDedupe(rec.Facts.PendingQuestions, partial.PendingQuestions, MaxPendingQuestions)
	rec.Facts.UnansweredQuestions = appendDedupe(rec.Facts.UnansweredQuestions, partial.UnansweredQuestions, MaxUnansweredQuestions)
	rec.Facts.MethodologyNotes = appendDedupe(rec.Facts.MethodologyNotes, partial.MethodologyNotes, MaxMethodologyNotes)
	for _, q := range partial.KeyQuotes {
		rec.AddQuote(q)
	}
}

func (e *Extractor) buildPrompt(rec *Record, userMsg, aiResp string, history []llm.Message) string {
	var b strings.Builder
	b.WriteString("You maintain structured research-conversation memory. ")
	b.WriteString("Given the current facts and the latest exchange, return ONLY a JSON object containing fields that are NEW or CHANGED. Omit everything unchanged.\n")
	b.WriteString(`Fields: research_topic, research_question, papers_discussed (title/author/relevance/user_reaction), decisions_made, pending_questions, unanswered_questions, methodology_notes, key_quotes.` + "\n\n")

	facts, _ := json.Marshal(rec.Facts)
	fmt.Fprintf(&b, "Current facts:\n%s\n\n", facts)
	if len(rec.KeyQuotes) > 0 {
		quotes, _ := json.Marshal(rec.KeyQuotes)
		fmt.Fprintf(&b, "Existing quotes:\n%s\n\n", quotes)
	}

	userTurns := lastUserTurns(history, 3)
	if len(userTurns) > 0 {
		b.WriteString("Recent user turns:\n")
		for _, t := range userTurns {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "This exchange:\nuser: %s\nassistant: %s\n", userMsg, aiResp)
	return b.String()
}

// lastUserTurns 取最近 n 条用户消息
func lastUserTurns(history []llm.Message, n int) []string {
	var turns []string
	for i := len(history) - 1; i >= 0 && len(turns) < n; i-- {
		if history[i].Role == "user" {
			turns = append([]string{history[i].Content}, turns...)
		}
	}
	return turns
}

// captureQuotes 关键词触发的句子捕获
func captureQuotes(text string) []string {
	var quotes []string
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, marker := range quoteMarkers {
			if strings.Contains(lower, marker) {
				quotes = append(quotes, strings.TrimSpace(sentence))
				break
			}
		}
	}
	return quotes
}

// splitSentences 按句末标点切分，保留终止符
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(text[start : i+1])
			if s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// trimClause 截取到句末并去掉终止标点
func trimClause(s string) string {
	if idx := strings.IndexAny(s, ".!?\n"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// deriveTopic 从研究问题派生主题（去疑问引导词，限长）
func deriveTopic(question string) string {
	topic := strings.TrimSpace(question)
	lower := strings.ToLower(topic)
	for _, prefix := range []string{"how ", "why ", "what ", "whether ", "when ", "where "} {
		if strings.HasPrefix(lower, prefix) {
			topic = strings.TrimSpace(topic[len(prefix):])
			break
		}
	}
	if len(topic) > maxTopicLen {
		topic = strings.TrimSpace(topic[:maxTopicLen])
	}
	if topic == "" {
		topic = question
		if len(topic) > maxTopicLen {
			topic = topic[:maxTopicLen]
		}
	}
	return topic
}

// extractJSON 容忍代码围栏与前后杂讯，取第一个 { 到最后一个 }；
// 完全没有 JSON 对象时 ok 为 false，调用方按降级处理
func extractJSON(s string) ([]byte, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return []byte(s[start : end+1]), true
}
