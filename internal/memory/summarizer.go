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
	"fmt"
	"strings"
	"time"

	"research-collab/internal/model/llm"
	"research-collab/pkg/metrics"
)

// 摘要默认参数
const (
	DefaultTokenBudget     = 3000
	DefaultSummaryMaxWords = 300
	firstSummaryMinTurns   = 6
)

// Summarizer 令牌预算摘要器：历史超出预算时把较旧的一半递归并入运行摘要
type Summarizer struct {
	client   llm.Client
	budget   int
	maxWords int
}

// NewSummarizer 创建摘要器；budget/maxWords <=0 时用默认值
func NewSummarizer(client llm.Client, budget, maxWords int) *Summarizer {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	if maxWords <= 0 {
		maxWords = DefaultSummaryMaxWords
	}
	return &Summarizer{client: client, budget: budget, maxWords: maxWords}
}

// Update 返回新摘要。补全调用失败时降级为保留旧摘要，从不返回错误；
// degraded 为 true 表示本次发生了降级。
func (s *Summarizer) Update(ctx context.Context, history []llm.Message, prior string) (summary string, degraded bool) {
	if len(history) == 0 {
		return prior, false
	}

	tokens := llm.MessagesTokens(history)
	switch {
	case tokens > s.budget:
		// 超出预算：较旧的一半并入现有摘要
		half := history[:len(history)/2]
		return s.summarize(ctx, half, prior)
	case prior == "" && len(history) >= firstSummaryMinTurns:
		// 增量首摘要：对全部历史生成
		return s.summarize(ctx, history, "")
	default:
		return prior, false
	}
}

func (s *Summarizer) summarize(ctx context.Context, turns []llm.Message, prior string) (string, bool) {
	var b strings.Builder
	if prior != "" {
		fmt.Fprintf(&b, "Existing summary of the earlier conversation:\n%s\n\n", prior)
		b.WriteString("Merge the following newer turns into the summary above, producing one updated summary.\n")
	} else {
		b.WriteString("Summarize the following research conversation.\n")
	}
	fmt.Fprintf(&b, "Keep it under %d words, bullet-oriented, preserving the research topic, question, decisions and paper discussions.\n\n", s.maxWords)
	for _, m := range turns {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	start := time.Now()
	out, err := s.client.GenerateWithContext(ctx, b.String(), llm.GenerateOptions{
		Temperature: 0.2,
		MaxTokens:   s.maxWords * 2,
	})
	metrics.LLMCallDuration.WithLabelValues("summarize").Observe(time.Since(start).Seconds())
	if err != nil || strings.TrimSpace(out) == "" {
		return prior, true
	}
	return strings.TrimSpace(out), false
}
