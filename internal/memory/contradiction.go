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

// noContradictionSentinel 固定哨兵：模型判定无矛盾时必须原样返回
const noContradictionSentinel = "NO_CONTRADICTION"

// ContradictionDetector 用补全引擎检查新陈述是否与既有决定/主题矛盾
type ContradictionDetector struct {
	client llm.Client
}

// NewContradictionDetector 创建矛盾检测器
func NewContradictionDetector(client llm.Client) *ContradictionDetector {
	return &ContradictionDetector{client: client}
}

// Check 返回矛盾说明；无矛盾、无可比对事实或调用失败时返回空串。
// 说明仅作为警告透传给调用方，不写入记录。
func (d *ContradictionDetector) Check(ctx context.Context, facts Facts, statement string) string {
	if len(facts.DecisionsMade) == 0 && facts.ResearchTopic == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("Check whether the new statement contradicts the established research context.\n")
	if facts.ResearchTopic != "" {
		fmt.Fprintf(&b, "Research topic: %s\n", facts.ResearchTopic)
	}
	if len(facts.DecisionsMade) > 0 {
		b.WriteString("Decisions made:\n")
		for _, d := range facts.DecisionsMade {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	fmt.Fprintf(&b, "\nNew statement: %s\n\n", statement)
	fmt.Fprintf(&b, "If there is no contradiction, answer exactly %q. Otherwise answer with one short sentence explaining the contradiction.", noContradictionSentinel)

	start := time.Now()
	out, err := d.client.GenerateWithContext(ctx, b.String(), llm.GenerateOptions{
		Temperature: 0,
		MaxTokens:   120,
	})
	metrics.LLMCallDuration.WithLabelValues("contradiction").Observe(time.Since(start).Seconds())
	if err != nil {
		return ""
	}
	out = strings.TrimSpace(out)
	if out == "" || strings.Contains(out, noContradictionSentinel) {
		return ""
	}
	return out
}
