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
	"time"

	"research-collab/internal/model/llm"
	"research-collab/pkg/log"
	"research-collab/pkg/metrics"
)

// 子步骤名称，用于日志与指标
const (
	StepSummarize     = "summarize"
	StepExtract       = "extract"
	StepContradiction = "contradiction"
	StepStage         = "stage"
	StepSave          = "save"
)

// StepResult 单个子步骤的结果：哪一步、是否降级、降级原因
type StepResult struct {
	Step     string
	Degraded bool
	Err      error
}

// UpdateResult 一次交换后的记忆更新结果
type UpdateResult struct {
	ContradictionWarning string
	Steps                []StepResult
	Saved                bool
}

// Orchestrator 每次用户↔AI 交换后的记忆更新管线：
// 摘要 → 抽取 → 矛盾检测 → 阶段分类 → 长期/澄清 → 整理 → 一次保存。
// 所有 LLM 子步骤失败都降级为「该步不变更」，从不让调用请求失败。
type Orchestrator struct {
	store         Store
	summarizer    *Summarizer
	extractor     *Extractor
	contradiction *ContradictionDetector
	guard         *ClarificationGuard
	pruneInterval int
	logger        *log.Logger
}

// OrchestratorOptions 管线参数
type OrchestratorOptions struct {
	TokenBudget        int
	SummaryMaxWords    int
	ExtractionInterval int
	PruneInterval      int
	Guard              *ClarificationGuard
}

// NewOrchestrator 创建更新管线
func NewOrchestrator(store Store, client llm.Client, logger *log.Logger, opts OrchestratorOptions) *Orchestrator {
	if logger == nil {
		logger = log.Nop()
	}
	pruneInterval := opts.PruneInterval
	if pruneInterval <= 0 {
		pruneInterval = 10
	}
	guard := opts.Guard
	if guard == nil {
		guard = NewClarificationGuard(nil)
	}
	return &Orchestrator{
		store:         store,
		summarizer:    NewSummarizer(client, opts.TokenBudget, opts.SummaryMaxWords),
		extractor:     NewExtractor(client, opts.ExtractionInterval),
		contradiction: NewContradictionDetector(client),
		guard:         guard,
		pruneInterval: pruneInterval,
		logger:        logger,
	}
}

// UpdateAfterExchange 执行完整更新管线并保存一次。
// 返回矛盾警告（可为空）；保存失败记录日志后继续，调用方保留本地视图。
func (o *Orchestrator) UpdateAfterExchange(ctx context.Context, channelID, userMsg, aiResp string, history []llm.Message, userID string) (*UpdateResult, error) {
	rec, err := o.store.Load(ctx, channelID)
	if err != nil {
		return nil, err
	}
	result := &UpdateResult{}

	rec.ExchangeCount++
	rec.UpdatedAt = time.Now()

	// 摘要：历史超预算时压缩较旧一半
	summary, degraded := o.summarizer.Update(ctx, history, rec.Summary)
	rec.Summary = summary
	o.recordStep(result, channelID, StepSummarize, degraded, nil)

	// 矛盾检测要对照抽取前的既有事实，否则新陈述会先覆盖被它矛盾的主题/决定
	priorFacts := rec.Facts

	// 快速路径每次交换都跑；LLM 抽取受标记与间隔约束
	o.extractor.FastPath(rec, userMsg)
	if o.extractor.ShouldExtract(rec, userMsg) {
		degraded = o.extractor.Extract(ctx, rec, userMsg, aiResp, history)
		o.recordStep(result, channelID, StepExtract, degraded, nil)

		// 仅在更新事实时做矛盾检测
		if warning := o.contradiction.Check(ctx, priorFacts, userMsg); warning != "" {
			result.ContradictionWarning = warning
		}
	}

	ApplyStage(rec, ClassifyStage(rec.ResearchState.Stage, userMsg, aiResp))
	TrackLongTerm(rec, userMsg, userID)

	// 上一条 AI 回复是 history 的末尾（本次交换之前）
	priorAI := lastAssistantTurn(history)
	o.guard.Guard(rec, priorAI, userMsg)

	if rec.ExchangeCount%o.pruneInterval == 0 {
		rec.Prune()
	}

	if err := o.store.Save(ctx, channelID, rec); err != nil {
		metrics.SaveFailTotal.Inc()
		o.logger.Warn("memory save failed, update lost for this exchange",
			"channel", channelID, "err", err)
		o.recordStep(result, channelID, StepSave, true, err)
	} else {
		metrics.SaveTotal.Inc()
		result.Saved = true
	}

	return result, nil
}

// BuildContext 加载记录并渲染上下文摘要
func (o *Orchestrator) BuildContext(ctx context.Context, channelID, userID string) (string, error) {
	rec, err := o.store.Load(ctx, channelID)
	if err != nil {
		return "", err
	}
	return BuildContext(rec, userID), nil
}

func (o *Orchestrator) recordStep(result *UpdateResult, channelID, step string, degraded bool, err error) {
	result.Steps = append(result.Steps, StepResult{Step: step, Degraded: degraded, Err: err})
	if degraded {
		metrics.StepDegradedTotal.WithLabelValues(step).Inc()
		o.logger.Warn("memory update step degraded", "channel", channelID, "step", step, "err", err)
	}
}

func lastAssistantTurn(history []llm.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			return history[i].Content
		}
	}
	return ""
}
