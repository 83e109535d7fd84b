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
	"math"
	"strings"
	"time"
)

// Stage 研究阶段
type Stage string

// 五个有序阶段
const (
	StageExploring     Stage = "exploring"
	StageRefining      Stage = "refining"
	StageFindingPapers Stage = "finding_papers"
	StageAnalyzing     Stage = "analyzing"
	StageWriting       Stage = "writing"
)

// aiWeight AI 文本折扣：助手自己的建议不应推动状态机
const aiWeight = 0.3

// transitionThreshold 惯性规则：离开当前阶段需要的最低得分
const transitionThreshold = 1.3

// stagePriority 平局时优先更靠后（更具体）的阶段
var stagePriority = []Stage{StageWriting, StageAnalyzing, StageFindingPapers, StageRefining, StageExploring}

// stageKeywords 各阶段的固定关键词表
var stageKeywords = map[Stage][]string{
	StageExploring: {
		"interested in", "curious about", "want to learn", "what is", "tell me about",
		"new to", "getting started", "explore", "overview of", "broad",
	},
	StageRefining: {
		"research question", "narrow down", "focus on", "refine", "more specific",
		"scope", "hypothesis", "define", "clarify my", "angle",
	},
	StageFindingPapers: {
		"find papers", "search for", "literature", "references", "sources",
		"citations for", "look for studies", "recent papers", "key papers", "survey",
	},
	StageAnalyzing: {
		"compare", "analyze", "methodology", "results show", "findings",
		"synthesize", "contrast", "evaluate", "critique", "gaps in",
	},
	StageWriting: {
		"draft", "write up", "introduction section", "abstract", "outline",
		"paragraph", "revise", "wording", "manuscript", "bibliography",
	},
}

// StageResult 一次分类的结果
type StageResult struct {
	Stage        Stage
	Confidence   float64
	Transitioned bool
}

// ClassifyStage 基于关键词得分对本次交换做阶段分类。
// 得分 = 用户消息命中数 + 0.3×AI 回复命中数；最高分为 0 时保持现状（置信度 0.5）；
// 平局按 writing > analyzing > finding_papers > refining > exploring 取先；
// 迁移仅在胜出得分 ≥ 1.3 时接受，否则维持当前阶段（置信度 0.6）。
func ClassifyStage(current Stage, userMsg, aiResp string) StageResult {
	if current == "" {
		current = StageExploring
	}
	userLower := strings.ToLower(userMsg)
	aiLower := strings.ToLower(aiResp)

	scores := make(map[Stage]float64, len(stageKeywords))
	for stage, keywords := range stageKeywords {
		var score float64
		for _, kw := range keywords {
			if strings.Contains(userLower, kw) {
				score += 1
			}
			if strings.Contains(aiLower, kw) {
				score += aiWeight
			}
		}
		scores[stage] = score
	}

	best := current
	var bestScore float64
	for _, stage := range stagePriority {
		if scores[stage] > bestScore {
			best = stage
			bestScore = scores[stage]
		}
	}

	if bestScore == 0 {
		return StageResult{Stage: current, Confidence: 0.5}
	}

	confidence := math.Min(0.9, 0.5+0.1*bestScore)
	if best == current {
		return StageResult{Stage: current, Confidence: confidence}
	}
	if bestScore < transitionThreshold {
		return StageResult{Stage: current, Confidence: 0.6}
	}
	return StageResult{Stage: best, Confidence: confidence, Transitioned: true}
}

// ApplyStage 将分类结果写入记录；被接受的迁移追加到历史（上限 MaxStageHistory）
func ApplyStage(rec *Record, result StageResult) {
	if result.Transitioned {
		rec.ResearchState.StageHistory = append(rec.ResearchState.StageHistory, StageTransition{
			From:       rec.ResearchState.Stage,
			To:         result.Stage,
			At:         time.Now(),
			Confidence: result.Confidence,
		})
		rec.ResearchState.StageHistory = tailTransitions(rec.ResearchState.StageHistory, MaxStageHistory)
		rec.ResearchState.Stage = result.Stage
	}
	rec.ResearchState.StageConfidence = result.Confidence
}
