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
	"regexp"
	"strings"

	"research-collab/pkg/config"
)

// ClarificationSlot 可识别的澄清槽位
type ClarificationSlot struct {
	Name          string
	AskPattern    *regexp.Regexp
	AnswerMarkers []string
	Default       string
}

// defaultSlots 内置槽位；可被配置覆盖
var defaultSlots = []ClarificationSlot{
	{
		Name:          "geographic_scope",
		AskPattern:    regexp.MustCompile(`(?i)global.{0,40}(specific|particular)\s+region|which\s+region|geographic\s+scope|worldwide\s+or`),
		AnswerMarkers: []string{"global", "worldwide", "region", "country", "local", "europe", "asia", "america", "africa"},
		Default:       "global",
	},
	{
		Name:          "time_range",
		AskPattern:    regexp.MustCompile(`(?i)which\s+(?:time\s+)?period|what\s+year\s+range|how\s+recent|publication\s+date\s+range`),
		AnswerMarkers: []string{"year", "recent", "since", "decade", "from 19", "from 20", "last"},
		Default:       "last 10 years",
	},
}

// actionVerbs 判定「可执行请求」的动词表
var actionVerbs = []string{
	"suggest", "find", "search", "list", "give", "show", "write", "generate", "help", "summarize", "recommend",
}

// ClarificationGuard 防止重复澄清提问：识别上一条 AI 回复里的澄清问题，
// 用户未作答却给出可执行请求时，注入禁止重复提问的确定性指令并带上默认值
type ClarificationGuard struct {
	slots []ClarificationSlot
}

// NewClarificationGuard 创建澄清守卫；cfg 为空时用内置槽位
func NewClarificationGuard(cfg []config.ClarificationSlot) *ClarificationGuard {
	if len(cfg) == 0 {
		return &ClarificationGuard{slots: defaultSlots}
	}
	slots := make([]ClarificationSlot, 0, len(cfg))
	for _, c := range cfg {
		re, err := regexp.Compile(c.AskPattern)
		if err != nil {
			continue
		}
		slots = append(slots, ClarificationSlot{
			Name:          c.Name,
			AskPattern:    re,
			AnswerMarkers: c.AnswerMarkers,
			Default:       c.Default,
		})
	}
	if len(slots) == 0 {
		slots = defaultSlots
	}
	return &ClarificationGuard{slots: slots}
}

// Guard 检查上一条 AI 回复与用户新消息；需要拦截时返回注入指令并更新记录状态。
// 返回空串表示无需干预。
func (g *ClarificationGuard) Guard(rec *Record, priorAIResponse, userMsg string) string {
	slot := g.matchSlot(priorAIResponse)
	if slot == nil {
		// 回复不含澄清提问：若此前挂起的槽位已被回答则清除
		if rec.Clarification.PendingSlot != "" && g.answered(rec.Clarification.PendingSlot, userMsg) {
			rec.Clarification.PendingSlot = ""
			rec.Clarification.LastPrompt = ""
		}
		return ""
	}

	rec.Clarification.PendingSlot = slot.Name
	rec.Clarification.DefaultValue = slot.Default

	if g.slotAnswered(slot, userMsg) {
		rec.Clarification.PendingSlot = ""
		rec.Clarification.LastPrompt = ""
		return ""
	}

	// 只统计真正被忽略的提问，同条消息已作答的不算
	rec.Clarification.AskedCount++
	if !isActionable(userMsg) {
		return ""
	}

	instruction := fmt.Sprintf(
		"Do not ask the %s clarification question again; the user did not answer it. Assume %q and proceed with the request.",
		slot.Name, slot.Default)
	rec.Clarification.LastPrompt = instruction
	return instruction
}

func (g *ClarificationGuard) matchSlot(aiResponse string) *ClarificationSlot {
	for i := range g.slots {
		if g.slots[i].AskPattern.MatchString(aiResponse) {
			return &g.slots[i]
		}
	}
	return nil
}

func (g *ClarificationGuard) answered(slotName, userMsg string) bool {
	for i := range g.slots {
		if g.slots[i].Name == slotName {
			return g.slotAnswered(&g.slots[i], userMsg)
		}
	}
	return false
}

func (g *ClarificationGuard) slotAnswered(slot *ClarificationSlot, userMsg string) bool {
	lower := strings.ToLower(userMsg)
	for _, marker := range slot.AnswerMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isActionable 用户消息是否为可执行请求（疑问号或动词开头的指令）
func isActionable(userMsg string) bool {
	if strings.Contains(userMsg, "?") {
		return true
	}
	lower := strings.ToLower(userMsg)
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}
