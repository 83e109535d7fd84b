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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供宿主进程注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		StepDegradedTotal, SaveTotal, SaveFailTotal,
		LLMCallDuration, CitationUnmatchedTotal,
	)
}

// StepDegradedTotal 记忆更新子步骤降级次数（按步骤名）
var StepDegradedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "memory_step_degraded_total",
		Help: "记忆更新子步骤降级次数",
	},
	[]string{"step"}, // summarize | extract | contradiction | stage | longterm
)

// SaveTotal 记忆保存总数
var SaveTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "memory_saves_total",
		Help: "记忆保存总数",
	},
)

// SaveFailTotal 记忆保存失败数（本次交换的更新被丢弃）
var SaveFailTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "memory_save_failures_total",
		Help: "记忆保存失败数",
	},
)

// LLMCallDuration LLM 调用耗时（秒，按用途）
var LLMCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "llm_call_seconds",
		Help:    "LLM 调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"purpose"}, // summarize | extract | contradiction
)

// CitationUnmatchedTotal 未匹配引用键总数
var CitationUnmatchedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "citation_unmatched_total",
		Help: "低于匹配阈值的引用键总数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供宿主 HTTP 层复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
