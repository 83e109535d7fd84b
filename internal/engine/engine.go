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

// Package engine 对外门面：记忆更新、上下文构建、引用解析与工具缓存。
package engine

import (
	"context"

	"research-collab/internal/citation"
	"research-collab/internal/memory"
	"research-collab/internal/model/llm"
	"research-collab/pkg/config"
	"research-collab/pkg/errors"
	"research-collab/pkg/log"
	"research-collab/pkg/tracing"
)

// CandidateSource 提供某项目可被引用的候选论文（文库 + 最近搜索结果）
type CandidateSource interface {
	LookupCandidates(ctx context.Context, projectID string) ([]citation.CandidatePaper, error)
}

// CitationLinker 把确认的引用落库，供跨会话复用
type CitationLinker interface {
	PersistCitationLink(ctx context.Context, paperID, referenceID string) error
}

// Engine 会话记忆与引用解析引擎
type Engine struct {
	orchestrator *memory.Orchestrator
	store        memory.Store
	cache        memory.ToolCache
	candidates   CandidateSource
	linker       CitationLinker // 可为 nil
	logger       *log.Logger
}

// Options 引擎装配参数
type Options struct {
	Store      memory.Store
	Cache      memory.ToolCache
	Client     llm.Client
	Candidates CandidateSource
	Linker     CitationLinker
	Logger     *log.Logger
	Engine     config.EngineConfig
	RateLimits map[string]llm.LLMLimitConfig // provider -> 限额，非空时包装限流客户端
}

// New 装配引擎；Store、Client、Candidates 必填
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, "engine requires a memory store")
	}
	if opts.Client == nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, "engine requires an llm client")
	}
	if opts.Candidates == nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, "engine requires a candidate source")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	cache := opts.Cache
	if cache == nil {
		cache = memory.NewMemToolCache(memory.DefaultCacheTTL)
	}

	client := opts.Client
	if len(opts.RateLimits) > 0 {
		client = llm.NewRateLimitedClient(client, llm.NewLLMRateLimiter(opts.RateLimits, nil))
	}

	guard := memory.NewClarificationGuard(opts.Engine.Clarifications)
	orch := memory.NewOrchestrator(opts.Store, client, logger, memory.OrchestratorOptions{
		TokenBudget:        opts.Engine.TokenBudget,
		SummaryMaxWords:    opts.Engine.SummaryMaxWords,
		ExtractionInterval: opts.Engine.ExtractionInterval,
		PruneInterval:      opts.Engine.PruneInterval,
		Guard:              guard,
	})

	return &Engine{
		orchestrator: orch,
		store:        opts.Store,
		cache:        cache,
		candidates:   opts.Candidates,
		linker:       opts.Linker,
		logger:       logger,
	}, nil
}

// UpdateAfterExchange 一次用户↔AI 交换后更新频道记忆。
// LLM 子步骤失败只降级，不影响返回；保存失败记录日志后继续。
func (e *Engine) UpdateAfterExchange(ctx context.Context, channelID, userMsg, aiResp string, history []llm.Message, userID string) (*memory.UpdateResult, error) {
	ctx, span := tracing.StartUpdateSpan(ctx, channelID)
	defer span.End()
	return e.orchestrator.UpdateAfterExchange(ctx, channelID, userMsg, aiResp, history, userID)
}

// BuildContext 渲染下一次补全调用可直接使用的上下文文本
func (e *Engine) BuildContext(ctx context.Context, channelID, userID string) (string, error) {
	return e.orchestrator.BuildContext(ctx, channelID, userID)
}

// ResolveBibliography 解析文档中的引用键并渲染参考文献表。
// 候选来自项目文库与最近搜索结果；匹配成功且论文已入库时写引用链接。
func (e *Engine) ResolveBibliography(ctx context.Context, channelID, projectID, doc string) (*citation.Resolution, error) {
	ctx, span := tracing.StartResolveSpan(ctx, channelID, projectID)
	defer span.End()

	papers, err := e.candidates.LookupCandidates(ctx, projectID)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup citation candidates for project %s", projectID)
	}

	table := citation.GenerateKeys(papers)
	res := citation.Resolve(doc, citation.NewMatcher(table))

	if e.linker != nil {
		for _, entry := range res.Entries {
			if entry.Unmatched || entry.Paper.ReferenceID == "" {
				continue
			}
			if err := e.linker.PersistCitationLink(ctx, entry.Paper.ID, entry.Paper.ReferenceID); err != nil {
				e.logger.Warn("persist citation link failed",
					"paper", entry.Paper.ID, "reference", entry.Paper.ReferenceID, "err", err)
			}
		}
	}

	if len(res.UnmatchedKeys) > 0 {
		e.logger.Warn("bibliography contains unmatched citation keys",
			"channel", channelID, "project", projectID, "keys", res.UnmatchedKeys)
	}
	return res, nil
}

// CacheGet 读工具缓存
func (e *Engine) CacheGet(ctx context.Context, channelID, tool string) (string, bool, error) {
	return e.cache.Get(ctx, channelID, tool)
}

// CachePut 写工具缓存
func (e *Engine) CachePut(ctx context.Context, channelID, tool, result string) error {
	return e.cache.Put(ctx, channelID, tool, result)
}

// Close 释放存储与缓存资源
func (e *Engine) Close() error {
	err := e.cache.Close()
	e.store.Close()
	return err
}
