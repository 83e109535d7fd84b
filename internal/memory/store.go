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

	"research-collab/pkg/config"
	"research-collab/pkg/errors"
)

// Store 会话记忆存储。Save 必须实现「锁行-重读-合并-写回」：
// 并发写同一 channel 时双方的修改都不丢失，仅提交被串行化。
type Store interface {
	// Load 读取 channel 的记录；不存在时返回带默认值的新记录
	Load(ctx context.Context, channelID string) (*Record, error)
	// Save 合并写回；失败时调用方保留本地视图（记录日志，非致命）
	Save(ctx context.Context, channelID string, rec *Record) error
	// Close 释放底层资源
	Close()
}

// NewStore 根据配置创建存储
func NewStore(ctx context.Context, cfg config.MemoryStoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemStore(), nil
	case "postgres":
		return NewPgStore(ctx, cfg.DSN)
	default:
		return nil, errors.Wrapf(errors.ErrUnsupported, "memory store type %q", cfg.Type)
	}
}
