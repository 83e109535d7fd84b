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
	"sync"
)

// MemStore 内存实现：开发与测试用，合并语义与 Postgres 实现保持一致
type MemStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

// NewMemStore 创建内存存储
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string][]byte)}
}

// Load 读取记录；不存在时返回默认记录
func (s *MemStore) Load(ctx context.Context, channelID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.records[channelID]
	if !ok {
		return NewRecord(), nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// 损坏的记录按默认值重建，读取从不失败
		return NewRecord(), nil
	}
	rec.Normalize()
	return &rec, nil
}

// Save 锁下重读-合并-写回
func (s *MemStore) Save(ctx context.Context, channelID string, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := rec
	if data, ok := s.records[channelID]; ok {
		var current Record
		if err := json.Unmarshal(data, &current); err == nil {
			current.Normalize()
			merged = Merge(&current, rec)
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	s.records[channelID] = data
	return nil
}

// Close 无资源需要释放
func (s *MemStore) Close() {}
