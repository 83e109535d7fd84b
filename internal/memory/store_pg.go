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
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore Postgres 实现：conversation_memory 表，记录为 JSONB blob。
// Save 在事务内 SELECT ... FOR UPDATE 锁行后合并写回，失败回滚。
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore 创建基于 PostgreSQL 的记忆存储；dsn 为连接串
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PgStore{pool: pool}, nil
}

// Close 关闭连接池
func (s *PgStore) Close() {
	s.pool.Close()
}

// Load 读取记录；无行或记录损坏时返回默认记录（schema 漂移按默认值补齐）
func (s *PgStore) Load(ctx context.Context, channelID string) (*Record, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM conversation_memory WHERE channel_id = $1`,
		channelID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return NewRecord(), nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return NewRecord(), nil
	}
	rec.Normalize()
	return &rec, nil
}

// Save 锁行-重读-合并-写回；任何失败回滚，调用方保留本地未保存视图
func (s *PgStore) Save(ctx context.Context, channelID string, rec *Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	merged := rec
	var data []byte
	err = tx.QueryRow(ctx,
		`SELECT record FROM conversation_memory WHERE channel_id = $1 FOR UPDATE`,
		channelID).Scan(&data)
	switch {
	case err == nil:
		var current Record
		if jsonErr := json.Unmarshal(data, &current); jsonErr == nil {
			current.Normalize()
			merged = Merge(&current, rec)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// 首次保存，无需合并
	default:
		return err
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO conversation_memory (channel_id, record, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (channel_id) DO UPDATE SET record = $2, updated_at = now()`,
		channelID, out)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
