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

package citation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recentSearchWindow 最近搜索结果参与候选池的时间窗
const recentSearchWindow = 24 * time.Hour

// PgSource PostgreSQL 候选论文源：项目文库 + 最近搜索结果，
// 同时负责把确认的引用关联落库
type PgSource struct {
	pool *pgxpool.Pool
}

// NewPgSource 创建基于 PostgreSQL 的候选源
func NewPgSource(ctx context.Context, dsn string) (*PgSource, error) {
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
	return &PgSource{pool: pool}, nil
}

// NewPgSourceFromPool 复用已有连接池
func NewPgSourceFromPool(pool *pgxpool.Pool) *PgSource {
	return &PgSource{pool: pool}
}

// Close 关闭连接池
func (s *PgSource) Close() {
	s.pool.Close()
}

// LookupCandidates 返回项目的候选论文：文库引用优先，再补充时间窗内的搜索结果
func (s *PgSource) LookupCandidates(ctx context.Context, projectID string) ([]CandidatePaper, error) {
	var papers []CandidatePaper

	rows, err := s.pool.Query(ctx,
		`SELECT reference_id, paper FROM project_references
		 WHERE project_id = $1 ORDER BY added_at`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var refID string
		var data []byte
		if err := rows.Scan(&refID, &data); err != nil {
			return nil, err
		}
		var p CandidatePaper
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		p.ReferenceID = refID
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	searchRows, err := s.pool.Query(ctx,
		`SELECT paper FROM search_results
		 WHERE project_id = $1 AND fetched_at > $2 ORDER BY fetched_at DESC`,
		projectID, time.Now().Add(-recentSearchWindow))
	if err != nil {
		return nil, err
	}
	defer searchRows.Close()
	for searchRows.Next() {
		var data []byte
		if err := searchRows.Scan(&data); err != nil {
			return nil, err
		}
		var p CandidatePaper
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		papers = append(papers, p)
	}
	if err := searchRows.Err(); err != nil {
		return nil, err
	}

	return papers, nil
}

// PersistCitationLink 记录论文与文库引用的关联，重复写入幂等
func (s *PgSource) PersistCitationLink(ctx context.Context, paperID, referenceID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO citation_links (paper_id, reference_id, linked_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (paper_id, reference_id) DO NOTHING`,
		paperID, referenceID)
	return err
}
