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
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// matchThreshold 模糊匹配的最低接受分
const matchThreshold = 50

// yearRe 键中第一段连续 4 位数字视为年份
var yearRe = regexp.MustCompile(`\d{4}`)

// keyParts 从引用键解析出的三段：作者、年份、标题词
type keyParts struct {
	author string
	year   int
	title  string
}

// parseKey 按「作者+年份+标题词」拆键；没有年份时整键当作者处理
func parseKey(key string) keyParts {
	key = strings.ToLower(strings.TrimSpace(key))
	loc := yearRe.FindStringIndex(key)
	if loc == nil {
		return keyParts{author: key}
	}
	year, _ := strconv.Atoi(key[loc[0]:loc[1]])
	return keyParts{
		author: key[:loc[0]],
		year:   year,
		title:  key[loc[1]:],
	}
}

// Matcher 把 LLM 输出的引用键落到候选论文上。
// 精确命中优先；否则拆键打分，低于阈值判定为未匹配。
type Matcher struct {
	table map[string]*CandidatePaper
	keys  []string // 排序后的键序，保证匹配确定性
}

// NewMatcher 用同一批候选构建匹配器；table 来自 GenerateKeys
func NewMatcher(table map[string]*CandidatePaper) *Matcher {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Matcher{table: table, keys: keys}
}

// Match 解析单个引用键；未匹配时返回 nil
func (m *Matcher) Match(key string) *CandidatePaper {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil
	}
	if p, ok := m.table[key]; ok {
		return p
	}

	parts := parseKey(key)
	var best *CandidatePaper
	bestScore := 0
	for _, tk := range m.keys {
		p := m.table[tk]
		score := scoreCandidate(parts, key, p)
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	if bestScore < matchThreshold {
		return nil
	}
	return best
}

// scoreCandidate 对单个候选打分。
// 年份：相等 +40，两边都有但不等 −20。
// 作者：姓氏相等 +35，一方包含另一方 +25，共享前缀 ≥len−1 +20，原始键包含姓氏 +15。
// 标题：首实义词相等 +30，互相包含 +20，原始键包含标题词 +10。
func scoreCandidate(parts keyParts, rawKey string, p *CandidatePaper) int {
	score := 0

	if parts.year > 0 && p.Year > 0 {
		if parts.year == p.Year {
			score += 40
		} else {
			score -= 20
		}
	}

	author := stripNonAlnum(strings.ToLower(p.FirstAuthorLastName()))
	switch {
	case parts.author != "" && parts.author == author:
		score += 35
	case parts.author != "" && author != "" &&
		(strings.Contains(parts.author, author) || strings.Contains(author, parts.author)):
		score += 25
	case parts.author != "" && author != "" && sharedPrefix(parts.author, author) >= minInt(len(parts.author), len(author))-1:
		score += 20
	case author != "" && strings.Contains(rawKey, author):
		score += 15
	}

	title := firstSignificantWord(p.Title)
	switch {
	case parts.title != "" && parts.title == title:
		score += 30
	case parts.title != "" && title != "" &&
		(strings.Contains(parts.title, title) || strings.Contains(title, parts.title)):
		score += 20
	case title != "" && strings.Contains(rawKey, title):
		score += 10
	}

	return score
}

func sharedPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
