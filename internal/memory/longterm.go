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
	"strings"
)

// maxClauseLen 触发短语后捕获的最大子句长度
const maxClauseLen = 100

// 标记短语表：偏好 / 拒绝 / 待回访
var (
	preferenceMarkers = []string{"i prefer", "i'd prefer", "i would prefer", "i like to", "i always"}
	rejectionMarkers  = []string{"i don't want", "i do not want", "let's not", "i'd rather not", "avoid using"}
	followUpMarkers   = []string{"come back to", "revisit", "later on", "remind me to", "for later"}
)

// TrackLongTerm 扫描用户消息中的偏好/拒绝/待回访标记并写入对应桶。
// userID 非空时写入该用户的个人桶，否则写入全局桶。
// 待回访条目按原文捕获，不混入未回答问题列表。
func TrackLongTerm(rec *Record, userMsg, userID string) {
	prefs := captureClauses(userMsg, preferenceMarkers)
	rejects := captureClauses(userMsg, rejectionMarkers)
	followUps := captureClauses(userMsg, followUpMarkers)
	if len(prefs) == 0 && len(rejects) == 0 && len(followUps) == 0 {
		return
	}

	if userID != "" {
		if rec.LongTerm.Users == nil {
			rec.LongTerm.Users = make(map[string]LongTermBucket)
		}
		bucket := rec.LongTerm.Users[userID]
		applyBucket(&bucket, prefs, rejects, followUps)
		rec.LongTerm.Users[userID] = bucket
		return
	}
	applyBucket(&rec.LongTerm.Global, prefs, rejects, followUps)
}

func applyBucket(b *LongTermBucket, prefs, rejects, followUps []string) {
	b.UserPreferences = appendDedupe(b.UserPreferences, prefs, MaxLongTermItems)
	b.RejectedApproaches = appendDedupe(b.RejectedApproaches, rejects, MaxLongTermItems)
	b.FollowUpItems = appendDedupe(b.FollowUpItems, followUps, MaxLongTermItems)
}

// captureClauses 对每个命中标记，从标记起捕获到下一个句号（或 100 字符）
func captureClauses(text string, markers []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, marker := range markers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		clause := text[idx:]
		if dot := strings.Index(clause, "."); dot >= 0 {
			clause = clause[:dot]
		}
		if len(clause) > maxClauseLen {
			clause = clause[:maxClauseLen]
		}
		clause = strings.TrimSpace(clause)
		if clause != "" {
			out = append(out, clause)
		}
	}
	return out
}
