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
	"fmt"
	"regexp"
	"strings"

	"research-collab/pkg/metrics"
)

// citeRe 文中引用指令，组内可有逗号分隔的多个键
var citeRe = regexp.MustCompile(`\\?cite\{([^}]*)\}`)

// texEscapes 先替换反斜杠，避免二次转义
var texEscapes = []struct{ from, to string }{
	{`\`, `\textbackslash{}`},
	{`{`, `\{`},
	{`}`, `\}`},
	{`$`, `\$`},
	{`&`, `\&`},
	{`#`, `\#`},
	{`%`, `\%`},
	{`_`, `\_`},
	{`^`, `\^{}`},
	{`~`, `\~{}`},
}

// EscapeTeX 转义文档特殊字符
func EscapeTeX(s string) string {
	// \{ 与 \} 是上一步刚产生的合法序列，用占位符绕开反斜杠替换
	for _, e := range texEscapes {
		if e.from == `\` {
			s = strings.ReplaceAll(s, e.from, "\x00BS\x00")
			continue
		}
		s = strings.ReplaceAll(s, e.from, e.to)
	}
	s = strings.ReplaceAll(s, "\x00BS\x00", `\textbackslash{}`)
	return s
}

// Entry 参考文献表中的一条
type Entry struct {
	Key       string
	Paper     *CandidatePaper // 未匹配时为 nil
	Unmatched bool
}

// Resolution 一次文献解析的结果
type Resolution struct {
	Entries       []Entry
	Bibliography  string
	UnmatchedKeys []string
}

// Resolve 扫描文档中的全部 cite 键，按首次出现顺序解析并渲染参考文献表。
// 未匹配键渲染占位条目并进入 UnmatchedKeys，绝不静默丢弃。
func Resolve(doc string, m *Matcher) *Resolution {
	res := &Resolution{}
	seen := make(map[string]bool)

	for _, group := range citeRe.FindAllStringSubmatch(doc, -1) {
		for _, key := range strings.Split(group[1], ",") {
			key = strings.TrimSpace(key)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true

			paper := m.Match(key)
			entry := Entry{Key: key, Paper: paper, Unmatched: paper == nil}
			res.Entries = append(res.Entries, entry)
			if paper == nil {
				res.UnmatchedKeys = append(res.UnmatchedKeys, key)
				metrics.CitationUnmatchedTotal.Inc()
			}
		}
	}

	var b strings.Builder
	for _, e := range res.Entries {
		b.WriteString(renderEntry(e))
		b.WriteString("\n")
	}
	res.Bibliography = strings.TrimRight(b.String(), "\n")
	return res
}

// renderEntry 渲染单条：author. title. journal, year.
func renderEntry(e Entry) string {
	if e.Unmatched {
		parts := parseKey(e.Key)
		author := parts.author
		if author == "" {
			author = e.Key
		}
		year := "n.d."
		if parts.year > 0 {
			year = fmt.Sprintf("%d", parts.year)
		}
		return fmt.Sprintf("[%s] [Reference not found in library] %s (%s) [Unverified citation]",
			e.Key, EscapeTeX(author), year)
	}

	p := e.Paper
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s. %s.", e.Key, EscapeTeX(FormatAuthors(p.Authors)), EscapeTeX(p.Title))
	if p.Journal != "" {
		fmt.Fprintf(&b, " %s,", EscapeTeX(p.Journal))
	}
	if p.Year > 0 {
		fmt.Fprintf(&b, " %d.", p.Year)
	}
	if p.DOI != "" {
		fmt.Fprintf(&b, " doi:%s.", EscapeTeX(p.DOI))
	}
	return b.String()
}
