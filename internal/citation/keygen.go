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
	"strconv"
	"strings"
	"unicode"
)

// titleStopwords 标题首词跳过的虚词
var titleStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "of": true,
	"in": true, "for": true, "and": true, "to": true, "with": true,
	"from": true, "at": true, "by": true,
}

// GenerateKeys 为候选论文生成确定性引用键：lowercase(姓氏)+年份+标题首个实义词。
// 同一轮生成内冲突依次追加 a..z 后缀，字母用尽后用数字后缀，保证互不相同。
func GenerateKeys(papers []CandidatePaper) map[string]*CandidatePaper {
	keys := make(map[string]*CandidatePaper, len(papers))
	for i := range papers {
		base := baseKey(&papers[i])
		key := base
		if _, taken := keys[key]; taken {
			key = disambiguate(base, keys)
		}
		keys[key] = &papers[i]
	}
	return keys
}

// baseKey 未消歧的基础键
func baseKey(p *CandidatePaper) string {
	author := strings.ToLower(p.FirstAuthorLastName())
	if author == "" {
		author = "anon"
	}
	author = stripNonAlnum(author)

	year := ""
	if p.Year > 0 {
		year = strconv.Itoa(p.Year)
	}

	word := firstSignificantWord(p.Title)
	return author + year + word
}

// disambiguate 追加后缀直到唯一：a..z，然后 2,3,...
func disambiguate(base string, taken map[string]*CandidatePaper) string {
	for c := 'a'; c <= 'z'; c++ {
		key := base + string(c)
		if _, ok := taken[key]; !ok {
			return key
		}
	}
	for n := 2; ; n++ {
		key := base + strconv.Itoa(n)
		if _, ok := taken[key]; !ok {
			return key
		}
	}
}

// firstSignificantWord 标题第一个非虚词（小写、去非字母数字）
func firstSignificantWord(title string) string {
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = stripNonAlnum(word)
		if word == "" || titleStopwords[word] {
			continue
		}
		return word
	}
	return ""
}

// lastName 取人名的最后一个词；兼容 "Last, First" 写法
func lastName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if comma := strings.Index(name, ","); comma >= 0 {
		return strings.TrimSpace(name[:comma])
	}
	fields := strings.Fields(name)
	return fields[len(fields)-1]
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatAuthors 渲染用的作者串："A", "A and B", "A et al."
func FormatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return "Unknown"
	case 1:
		return authors[0]
	case 2:
		return fmt.Sprintf("%s and %s", authors[0], authors[1])
	default:
		return authors[0] + " et al."
	}
}
