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

// Package citation 把 LLM 生成内容中的引用键确定性地落到已知论文上，
// 阻止虚构参考文献进入产出文档。
package citation

// CandidatePaper 可被引用匹配的论文（最近搜索结果或项目文库），本包只读
type CandidatePaper struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Authors      []string `json:"authors"`
	Year         int      `json:"year"`
	DOI          string   `json:"doi,omitempty"`
	URL          string   `json:"url,omitempty"`
	Journal      string   `json:"journal,omitempty"`
	Abstract     string   `json:"abstract,omitempty"`
	Source       string   `json:"source,omitempty"`
	PDFURL       string   `json:"pdf_url,omitempty"`
	IsOpenAccess bool     `json:"is_open_access,omitempty"`
	ReferenceID  string   `json:"reference_id,omitempty"` // 已在文库中时的引用 ID
}

// FirstAuthorLastName 第一作者姓氏；无作者时返回空串
func (p *CandidatePaper) FirstAuthorLastName() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return lastName(p.Authors[0])
}
