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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  token_budget: 4000
  extraction_interval: 5
storage:
  memory:
    type: "postgres"
    dsn: "postgres://localhost/test"
log:
  level: "debug"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.TokenBudget != 4000 {
		t.Errorf("token_budget: got %d", cfg.Engine.TokenBudget)
	}
	if cfg.Engine.ExtractionInterval != 5 {
		t.Errorf("extraction_interval: got %d", cfg.Engine.ExtractionInterval)
	}
	if cfg.Storage.Memory.Type != "postgres" {
		t.Errorf("storage type: got %q", cfg.Storage.Memory.Type)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %q", cfg.Log.Level)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestLoadConfig_APIKeyEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-from-env")
	path := writeConfig(t, `
model:
  llm:
    providers:
      openai:
        api_key: ${TEST_LLM_KEY}
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Model.LLM.Providers["openai"].APIKey != "sk-from-env" {
		t.Errorf("api key: got %q", cfg.Model.LLM.Providers["openai"].APIKey)
	}
}

func TestLoadConfig_ClarificationSlots(t *testing.T) {
	path := writeConfig(t, `
engine:
  clarifications:
    - name: "time_range"
      ask_pattern: "which period"
      answer_markers: ["since", "decade"]
      default: "last 10 years"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Engine.Clarifications) != 1 {
		t.Fatalf("slots: got %d", len(cfg.Engine.Clarifications))
	}
	slot := cfg.Engine.Clarifications[0]
	if slot.Name != "time_range" || slot.Default != "last 10 years" || len(slot.AnswerMarkers) != 2 {
		t.Errorf("slot: %+v", slot)
	}
}
