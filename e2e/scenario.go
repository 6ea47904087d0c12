package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ScenarioConfig is one webhook-to-status flow, read from testdata/scenarios/*.yaml
type ScenarioConfig struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Webhook     WebhookDelivery `yaml:"webhook"`
	Expected    ExpectedResult  `yaml:"expected"`
	Build       *BuildReport    `yaml:"build,omitempty"`

	DecodeFileContent bool `yaml:"decode_file_content"`

	// PayloadFile is Webhook.Payload resolved against the scenario's directory
	PayloadFile string `yaml:"-"`
}

// WebhookDelivery describes the inbound request
type WebhookDelivery struct {
	Event   string `yaml:"event"`
	Payload string `yaml:"payload"`
}

// ExpectedResult is what the front door and the adapter should produce
type ExpectedResult struct {
	HTTPStatus int            `yaml:"http_status"`
	Ignored    bool           `yaml:"ignored"`
	Event      *ExpectedEvent `yaml:"event,omitempty"`
	ScmURI     string         `yaml:"scm_uri"`
	RepoName   string         `yaml:"repo_name"`
	HeadSHA    string         `yaml:"head_sha"`

	FileContains []string `yaml:"file_contains"`
}

// ExpectedEvent mirrors the normalized hook fields a scenario checks
type ExpectedEvent struct {
	Type        string `yaml:"type"`
	Action      string `yaml:"action"`
	Username    string `yaml:"username"`
	CheckoutURL string `yaml:"checkout_url"`
	Branch      string `yaml:"branch"`
	SHA         string `yaml:"sha"`
	PRNum       int    `yaml:"pr_num"`
	PRRef       string `yaml:"pr_ref"`
}

// BuildReport is the status the orchestrator publishes after the build
type BuildReport struct {
	Status string `yaml:"status"`
	Job    string `yaml:"job"`
	URL    string `yaml:"url"`

	ExpectedState       string `yaml:"expected_state"`
	ExpectedDescription string `yaml:"expected_description"`
	ExpectedContext     string `yaml:"expected_context"`
}

// LoadScenarios reads every scenario under dir/scenarios, sorted by file name
func LoadScenarios(dir string) ([]ScenarioConfig, error) {
	pattern := filepath.Join(dir, "scenarios", "*.yaml")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenarios match %s", pattern)
	}
	sort.Strings(files)

	scenarios := make([]ScenarioConfig, 0, len(files))
	for _, file := range files {
		scenario, err := loadScenario(file)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, scenario)
	}
	return scenarios, nil
}

func loadScenario(file string) (ScenarioConfig, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return ScenarioConfig{}, fmt.Errorf("failed to read scenario %s: %w", file, err)
	}

	var scenario ScenarioConfig
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return ScenarioConfig{}, fmt.Errorf("failed to parse scenario %s: %w", file, err)
	}

	if scenario.Name == "" {
		scenario.Name = filepath.Base(file)
	}
	if scenario.Expected.HTTPStatus == 0 {
		scenario.Expected.HTTPStatus = 200
	}
	if scenario.Webhook.Payload == "" {
		return ScenarioConfig{}, fmt.Errorf("scenario %s has no webhook payload", file)
	}
	scenario.PayloadFile = filepath.Join(filepath.Dir(file), "..", "payloads", scenario.Webhook.Payload)

	return scenario, nil
}
