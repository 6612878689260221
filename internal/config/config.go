// Package config loads extraction jobs from YAML files. Values from a
// job file act as defaults; CLI flags override them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Job describes one extraction run.
type Job struct {
	URL       string            `yaml:"url"`
	Output    string            `yaml:"output"`
	Fields    []string          `yaml:"fields"`
	Params    map[string]string `yaml:"params"`
	PageParam string            `yaml:"page_param"`
	StartPage int               `yaml:"start_page"`
	MaxPages  int               `yaml:"max_pages"`
	SleepS    float64           `yaml:"sleep_s"`
	TimeoutS  float64           `yaml:"timeout_s"`

	AuthHeader string `yaml:"auth_header"`
	TokenEnv   string `yaml:"token_env"`

	CacheRedis string  `yaml:"cache_redis"`
	CacheTTLS  float64 `yaml:"cache_ttl_s"`
}

// Load reads and parses a job file.
func Load(filename string) (Job, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Job{}, fmt.Errorf("read job file: %w", err)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("parse job file: %w", err)
	}

	return job, nil
}
