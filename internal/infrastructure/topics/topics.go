// Package topics loads the conflict-detection topic table from YAML.
package topics

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

//go:embed default_topics.yaml
var defaultTopics []byte

type entry struct {
	Topic        string   `yaml:"topic"`
	Keywords     []string `yaml:"keywords"`
	ValuePattern string   `yaml:"value_pattern"`
}

type table struct {
	Topics []entry `yaml:"topics"`
}

// Default returns the built-in construction topic table.
func Default() ([]domain.TopicRule, error) {
	return Parse(defaultTopics)
}

// Load reads the table at path, or the built-in table when path is empty.
func Load(path string) ([]domain.TopicRule, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topic table: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]domain.TopicRule, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse topic table", err)
	}
	if len(t.Topics) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse topic table", errors.New("no topics defined"))
	}

	seen := make(map[string]struct{}, len(t.Topics))
	rules := make([]domain.TopicRule, 0, len(t.Topics))
	for i, e := range t.Topics {
		topic := strings.TrimSpace(e.Topic)
		if topic == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse topic table", fmt.Errorf("entry %d: topic is required", i))
		}
		if _, dup := seen[topic]; dup {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse topic table", fmt.Errorf("duplicate topic %q", topic))
		}
		seen[topic] = struct{}{}

		keywords := make([]string, 0, len(e.Keywords))
		for _, k := range e.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse topic table", fmt.Errorf("topic %q: keywords are required", topic))
		}

		re, err := regexp.Compile(e.ValuePattern)
		if err != nil || e.ValuePattern == "" {
			if err == nil {
				err = errors.New("value_pattern is required")
			}
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse topic table", fmt.Errorf("topic %q: %w", topic, err))
		}

		rules = append(rules, domain.TopicRule{
			Topic:    topic,
			Keywords: keywords,
			Extract:  PatternExtractor(re),
		})
	}
	return rules, nil
}

// PatternExtractor returns the non-empty capture groups of the first match
// joined by spaces, or the whole match when re has no groups.
func PatternExtractor(re *regexp.Regexp) domain.ValueExtractor {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if len(m) == 1 {
			v := strings.TrimSpace(m[0])
			return v, v != ""
		}
		parts := make([]string, 0, len(m)-1)
		for _, g := range m[1:] {
			if g = strings.TrimSpace(g); g != "" {
				parts = append(parts, g)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, " "), true
	}
}
