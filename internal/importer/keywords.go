package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadKeywords loads a keyword file. YAML files hold either a top-level list or a
// "keywords" list; any other file has one keyword per line, with blank lines and lines
// starting with # ignored. Keywords are trimmed and deduplicated in file order.
func ReadKeywords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		kws, err := parseYAMLKeywords(data)
		if err != nil {
			return nil, fmt.Errorf("parse keywords %s: %w", path, err)
		}
		return kws, nil
	default:
		return ParseKeywordLines(data), nil
	}
}

// ParseKeywordLines parses the line-oriented keyword format.
func ParseKeywordLines(data []byte) []string {
	var raw []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	return dedupe(raw)
}

type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

func parseYAMLKeywords(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	var raw []string
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&raw); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var kf keywordFile
		if err := node.Content[0].Decode(&kf); err != nil {
			return nil, err
		}
		raw = kf.Keywords
	default:
		return nil, fmt.Errorf("expected a list or a keywords mapping")
	}
	return dedupe(raw), nil
}

func dedupe(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
