package allergy

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// Category 一组固定候选
type Category struct {
	Key   string   `yaml:"key" json:"key"`
	Label string   `yaml:"label" json:"label"`
	Items []string `yaml:"items" json:"items"`
}

// Vocabulary 按展示顺序排列的候选分类
type Vocabulary struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// ParseVocabulary 解析 YAML 形式的候选表
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse allergy vocabulary: %w", err)
	}
	if len(v.Categories) == 0 {
		return nil, fmt.Errorf("allergy vocabulary has no categories")
	}
	return &v, nil
}

var defaultVocabulary = mustParse(vocabularyYAML)

func mustParse(data []byte) *Vocabulary {
	v, err := ParseVocabulary(data)
	if err != nil {
		panic(err)
	}
	return v
}

// Default 返回内置候选表
func Default() *Vocabulary {
	return defaultVocabulary
}

// Suggestions 候选 = 全部候选 - 已选，query 非空时按不区分大小写的子串过滤；
// 按分类分组，空分组不返回
func (v *Vocabulary) Suggestions(selected []string, query string) []Category {
	taken := make(map[string]struct{}, len(selected))
	for _, tag := range selected {
		taken[tag] = struct{}{}
	}

	q := strings.ToLower(strings.TrimSpace(query))

	groups := make([]Category, 0, len(v.Categories))
	for _, cat := range v.Categories {
		var items []string
		for _, item := range cat.Items {
			if _, ok := taken[item]; ok {
				continue
			}
			if q != "" && !strings.Contains(strings.ToLower(item), q) {
				continue
			}
			items = append(items, item)
		}
		if len(items) == 0 {
			continue
		}
		groups = append(groups, Category{Key: cat.Key, Label: cat.Label, Items: items})
	}
	return groups
}
