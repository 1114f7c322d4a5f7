package knowledge

import (
	"sort"
	"strings"
	"unicode"
)

// minKeywordTokenLen 短于该长度的 token 不参与关键词提取
const minKeywordTokenLen = 4

// tokenize 小写化并按非字母数字切分
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// extractKeywords 基于词频的朴素关键词提取：
// 仅统计长度 >= minKeywordTokenLen 的 token，按频次取前 max 个。
// 用于 retrieval 层知识块，质量弱于 AI 主题标签，因此该层 confidence 更低。
func extractKeywords(text string, max int) []string {
	if max <= 0 {
		max = defaultMaxKeywords
	}

	freq := make(map[string]int)
	order := make(map[string]int)
	for i, tok := range tokenize(text) {
		if len([]rune(tok)) < minKeywordTokenLen {
			continue
		}
		if _, seen := freq[tok]; !seen {
			order[tok] = i
		}
		freq[tok]++
	}
	if len(freq) == 0 {
		return nil
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	// 频次降序，频次相同时按首次出现位置保证确定性
	sort.Slice(words, func(a, b int) bool {
		if freq[words[a]] != freq[words[b]] {
			return freq[words[a]] > freq[words[b]]
		}
		return order[words[a]] < order[words[b]]
	})

	if len(words) > max {
		words = words[:max]
	}
	return words
}
