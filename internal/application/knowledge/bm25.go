package knowledge

import (
	"math"
	"strings"
)

// BM25 参数与归一化因子
const (
	bm25K1        = 1.5
	bm25B         = 0.75
	bm25Normalize = 10.0
)

// bm25Corpus 查询期构建的词频统计。
// 语料统计（文档频率、平均长度）在每次查询时基于租户当前知识块全量重算，
// 不维护持久化倒排索引；单租户视频库规模下成本可接受。
type bm25Corpus struct {
	docs   [][]string
	avgLen float64
}

// newBM25Corpus 对所有文档分词并统计平均长度
func newBM25Corpus(texts []string) *bm25Corpus {
	docs := make([][]string, len(texts))
	total := 0
	for i, text := range texts {
		docs[i] = tokenize(text)
		total += len(docs[i])
	}
	avg := 0.0
	if len(docs) > 0 {
		avg = float64(total) / float64(len(docs))
	}
	return &bm25Corpus{docs: docs, avgLen: avg}
}

// termFrequency 统计 term 在文档中的出现次数。
// 匹配采用子串包含而不是整词相等，"cook" 能命中 "cooking"；
// 代价是可能高估部分词匹配。
func termFrequency(term string, doc []string) float64 {
	count := 0
	for _, tok := range doc {
		if strings.Contains(tok, term) {
			count++
		}
	}
	return float64(count)
}

// documentFrequency 统计包含 term 的文档数
func (c *bm25Corpus) documentFrequency(term string) float64 {
	count := 0
	for _, doc := range c.docs {
		for _, tok := range doc {
			if strings.Contains(tok, term) {
				count++
				break
			}
		}
	}
	return float64(count)
}

// Score 计算查询对第 i 篇文档的 BM25 分数，除以 bm25Normalize 压入约 [0,1]。
func (c *bm25Corpus) Score(queryTokens []string, i int) float64 {
	if c == nil || i < 0 || i >= len(c.docs) || len(queryTokens) == 0 {
		return 0
	}
	doc := c.docs[i]
	if len(doc) == 0 || c.avgLen == 0 {
		return 0
	}

	n := float64(len(c.docs))
	score := 0.0
	for _, term := range queryTokens {
		tf := termFrequency(term, doc)
		if tf == 0 {
			continue
		}
		df := c.documentFrequency(term)
		idf := logIDF(n, df)
		denom := tf + bm25K1*(1-bm25B+bm25B*float64(len(doc))/c.avgLen)
		score += idf * (tf * (bm25K1 + 1)) / denom
	}

	normalized := score / bm25Normalize
	return clamp01(normalized)
}

// logIDF 平滑逆文档频率，df 接近 N 时趋近 0 但不为负
func logIDF(n, df float64) float64 {
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
