// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ChunkLevel 知识块层级，从粗到细
type ChunkLevel string

const (
	ChunkLevelVideo     ChunkLevel = "video"
	ChunkLevelSection   ChunkLevel = "section"
	ChunkLevelRetrieval ChunkLevel = "retrieval"
)

// ParentLevel 返回上一级（更粗）层级，video 层没有父级
func (l ChunkLevel) ParentLevel() (ChunkLevel, bool) {
	switch l {
	case ChunkLevelSection:
		return ChunkLevelVideo, true
	case ChunkLevelRetrieval:
		return ChunkLevelSection, true
	default:
		return "", false
	}
}

// KnowledgeChunk 知识块实体，检索的原子单位
// ID 由 (videoID, level, chunkIndex) 确定性生成，重建索引不会产生重复记录。
// Embedding 可以为空：向量化失败的块仅参与关键词检索。
type KnowledgeChunk struct {
	ID            string          `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      string          `json:"tenant_id" gorm:"type:varchar(64);index;not null"`
	VideoID       string          `json:"video_id" gorm:"type:uuid;index;not null"`
	VideoTitle    string          `json:"video_title" gorm:"type:varchar(512)"`
	VideoURL      string          `json:"video_url" gorm:"type:varchar(1024)"`
	Level         ChunkLevel      `json:"level" gorm:"type:varchar(16);index;not null"`
	ChunkIndex    int             `json:"chunk_index" gorm:"not null"`
	ParentChunkID string          `json:"parent_chunk_id,omitempty" gorm:"type:uuid;index"`
	StartTime     float64         `json:"start_time"`
	EndTime       float64         `json:"end_time"`
	Text          string          `json:"text" gorm:"type:text"`
	Keywords      pq.StringArray  `json:"keywords" gorm:"type:text[]"`
	Topics        pq.StringArray  `json:"topics" gorm:"type:text[]"`
	Confidence    float64         `json:"confidence"`
	Language      string          `json:"language,omitempty" gorm:"type:varchar(16)"`
	Embedding     *pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}

// HasEmbedding 是否带有可用向量
func (c *KnowledgeChunk) HasEmbedding() bool {
	return c.Embedding != nil && len(c.Embedding.Slice()) > 0
}

// EmbeddingSlice 返回向量内容，无向量时返回 nil
func (c *KnowledgeChunk) EmbeddingSlice() []float32 {
	if c.Embedding == nil {
		return nil
	}
	return c.Embedding.Slice()
}

// SetEmbedding 写入向量
func (c *KnowledgeChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = nil
		return
	}
	v := pgvector.NewVector(vec)
	c.Embedding = &v
}

// TimestampURL 生成跳转到块起点的深链
func (c *KnowledgeChunk) TimestampURL() string {
	if c.VideoURL == "" {
		return ""
	}
	return timestampURL(c.VideoURL, c.StartTime)
}

// WordCount 估算块内词数
func (c *KnowledgeChunk) WordCount() int {
	return wordCount(c.Text)
}
