// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionKnowledgeChunks 知识块候选召回集合
	CollectionKnowledgeChunks = "knowledge_chunks"

	// VectorDimension 向量维度，与知识块 embedding 列一致
	VectorDimension = 1536
)

// KnowledgeChunksSchema 知识块 Collection Schema。
// 只存召回所需的最小字段；知识块全文以 PostgreSQL 为准。
func KnowledgeChunksSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionKnowledgeChunks,
		Description:    "Knowledge chunk vectors for ANN candidate recall",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1536",
				},
			},
			{
				Name:     "tenant_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "video_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "level",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
		},
	}
}

// ChunkVector 候选召回的向量行
type ChunkVector struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	TenantID string    `json:"tenant_id"`
	VideoID  string    `json:"video_id"`
	Level    string    `json:"level"`
}

// PartitionName 生成租户分区名称
func PartitionName(tenantID string) string {
	return "tenant_" + tenantID
}
