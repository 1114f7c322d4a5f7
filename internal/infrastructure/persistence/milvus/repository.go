// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"creator-kb-api/pkg/metrics"
)

// Repository 向量候选召回仓储
type Repository struct {
	client *Client
}

// NewRepository 创建向量候选召回仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// CreatePartition 创建租户分区
func (r *Repository) CreatePartition(ctx context.Context, collection, tenantID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreatePartition",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("partition", PartitionName(tenantID)),
		))
	defer span.End()

	collName := r.client.CollectionName(collection)
	return r.client.milvus.CreatePartition(ctx, collName, PartitionName(tenantID))
}

// SearchChunks 在租户分区内做 ANN 召回，返回按相似度降序的块 ID。
func (r *Repository) SearchChunks(ctx context.Context, tenantID string, queryVector []float32, topK int) ([]string, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchChunks",
		trace.WithAttributes(
			attribute.String("tenant_id", tenantID),
			attribute.Int("top_k", topK),
		))
	defer span.End()

	start := time.Now()
	collName := r.client.CollectionName(CollectionKnowledgeChunks)
	partitionName := PartitionName(tenantID)

	// 分区尚未创建（租户还没有索引内容）时返回空，避免 Milvus 报 partition not found
	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		metrics.MilvusSearchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		metrics.MilvusSearchTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	filter := fmt.Sprintf(`tenant_id == "%s"`, tenantID)

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		filter,
		[]string{"id"},
		[]entity.Vector{entity.FloatVector(queryVector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		metrics.MilvusSearchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var ids []string
	for _, result := range results {
		if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
			ids = append(ids, idCol.Data()...)
		}
	}

	metrics.MilvusSearchTotal.WithLabelValues("success").Inc()
	metrics.MilvusSearchDuration.WithLabelValues(collName).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("result_count", len(ids)))
	return ids, nil
}

// InsertChunks 插入知识块向量
func (r *Repository) InsertChunks(ctx context.Context, tenantID string, rows []*ChunkVector) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertChunks",
		trace.WithAttributes(
			attribute.String("tenant_id", tenantID),
			attribute.Int("count", len(rows)),
		))
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionKnowledgeChunks)
	partitionName := PartitionName(tenantID)

	has, _ := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if !has {
		if err := r.CreatePartition(ctx, CollectionKnowledgeChunks, tenantID); err != nil {
			return err
		}
	}

	ids := make([]string, len(rows))
	vectors := make([][]float32, len(rows))
	tenantIDs := make([]string, len(rows))
	videoIDs := make([]string, len(rows))
	levels := make([]string, len(rows))

	for i, row := range rows {
		ids[i] = row.ID
		vectors[i] = row.Vector
		tenantIDs[i] = row.TenantID
		videoIDs[i] = row.VideoID
		levels[i] = row.Level
	}

	_, err := r.client.milvus.Insert(ctx, collName, partitionName,
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("vector", VectorDimension, vectors),
		entity.NewColumnVarChar("tenant_id", tenantIDs),
		entity.NewColumnVarChar("video_id", videoIDs),
		entity.NewColumnVarChar("level", levels),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	return nil
}

// DeleteChunksByVideo 删除视频的全部向量行
func (r *Repository) DeleteChunksByVideo(ctx context.Context, tenantID, videoID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteChunksByVideo",
		trace.WithAttributes(attribute.String("video_id", videoID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionKnowledgeChunks)
	partitionName := PartitionName(tenantID)

	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	filter := fmt.Sprintf(`video_id == "%s"`, videoID)
	if err := r.client.milvus.Delete(ctx, collName, partitionName, filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// EnsureKnowledgeChunksCollection 确保集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureKnowledgeChunksCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionKnowledgeChunks)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, KnowledgeChunksSchema()); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.CreateIndex(ctx, CollectionKnowledgeChunks)
	}

	return r.client.LoadCollection(ctx, CollectionKnowledgeChunks)
}
