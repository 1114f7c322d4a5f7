package knowledge

import (
	"context"
	"fmt"
	"strings"

	"creator-kb-api/internal/domain/repository"
)

// Stats 返回租户知识库的可观测性统计
func (e *Engine) Stats(ctx context.Context, tenantID string) (*repository.ChunkStats, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	return e.chunks.Stats(ctx, tenantID)
}
