package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"

	"creator-kb-api/internal/domain/repository"
)

var initOnce sync.Once

// Init 注册 Eino 全局 callbacks（进程级一次）。
// usageRepo 可为 nil，此时只上报指标不落用量流水。
func Init(usageRepo repository.UsageEventRepository) {
	initOnce.Do(func() {
		handler := cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler(usageRepo)).
			Embedding(newEmbeddingCallbackHandler()).
			Handler()
		einocallbacks.AppendGlobalHandlers(handler)
	})
}
