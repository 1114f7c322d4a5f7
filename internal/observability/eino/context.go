package eino

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
	llmCtxKeyTenant   llmCtxKey = "llm_tenant"
)

// WithWorkflow 标记当前调用所属的工作流（summarize / embed_chunks 等）
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	if ctx == nil {
		return nil
	}
	w := strings.TrimSpace(workflow)
	if w == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyWorkflow, w)
}

// WithProvider 标记当前调用的模型提供方
func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil {
		return nil
	}
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyProvider, p)
}

// WithTenant 标记当前调用归属的租户，用量流水按此记账
func WithTenant(ctx context.Context, tenantID string) context.Context {
	if ctx == nil {
		return nil
	}
	t := strings.TrimSpace(tenantID)
	if t == "" {
		return ctx
	}
	return context.WithValue(ctx, llmCtxKeyTenant, t)
}

// WithWorkflowProvider 同时标记工作流与提供方
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

func WorkflowFromContext(ctx context.Context) string {
	return ctxString(ctx, llmCtxKeyWorkflow)
}

func ProviderFromContext(ctx context.Context) string {
	return ctxString(ctx, llmCtxKeyProvider)
}

func TenantFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v := ctx.Value(llmCtxKeyTenant)
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func ctxString(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return "unknown"
	}
	v := ctx.Value(key)
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
