// Package entity 定义领域实体
package entity

import (
	"time"
)

// UsageEvent 外部模型调用的用量流水（LLM / Embedding）
type UsageEvent struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TenantID         string    `json:"tenant_id" gorm:"type:varchar(64);index;not null"`
	Provider         string    `json:"provider" gorm:"type:varchar(64)"`
	Model            string    `json:"model" gorm:"type:varchar(128)"`
	Workflow         string    `json:"workflow" gorm:"type:varchar(64)"`
	TokensPrompt     int       `json:"tokens_prompt"`
	TokensCompletion int       `json:"tokens_completion"`
	DurationMs       int       `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (UsageEvent) TableName() string {
	return "usage_events"
}

// TotalTokens 总 Token 数
func (e *UsageEvent) TotalTokens() int64 {
	return int64(e.TokensPrompt + e.TokensCompletion)
}
