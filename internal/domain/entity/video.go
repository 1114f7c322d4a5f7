// Package entity 定义领域实体
package entity

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Video 创作者视频实体
// 知识库构建以视频为单位：一个视频对应一份摘要和一组知识块，
// processed 只有在全部知识块落库后才会翻转为 true。
type Video struct {
	ID          string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID    string        `json:"tenant_id" gorm:"type:varchar(64);index;not null"`
	CreatorID   string        `json:"creator_id" gorm:"type:varchar(64);index;not null"`
	PlatformID  string        `json:"platform_id" gorm:"type:varchar(64);uniqueIndex:idx_videos_tenant_platform,priority:2;not null"`
	Title       string        `json:"title" gorm:"type:varchar(512)"`
	URL         string        `json:"url" gorm:"type:varchar(1024)"`
	Duration    float64       `json:"duration"`
	Language    string        `json:"language,omitempty" gorm:"type:varchar(16)"`
	PublishedAt time.Time     `json:"published_at"`
	Processed   bool          `json:"processed" gorm:"default:false"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
	Summary     *VideoSummary `json:"summary,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Video) TableName() string {
	return "videos"
}

// MarkProcessed 标记视频处理完成
func (v *Video) MarkProcessed() {
	now := time.Now()
	v.Processed = true
	v.ProcessedAt = &now
	v.UpdatedAt = now
}

// TimestampURL 生成跳转到指定秒数的深链
func (v *Video) TimestampURL(seconds float64) string {
	if v.URL == "" {
		return ""
	}
	return timestampURL(v.URL, seconds)
}

// timestampURL 在视频 URL 上追加秒级定位参数
func timestampURL(base string, seconds float64) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%ds", base, sep, int(math.Floor(seconds)))
}
