package knowledge

import (
	"errors"
	"strings"
)

var (
	// ErrNoTranscript 表示视频没有可用字幕，跳过该视频（下次运行可重试）。
	ErrNoTranscript = errors.New("no transcript available")

	// ErrQuotaExhausted 表示外部服务配额/限流已耗尽，整个构建运行应提前终止。
	ErrQuotaExhausted = errors.New("external quota exhausted")

	// ErrEmptyQuery 查询为空。
	ErrEmptyQuery = errors.New("query is required")
)

// quotaSignatures 外部服务配额耗尽的错误特征
var quotaSignatures = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"resource_exhausted",
	"insufficient_quota",
	"too many requests",
	"429",
}

// IsQuotaExhausted 判断错误是否为配额耗尽类错误
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExhausted) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range quotaSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
