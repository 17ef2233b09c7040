package dataverse

import (
	"fmt"
	"net/http"
)

// RemoteServiceError 表示 Dataverse 返回了非 2xx 响应。
type RemoteServiceError struct {
	Op         string
	Table      string
	StatusCode int
	Body       string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("dataverse %s %s: status %d: %s", e.Op, e.Table, e.StatusCode, e.Body)
}

// Retryable 对限流与服务端错误返回 true。
func (e *RemoteServiceError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// AuthError 表示无法从身份提供方拿到 access token。
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataverse 认证失败: %s: %v", e.Reason, e.Err)
	}
	return "dataverse 认证失败: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }
