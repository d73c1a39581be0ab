package response

import (
	"net/http"

	"technotes-api/internal/apperr"
)

// kindStatus 业务错误分类 -> HTTP 状态码（集中维护）
var kindStatus = map[apperr.Kind]int{
	apperr.KindInvalidInput:  http.StatusBadRequest,
	apperr.KindNotFound:      http.StatusBadRequest,
	apperr.KindConflict:      http.StatusConflict,
	apperr.KindHasDependents: http.StatusBadRequest,
	apperr.KindNoData:        http.StatusBadRequest,
}

// StatusOf ok=false 表示未分类错误，交给兜底处理
func StatusOf(err error) (int, bool) {
	if err == nil {
		return http.StatusOK, true
	}
	st, ok := kindStatus[apperr.KindOf(err)]
	return st, ok
}

// FallbackStatus 已设置的错误状态码优先，否则 500
func FallbackStatus(current int) int {
	if current >= http.StatusBadRequest {
		return current
	}
	return http.StatusInternalServerError
}
