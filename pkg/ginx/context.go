package ginx

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/jvirt/pkg/idgen"
	"github.com/rs/zerolog"
)

const (
	formatJSON = "json"
	formatXML  = "xml"

	// HeaderRequestID 请求 ID 头
	HeaderRequestID = "X-Request-ID"
)

// contextKey 用于在 gin.Context 中存储值的类型安全 key
type contextKey string

const (
	responseFormatKey contextKey = "ginx.response_format"
	requestIDKey      contextKey = "ginx.request_id"
)

func setResponseFormat(ctx *gin.Context, format string) {
	ctx.Set(responseFormatKey, format)
}

func getResponseFormat(ctx *gin.Context) string {
	if format, ok := ctx.Get(responseFormatKey); ok {
		if str, ok := format.(string); ok {
			return str
		}
	}
	return formatJSON
}

// RequestID 为每个请求分配 ID，客户端传入的 X-Request-ID 优先
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(HeaderRequestID)
		if id == "" {
			generated, err := idgen.GenerateRequestID()
			if err == nil {
				id = generated
			}
		}
		ctx.Set(requestIDKey, id)
		ctx.Header(HeaderRequestID, id)
		ctx.Next()
	}
}

// GetRequestID 当前请求的 ID，未经过 RequestID 中间件时为空
func GetRequestID(ctx *gin.Context) string {
	if id, ok := ctx.Get(requestIDKey); ok {
		if str, ok := id.(string); ok {
			return str
		}
	}
	return ""
}

// Logger 用 zerolog 记录每个请求，并把带 request_id 的 logger 放入请求 context
func Logger(logger zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		reqLogger := logger.With().Str("request_id", GetRequestID(ctx)).Logger()
		ctx.Request = ctx.Request.WithContext(reqLogger.WithContext(ctx.Request.Context()))
		ctx.Next()

		status := ctx.Writer.Status()
		ev := reqLogger.Info()
		if status >= 500 {
			ev = reqLogger.Error()
		} else if status >= 400 {
			ev = reqLogger.Warn()
		}
		ev.Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
