package ginx

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/rs/zerolog"
)

// isXMLResponse 请求为 XML 或 Accept 要求 XML 时使用 XML 响应
func isXMLResponse(ctx *gin.Context) bool {
	if getResponseFormat(ctx) == formatXML {
		return true
	}
	accept := ctx.GetHeader("Accept")
	return strings.Contains(accept, "application/xml") ||
		strings.Contains(accept, "text/xml")
}

func render(ctx *gin.Context, status int, body any) {
	if isXMLResponse(ctx) {
		ctx.XML(status, body)
		return
	}
	ctx.JSON(status, body)
}

// renderResponse 渲染响应，字符串按原文返回
func renderResponse(ctx *gin.Context, response any) {
	switch v := response.(type) {
	case nil:
		ctx.Status(http.StatusNoContent)
	case string:
		ctx.String(http.StatusOK, v)
	default:
		render(ctx, http.StatusOK, response)
	}
}

// renderError 渲染错误响应，非 apierror 的错误按内部错误处理
func renderError(ctx *gin.Context, err error) {
	apiErr := apierror.From(err)
	status := apiErr.Status()
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(ctx.Request.Context()).Error().
			Err(err).
			Str("path", ctx.Request.URL.Path).
			Msg("request failed")
	}
	render(ctx, status, apierror.NewErrorResponse(GetRequestID(ctx), apiErr))
}

// Error 渲染错误响应，用于无法通过 Handle 适配的处理函数
func Error(ctx *gin.Context, err error) {
	renderError(ctx, err)
}
