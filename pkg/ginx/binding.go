package ginx

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/jimyag/jvirt/pkg/apierror"
)

// isXMLRequest 检查请求是否为 XML 格式
func isXMLRequest(ctx *gin.Context) bool {
	contentType := ctx.GetHeader("Content-Type")
	return strings.Contains(contentType, "application/xml") ||
		strings.Contains(contentType, "text/xml")
}

// bindArgs 绑定请求体到 args 并校验
func bindArgs(ctx *gin.Context, args any) error {
	// 1. 按 Content-Type 选择解码方式，空请求体不算错误
	b := binding.JSON
	format := formatJSON
	if isXMLRequest(ctx) {
		b = binding.XML
		format = formatXML
	}
	setResponseFormat(ctx, format)

	if err := ctx.ShouldBindWith(args, b); err != nil {
		if !errors.Is(err, io.EOF) {
			return apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err)
		}
		// 2. 空请求体也要走 binding 标签校验
		if err := binding.Validator.ValidateStruct(args); err != nil {
			return apierror.WrapError(apierror.ErrMissingParameter, err.Error(), err)
		}
	}

	// 3. 自定义校验
	if v, ok := args.(interface{ IsValid() error }); ok {
		if err := v.IsValid(); err != nil {
			return apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err)
		}
	}
	return nil
}
