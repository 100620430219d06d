package ginx

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handle 适配有参数、有返回值和 error 的 handler
func Handle[TArgs any, TResp any](fn func(*gin.Context, *TArgs) (TResp, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		args := new(TArgs)
		if err := bindArgs(ctx, args); err != nil {
			renderError(ctx, err)
			return
		}

		result, err := fn(ctx, args)
		if err != nil {
			renderError(ctx, err)
			return
		}
		renderResponse(ctx, result)
	}
}

// Action 适配有参数、只有 error 的 handler，成功时返回 204
func Action[TArgs any](fn func(*gin.Context, *TArgs) error) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		args := new(TArgs)
		if err := bindArgs(ctx, args); err != nil {
			renderError(ctx, err)
			return
		}

		if err := fn(ctx, args); err != nil {
			renderError(ctx, err)
			return
		}
		ctx.Status(http.StatusNoContent)
	}
}

// Query 适配无参数、有返回值和 error 的 handler
func Query[TResp any](fn func(*gin.Context) (TResp, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, err := fn(ctx)
		if err != nil {
			renderError(ctx, err)
			return
		}
		renderResponse(ctx, result)
	}
}
