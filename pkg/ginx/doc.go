// Package ginx 提供 gin 的 handler 适配器，负责参数绑定、校验和响应渲染
//
// 请求体按 Content-Type 解析为 JSON 或 XML，空请求体视为零值参数；
// 响应格式跟随请求，也可以通过 Accept 头指定 XML。
// 错误统一渲染为 apierror.ErrorResponse，状态码取自 *apierror.Error。
//
// 支持的 handler 签名：
//
//	// 有参数，有返回值
//	func(c *gin.Context, args *Args) (resp, error)
//
//	// 有参数，只有 error，成功返回 204
//	func(c *gin.Context, args *Args) error
//
//	// 无参数，有返回值
//	func(c *gin.Context) (resp, error)
//
// 使用示例：
//
//	router := gin.New()
//	router.Use(ginx.RequestID(), ginx.Logger(logger))
//	router.POST("/api/describe-domain", ginx.Handle(api.DescribeDomain))
//	router.POST("/api/start-domain", ginx.Action(api.StartDomain))
package ginx
