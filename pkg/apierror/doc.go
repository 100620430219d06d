// Package apierror 提供带错误码和 HTTP 状态码的错误类型
//
// virt 包的错误分类和 HTTP 层都使用这里的 *Error：
// errors.Is 按 Code 判断错误类别，RawError 保留原始错误供日志使用。
//
// 错误响应支持 JSON 和 XML 两种格式：
//
//	{
//	    "errors": [
//	        {
//	            "code": "InvalidDomain.NotFound",
//	            "message": "domain 'vm-1' does not exist"
//	        }
//	    ],
//	    "requestID": "req-433478291302400001"
//	}
//
// 使用示例：
//
//	err := apierror.WrapError(apierror.ErrDomainNotFound, "domain 'vm-1' does not exist", nil)
//	resp := apierror.NewErrorResponse(requestID, err)
//	c.JSON(err.Status(), resp)
package apierror
