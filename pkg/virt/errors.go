package virt

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jimyag/jvirt/pkg/apierror"
)

var (
	// ErrConnection 会话打开或保活失败
	ErrConnection = apierror.NewErrorWithStatus("ConnectionError",
		"Failed to open or keep the hypervisor session alive.", http.StatusBadGateway)

	// ErrQueryFailed 原生调用应返回数据但失败
	ErrQueryFailed = apierror.NewErrorWithStatus("QueryFailed",
		"A hypervisor query failed.", http.StatusInternalServerError)

	// ErrNotFound 对象不存在，核心查找接口会把它转换为 nil 返回值
	ErrNotFound = apierror.NewErrorWithStatus("NotFound",
		"The requested object does not exist.", http.StatusNotFound)

	// ErrNotImplemented 当前驱动或后端不支持该能力
	ErrNotImplemented = apierror.NewErrorWithStatus("NotImplemented",
		"The operation is not implemented for this driver.", http.StatusNotImplemented)

	// ErrDisposed 连接或对象已释放
	ErrDisposed = apierror.NewErrorWithStatus("Disposed",
		"The connection or object has been disposed.", http.StatusServiceUnavailable)

	// ErrInvalidArgument 参数非法
	ErrInvalidArgument = apierror.NewErrorWithStatus("InvalidArgument",
		"An argument is invalid.", http.StatusBadRequest)
)

// queryError 把驱动错误包装为 ErrQueryFailed，已经是 apierror 的错误原样返回
func queryError(msg string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return err
	}
	return apierror.WrapError(ErrQueryFailed, msg, err)
}

// IsNotFound 判断是否为对象不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// apierrorf 以 base 的错误码构造一个带格式化消息的错误
func apierrorf(base *apierror.Error, format string, args ...any) error {
	return apierror.WrapError(base, fmt.Sprintf(format, args...), nil)
}

// connectionError 会话相关的错误
func connectionError(msg string, err error) error {
	return apierror.WrapError(ErrConnection, msg, err)
}
