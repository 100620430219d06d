package apierror

import "net/http"

// 通用错误
var (
	// ErrInternalError 发生了内部错误
	ErrInternalError = NewErrorWithStatus("InternalError",
		"An internal error has occurred.", http.StatusInternalServerError)

	// ErrServiceUnavailable 依赖的 hypervisor 会话不可用
	ErrServiceUnavailable = NewErrorWithStatus("ServiceUnavailable",
		"The hypervisor session is not available.", http.StatusServiceUnavailable)

	// ErrInvalidParameter 参数格式或取值错误
	ErrInvalidParameter = NewErrorWithStatus("InvalidParameterValue",
		"A parameter has an invalid value.", http.StatusBadRequest)

	// ErrMissingParameter 缺少必需参数
	ErrMissingParameter = NewErrorWithStatus("MissingParameter",
		"A required parameter is missing.", http.StatusBadRequest)
)

// 资源不存在
var (
	ErrDomainNotFound = NewErrorWithStatus("InvalidDomain.NotFound",
		"The domain does not exist.", http.StatusNotFound)

	ErrStoragePoolNotFound = NewErrorWithStatus("InvalidStoragePool.NotFound",
		"The storage pool does not exist.", http.StatusNotFound)

	ErrStorageVolumeNotFound = NewErrorWithStatus("InvalidStorageVolume.NotFound",
		"The storage volume does not exist.", http.StatusNotFound)

	ErrConsoleNotFound = NewErrorWithStatus("InvalidConsole.NotFound",
		"The domain has no reachable VNC console.", http.StatusNotFound)
)

// 状态冲突
var (
	ErrDomainNotRunning = NewErrorWithStatus("IncorrectDomainState",
		"The domain is not running.", http.StatusConflict)
)
