package virt

import (
	"sync"
	"sync/atomic"

	"github.com/jimyag/jvirt/pkg/idgen"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// 进程级一次性初始化
var (
	initOnce    sync.Once
	initialized atomic.Bool
	// processInit 可在测试中替换
	processInit = initProcess
)

// ensureInitialized 在第一个公开入口调用，保证进程级初始化只执行一次
func ensureInitialized() {
	if initialized.Load() {
		return
	}
	initOnce.Do(func() {
		processInit()
		initialized.Store(true)
	})
}

// Initialized 进程级初始化是否已完成
func Initialized() bool {
	return initialized.Load()
}

func initProcess() {
	// 1. 没有配置上下文日志时使用全局日志
	if zerolog.DefaultContextLogger == nil {
		logger := log.Logger
		zerolog.DefaultContextLogger = &logger
	}
	// 2. 预先创建默认 ID 生成器，连接 ID 依赖它
	idgen.DefaultGenerator()
}
