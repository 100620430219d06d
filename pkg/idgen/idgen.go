package idgen

import (
	"fmt"
	"sync"
	"time"

	"github.com/sony/sonyflake"
)

// Generator 递增 ID 生成器
type Generator struct {
	sf *sonyflake.Sonyflake
}

var (
	defaultGenerator     *Generator
	defaultGeneratorOnce sync.Once
)

// DefaultGenerator 返回进程内共享的 ID 生成器
func DefaultGenerator() *Generator {
	defaultGeneratorOnce.Do(func() {
		defaultGenerator = New()
	})
	return defaultGenerator
}

// New 创建新的 ID 生成器
func New() *Generator {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if sf == nil {
		// 取不到机器 ID 时退回以当前时间为起点
		sf = sonyflake.NewSonyflake(sonyflake.Settings{
			StartTime: time.Now(),
			MachineID: func() (uint16, error) { return 1, nil },
		})
	}
	return &Generator{sf: sf}
}

func (g *Generator) generateIDWithPrefix(prefix, errorMsg string) (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("%s: %w", errorMsg, err)
	}
	return fmt.Sprintf("%s-%d", prefix, id), nil
}

// GenerateConnectionID 生成连接 ID（格式：conn-{递增 ID}）
func (g *Generator) GenerateConnectionID() (string, error) {
	return g.generateIDWithPrefix("conn", "generate connection ID")
}

// GenerateEventID 生成事件 ID（格式：evt-{递增 ID}）
func (g *Generator) GenerateEventID() (string, error) {
	return g.generateIDWithPrefix("evt", "generate event ID")
}

// GenerateRequestID 生成请求 ID（格式：req-{递增 ID}）
func (g *Generator) GenerateRequestID() (string, error) {
	return g.generateIDWithPrefix("req", "generate request ID")
}

// GenerateID 生成通用递增 ID
func (g *Generator) GenerateID() (uint64, error) {
	return g.sf.NextID()
}

// GenerateConnectionID 使用默认生成器生成连接 ID
func GenerateConnectionID() (string, error) {
	return DefaultGenerator().GenerateConnectionID()
}

// GenerateEventID 使用默认生成器生成事件 ID
func GenerateEventID() (string, error) {
	return DefaultGenerator().GenerateEventID()
}

// GenerateRequestID 使用默认生成器生成请求 ID
func GenerateRequestID() (string, error) {
	return DefaultGenerator().GenerateRequestID()
}

// GenerateID 使用默认生成器生成通用递增 ID
func GenerateID() (uint64, error) {
	return DefaultGenerator().GenerateID()
}
