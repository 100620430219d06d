// Package idgen 提供递增 ID 生成器
//
// 使用 Sonyflake 算法生成全局唯一且时间有序的 64 位 ID。
//
// 生成的 ID 格式：
//   - 连接 ID: conn-{递增数字}
//   - 事件 ID: evt-{递增数字}
//   - 请求 ID: req-{递增数字}
//
// 使用方式：
//
//	connID, err := idgen.GenerateConnectionID()
//	// connID: "conn-1234567890"
//
//	gen := idgen.New()
//	eventID, err := gen.GenerateEventID()
package idgen
