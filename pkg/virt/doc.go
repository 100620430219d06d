// Package virt 在原生虚拟化驱动之上提供带缓存的对象模型
//
// 一个 Connection 对应一个 hypervisor 会话，负责：
//   - 按稳定标识缓存 Domain、StoragePool、StorageVolume，同一标识只存在一个对象
//   - 在后台 goroutine 中驱动原生事件循环，把回调翻译为类型化事件并分发
//   - 按间隔采样运行中域的 CPU 利用率
//
// 原生层通过 Driver 接口接入，生产环境使用 pkg/libvirt 的实现：
//
//	drv := libvirt.NewDriver()
//	conn, err := virt.Open(ctx, drv, virt.WithURI("qemu:///system"))
//	if err != nil {
//		return err
//	}
//	defer conn.Dispose()
//
//	conn.SubscribeDomainEvents(func(d *virt.Domain, ev virt.DomainLifecycleEvent) {
//		log.Info().Str("uuid", ev.ID.String()).Stringer("type", ev.Type).Msg("domain event")
//	})
//
// 查找接口在对象不存在时返回 nil 和 nil error；连接释放后所有操作返回 ErrDisposed。
package virt
