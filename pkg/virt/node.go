package virt

import (
	"sync/atomic"
)

// Node 宿主机信息，每个连接一个实例
// 主机名和硬件信息在首次访问时获取并缓存，空闲内存每次实时查询
type Node struct {
	conn     *Connection
	hostname *Lazy[string]
	info     *Lazy[NodeInfo]
	disposed atomic.Bool
}

func newNode(conn *Connection) *Node {
	n := &Node{conn: conn}
	n.hostname = NewLazy(func() (string, error) {
		if err := n.check(); err != nil {
			return "", err
		}
		name, err := conn.drv.Hostname()
		return name, queryError("get hostname", err)
	})
	n.info = NewLazy(func() (NodeInfo, error) {
		if err := n.check(); err != nil {
			return NodeInfo{}, err
		}
		info, err := conn.drv.NodeInfo()
		return info, queryError("get node info", err)
	})
	return n
}

func (n *Node) check() error {
	if n.disposed.Load() {
		return ErrDisposed
	}
	return nil
}

// Hostname 宿主机主机名
func (n *Node) Hostname() (string, error) {
	return n.hostname.Get()
}

// Info 宿主机硬件信息
func (n *Node) Info() (NodeInfo, error) {
	return n.info.Get()
}

// FreeMemory 空闲内存，单位字节
func (n *Node) FreeMemory() (uint64, error) {
	if err := n.check(); err != nil {
		return 0, err
	}
	free, err := n.conn.drv.NodeFreeMemory()
	return free, queryError("get node free memory", err)
}

// Refresh 清空缓存的主机名和硬件信息
func (n *Node) Refresh() {
	n.hostname.Invalidate()
	n.info.Invalidate()
}

// Dispose 释放后所有查询返回 ErrDisposed
func (n *Node) Dispose() {
	n.disposed.Store(true)
	n.Refresh()
}
