package service

import (
	"context"
	"fmt"

	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/jinzhu/copier"
)

// NodeService 宿主机信息
type NodeService struct {
	conn *virt.Connection
}

// NewNodeService 创建宿主机服务
func NewNodeService(conn *virt.Connection) *NodeService {
	return &NodeService{conn: conn}
}

// DescribeNode 查询宿主机信息，refresh 为 true 时丢弃缓存重新获取
func (s *NodeService) DescribeNode(ctx context.Context, refresh bool) (*entity.Node, error) {
	node, err := s.conn.Node()
	if err != nil {
		return nil, err
	}
	if refresh {
		node.Refresh()
	}

	info, err := node.Info()
	if err != nil {
		return nil, err
	}
	hostname, err := node.Hostname()
	if err != nil {
		return nil, err
	}
	free, err := node.FreeMemory()
	if err != nil {
		return nil, err
	}

	out := &entity.Node{}
	if err := copier.Copy(out, &info); err != nil {
		return nil, fmt.Errorf("copy node info: %w", err)
	}
	out.Hostname = hostname
	out.URI = s.conn.URI()
	out.FreeMemory = free
	out.Alive = s.conn.IsAlive()
	return out, nil
}
