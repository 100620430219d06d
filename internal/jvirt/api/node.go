package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/pkg/ginx"
)

// NodeServiceInterface 定义宿主机服务的接口
type NodeServiceInterface interface {
	DescribeNode(ctx context.Context, refresh bool) (*entity.Node, error)
}

// NodeAPI 宿主机 API
type NodeAPI struct {
	nodeService NodeServiceInterface
}

// NewNodeAPI 创建宿主机 API
func NewNodeAPI(nodeService NodeServiceInterface) *NodeAPI {
	return &NodeAPI{nodeService: nodeService}
}

// RegisterRoutes 注册路由
func (a *NodeAPI) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/describe-node", ginx.Handle(a.DescribeNode))
}

// DescribeNodeRequest 查询宿主机请求
type DescribeNodeRequest struct {
	Refresh bool `json:"refresh" xml:"refresh"` // 丢弃缓存的主机名和硬件信息
}

// DescribeNodeResponse 查询宿主机响应
type DescribeNodeResponse struct {
	Node *entity.Node `json:"node" xml:"node"`
}

// DescribeNode 查询宿主机信息
func (a *NodeAPI) DescribeNode(ctx *gin.Context, req *DescribeNodeRequest) (*DescribeNodeResponse, error) {
	node, err := a.nodeService.DescribeNode(ctx.Request.Context(), req.Refresh)
	if err != nil {
		return nil, err
	}
	return &DescribeNodeResponse{Node: node}, nil
}
