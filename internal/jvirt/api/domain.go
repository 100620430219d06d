package api

import (
	"context"
	"errors"
	"net"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/jvirt/internal/jvirt/entity"
	"github.com/jimyag/jvirt/pkg/ginx"
	"github.com/jimyag/jvirt/pkg/virt"
)

// DomainServiceInterface 定义域服务的接口
type DomainServiceInterface interface {
	ListDomains(ctx context.Context) ([]*entity.Domain, error)
	DescribeDomain(ctx context.Context, ref entity.DomainRef) (*entity.Domain, error)
	DescribeDomainXML(ctx context.Context, ref entity.DomainRef) (string, error)
	ControlDomain(ctx context.Context, ref entity.DomainRef, op virt.DomainOp) error
	SetConsolePassword(ctx context.Context, ref entity.DomainRef, password string) error
	DescribeDomainMetrics(ctx context.Context, ref entity.DomainRef, withHistory bool) (*entity.DomainMetrics, error)
	ConsoleTarget(ctx context.Context, ref entity.DomainRef) (*entity.ConsoleTarget, error)
	DescribeDomainRuntime(ctx context.Context, ref entity.DomainRef) (*entity.DomainRuntime, error)
}

// DomainAPI 域 API
type DomainAPI struct {
	domainService DomainServiceInterface
	dial          dialFunc
}

// NewDomainAPI 创建域 API
func NewDomainAPI(domainService DomainServiceInterface) *DomainAPI {
	d := &net.Dialer{}
	return &DomainAPI{domainService: domainService, dial: d.DialContext}
}

// RegisterRoutes 注册路由
func (a *DomainAPI) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/list-domains", ginx.Handle(a.ListDomains))
	r.POST("/describe-domain", ginx.Handle(a.DescribeDomain))
	r.POST("/describe-domain-xml", ginx.Handle(a.DescribeDomainXML))
	r.POST("/start-domain", ginx.Action(a.control(virt.DomainOpCreate)))
	r.POST("/shutdown-domain", ginx.Action(a.control(virt.DomainOpShutdown)))
	r.POST("/reset-domain", ginx.Action(a.control(virt.DomainOpReset)))
	r.POST("/suspend-domain", ginx.Action(a.control(virt.DomainOpSuspend)))
	r.POST("/resume-domain", ginx.Action(a.control(virt.DomainOpResume)))
	r.POST("/managed-save-domain", ginx.Action(a.control(virt.DomainOpManagedSave)))
	r.POST("/set-console-password", ginx.Action(a.SetConsolePassword))
	r.POST("/describe-domain-metrics", ginx.Handle(a.DescribeDomainMetrics))
	r.POST("/describe-domain-runtime", ginx.Handle(a.DescribeDomainRuntime))
	r.GET("/domain-console", a.Console)
}

// DomainRequest 通过 uuid 或 name 指定域
type DomainRequest struct {
	UUID string `json:"uuid" xml:"uuid"`
	Name string `json:"name" xml:"name"`
}

func (r *DomainRequest) IsValid() error {
	if r.UUID == "" && r.Name == "" {
		return errors.New("uuid or name is required")
	}
	return nil
}

func (r *DomainRequest) ref() entity.DomainRef {
	return entity.DomainRef{UUID: r.UUID, Name: r.Name}
}

// ListDomainsRequest 列举域请求
type ListDomainsRequest struct {
	State string `json:"state" xml:"state"` // 状态过滤（可选）
}

// ListDomainsResponse 列举域响应
type ListDomainsResponse struct {
	Domains []*entity.Domain `json:"domains" xml:"domains>domain"`
}

// ListDomains 列举域
func (a *DomainAPI) ListDomains(ctx *gin.Context, req *ListDomainsRequest) (*ListDomainsResponse, error) {
	domains, err := a.domainService.ListDomains(ctx.Request.Context())
	if err != nil {
		return nil, err
	}
	if req.State == "" {
		return &ListDomainsResponse{Domains: domains}, nil
	}

	filtered := make([]*entity.Domain, 0, len(domains))
	for _, d := range domains {
		if d.State == req.State {
			filtered = append(filtered, d)
		}
	}
	return &ListDomainsResponse{Domains: filtered}, nil
}

// DescribeDomainResponse 查询域详情响应
type DescribeDomainResponse struct {
	Domain *entity.Domain `json:"domain" xml:"domain"`
}

// DescribeDomain 查询域详情
func (a *DomainAPI) DescribeDomain(ctx *gin.Context, req *DomainRequest) (*DescribeDomainResponse, error) {
	d, err := a.domainService.DescribeDomain(ctx.Request.Context(), req.ref())
	if err != nil {
		return nil, err
	}
	return &DescribeDomainResponse{Domain: d}, nil
}

// DescribeDomainXMLResponse 域描述符响应
type DescribeDomainXMLResponse struct {
	XML string `json:"xml" xml:"xml"`
}

// DescribeDomainXML 查询域描述符
func (a *DomainAPI) DescribeDomainXML(ctx *gin.Context, req *DomainRequest) (*DescribeDomainXMLResponse, error) {
	doc, err := a.domainService.DescribeDomainXML(ctx.Request.Context(), req.ref())
	if err != nil {
		return nil, err
	}
	return &DescribeDomainXMLResponse{XML: doc}, nil
}

func (a *DomainAPI) control(op virt.DomainOp) func(*gin.Context, *DomainRequest) error {
	return func(ctx *gin.Context, req *DomainRequest) error {
		return a.domainService.ControlDomain(ctx.Request.Context(), req.ref(), op)
	}
}

// SetConsolePasswordRequest 设置控制台密码请求
type SetConsolePasswordRequest struct {
	DomainRequest
	Password string `json:"password" xml:"password" binding:"required"`
}

// SetConsolePassword 设置 VNC 控制台密码
func (a *DomainAPI) SetConsolePassword(ctx *gin.Context, req *SetConsolePasswordRequest) error {
	return a.domainService.SetConsolePassword(ctx.Request.Context(), req.ref(), req.Password)
}

// DescribeDomainMetricsRequest 查询域指标请求
type DescribeDomainMetricsRequest struct {
	DomainRequest
	WithHistory bool `json:"with_history" xml:"with_history"`
}

// DescribeDomainMetricsResponse 查询域指标响应
type DescribeDomainMetricsResponse struct {
	Metrics *entity.DomainMetrics `json:"metrics" xml:"metrics"`
}

// DescribeDomainMetrics 查询域的 CPU 利用率
func (a *DomainAPI) DescribeDomainMetrics(ctx *gin.Context, req *DescribeDomainMetricsRequest) (*DescribeDomainMetricsResponse, error) {
	m, err := a.domainService.DescribeDomainMetrics(ctx.Request.Context(), req.ref(), req.WithHistory)
	if err != nil {
		return nil, err
	}
	return &DescribeDomainMetricsResponse{Metrics: m}, nil
}

// DescribeDomainRuntimeResponse 域运行时数据响应
type DescribeDomainRuntimeResponse struct {
	Runtime *entity.DomainRuntime `json:"runtime" xml:"runtime"`
}

// DescribeDomainRuntime 查询运行时长、磁盘 I/O 和网卡地址
func (a *DomainAPI) DescribeDomainRuntime(ctx *gin.Context, req *DomainRequest) (*DescribeDomainRuntimeResponse, error) {
	rt, err := a.domainService.DescribeDomainRuntime(ctx.Request.Context(), req.ref())
	if err != nil {
		return nil, err
	}
	return &DescribeDomainRuntimeResponse{Runtime: rt}, nil
}
