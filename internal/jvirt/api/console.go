package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/ginx"
	"github.com/jimyag/jvirt/pkg/wsproxy"
	"github.com/rs/zerolog"
)

const consoleDialTimeout = 5 * time.Second

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	// 允许所有来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Console 把 WebSocket 连接桥接到域的 VNC 控制台
// 查询参数 uuid 或 name 指定域
func (a *DomainAPI) Console(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	logger := zerolog.Ctx(reqCtx)

	// 1. 升级之前解析地址，错误以普通 HTTP 响应返回
	req := DomainRequest{UUID: ctx.Query("uuid"), Name: ctx.Query("name")}
	if err := req.IsValid(); err != nil {
		ginx.Error(ctx, apierror.WrapError(apierror.ErrMissingParameter, err.Error(), err))
		return
	}
	target, err := a.domainService.ConsoleTarget(reqCtx, req.ref())
	if err != nil {
		ginx.Error(ctx, err)
		return
	}

	// 2. 连接控制台
	dialCtx, cancel := context.WithTimeout(reqCtx, consoleDialTimeout)
	conn, err := a.dial(dialCtx, target.Network, target.Address)
	cancel()
	if err != nil {
		ginx.Error(ctx, apierror.WrapError(apierror.ErrServiceUnavailable,
			"the console of the domain is unreachable", err))
		return
	}

	// 3. 升级并转发
	ws, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		conn.Close()
		logger.Warn().Err(err).Msg("upgrade console websocket")
		return
	}
	proxyLog := logger.With().
		Str("network", target.Network).
		Str("address", target.Address).
		Logger()
	proxyLog.Info().Msg("console session started")
	wsproxy.New(ws, conn, proxyLog).Run(reqCtx)
}
