// Package wsproxy 在 WebSocket 与字节流之间双向转发二进制数据
package wsproxy

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	bufferSize   = 32 * 1024
	closeTimeout = time.Second
)

// Proxy 把一个 WebSocket 连接桥接到一个字节流，如 VNC socket
type Proxy struct {
	ws     *websocket.Conn
	target io.ReadWriteCloser
	log    zerolog.Logger

	writeMu sync.Mutex
	once    sync.Once
}

// New 创建代理，Run 返回后两端都会被关闭
func New(ws *websocket.Conn, target io.ReadWriteCloser, logger zerolog.Logger) *Proxy {
	return &Proxy{ws: ws, target: target, log: logger}
}

// Run 双向转发直到任一端关闭或 ctx 取消
func (p *Proxy) Run(ctx context.Context) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	var toWS, toTarget int64
	go func() {
		defer wg.Done()
		defer p.Close()
		toWS = p.targetToWS()
	}()
	go func() {
		defer wg.Done()
		defer p.Close()
		toTarget = p.wsToTarget()
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		p.Close()
		<-done
	case <-done:
	}

	p.log.Info().
		Int64("bytes_to_ws", toWS).
		Int64("bytes_to_target", toTarget).
		Msg("proxy session ended")
}

func (p *Proxy) targetToWS() int64 {
	var total int64
	buf := make([]byte, bufferSize)
	for {
		n, err := p.target.Read(buf)
		if n > 0 {
			total += int64(n)
			p.writeMu.Lock()
			werr := p.ws.WriteMessage(websocket.BinaryMessage, buf[:n])
			p.writeMu.Unlock()
			if werr != nil {
				p.log.Debug().Err(werr).Msg("write websocket")
				return total
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Debug().Err(err).Msg("read target")
			}
			return total
		}
	}
}

func (p *Proxy) wsToTarget() int64 {
	var total int64
	for {
		typ, data, err := p.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.log.Debug().Err(err).Msg("read websocket")
			}
			return total
		}
		// 文本帧不属于 RFB 流
		if typ != websocket.BinaryMessage {
			continue
		}
		total += int64(len(data))
		if _, err := p.target.Write(data); err != nil {
			p.log.Debug().Err(err).Msg("write target")
			return total
		}
	}
}

// Close 关闭两端，可重复调用
func (p *Proxy) Close() {
	p.once.Do(func() {
		p.writeMu.Lock()
		_ = p.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeTimeout))
		p.writeMu.Unlock()
		_ = p.target.Close()
		_ = p.ws.Close()
	})
}
