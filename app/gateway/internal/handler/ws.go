package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/pkg/conc"
)

const (
	// authTimeout 首帧认证的等待上限
	authTimeout = 10 * time.Second
	// pingInterval 服务端心跳间隔
	pingInterval = 60 * time.Second
	// pongWait 收不到任何数据就判定连接死亡的时限
	pongWait = pingInterval * 2
	// writeWait 单次写超时
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 推送通道对来源不设限，鉴权靠首帧登录会话
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn 带写锁的 WebSocket 连接，实现 connection.Conn
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// WriteJSON 并发安全地推送一帧 JSON
func (c *wsConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// ping 发送心跳帧
func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close 关闭底层连接
func (c *wsConn) Close() error {
	return c.conn.Close()
}

// handleWebSocket 建立长连接：升级、首帧认证、登记、心跳与清理
func (g *Gateway) handleWebSocket(c *gin.Context) {
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "remote", c.ClientIP(), "error", err)
		return
	}
	conn := &wsConn{conn: raw}

	userID, loginSessionID, ok := g.wsAuth(conn)
	if !ok {
		_ = conn.Close()
		return
	}

	if evicted := g.registry.Insert(userID, loginSessionID, conn); evicted != nil {
		g.log.Info("evict stale connection", "user_id", userID)
		_ = evicted.Close()
	}
	ctx := context.Background()
	if err := g.sessions.SetOnline(ctx, userID); err != nil {
		g.log.Error("mark online failed", "user_id", userID, "error", err)
	}
	g.log.Info("websocket connected", "user_id", userID, "online", g.registry.Size())

	stopPing := make(chan struct{})
	conc.Go(func() {
		g.pingLoop(conn, userID, stopPing)
	})

	g.readLoop(conn)

	close(stopPing)
	g.teardown(conn, userID, loginSessionID)
}

// wsAuth 读取并校验首帧认证报文
func (g *Gateway) wsAuth(conn *wsConn) (userID, loginSessionID string, ok bool) {
	_ = conn.conn.SetReadDeadline(time.Now().Add(authTimeout))

	var authReq api.WSAuthReq
	if err := conn.conn.ReadJSON(&authReq); err != nil {
		g.log.Warn("websocket auth frame not received", "error", err)
		return "", "", false
	}
	if authReq.Type != api.WSTypeAuth {
		g.log.Warn("websocket first frame is not auth", "type", authReq.Type)
		return "", "", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()
	if err := g.authenticate(ctx, authReq.LoginSessionID, authReq.UserID); err != nil {
		_ = conn.WriteJSON(&api.WSAuthResult{Type: api.WSTypeAuthResult, Success: false, Errmsg: err.Error()})
		g.log.Warn("websocket auth rejected", "user_id", authReq.UserID, "reason", err.Error())
		return "", "", false
	}

	if err := conn.WriteJSON(&api.WSAuthResult{Type: api.WSTypeAuthResult, Success: true}); err != nil {
		return "", "", false
	}
	return authReq.UserID, authReq.LoginSessionID, true
}

// pingLoop 周期心跳，失败即关闭连接促使读循环退出
func (g *Gateway) pingLoop(conn *wsConn, userID string, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				g.log.Debug("ping failed, closing connection", "user_id", userID, "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

// readLoop 消费入站帧直到连接断开。上行业务走 HTTP，
// 这里只维持 pong 与关闭检测。
func (g *Gateway) readLoop(conn *wsConn) {
	_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// teardown 连接断开后的清理：摘注册表、清在线标记、注销登录会话
func (g *Gateway) teardown(conn *wsConn, userID, loginSessionID string) {
	g.registry.Remove(conn)
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 已被新连接顶替时在线状态归新连接管
	if g.registry.ByUser(userID) == nil {
		if err := g.sessions.SetOffline(ctx, userID); err != nil {
			g.log.Error("mark offline failed", "user_id", userID, "error", err)
		}
		if err := g.sessions.Invalidate(ctx, loginSessionID); err != nil {
			g.log.Error("invalidate login session failed", "user_id", userID, "error", err)
		}
	}
	g.log.Info("websocket disconnected", "user_id", userID, "online", g.registry.Size())
}
