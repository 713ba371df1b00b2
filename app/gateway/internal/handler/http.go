package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/pkg/idgen"
)

// Routes 注册网关全部路由
func (g *Gateway) Routes(r *gin.Engine) {
	r.POST("/api/user/register", g.handleRegister)
	r.POST("/api/user/login", g.handleLogin)
	r.POST("/api/message/new", g.handleNewMessage)
	r.POST("/api/message/history", g.handleHistory)
	r.POST("/api/session/list", g.handleSessionList)
	r.POST("/api/session/create", g.handleSessionCreate)
	r.GET("/ws", g.handleWebSocket)
}

// fillRequestID 客户端未带追踪 ID 时补一个
func fillRequestID(base *api.BaseReq) {
	if base.RequestID == "" {
		base.RequestID = idgen.RequestID()
	}
}

func (g *Gateway) handleRegister(c *gin.Context) {
	var req api.UserRegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest[api.UserRegisterResp](c, err)
		return
	}
	fillRequestID(&req.BaseReq)

	var resp api.UserRegisterResp
	if err := g.call(c.Request.Context(), api.ServiceUser, api.MethodUserRegister, &req, &resp); err != nil {
		g.log.Error("register call failed", "request_id", req.RequestID, "error", err)
		resp.Fail("user service unavailable")
	}
	c.JSON(http.StatusOK, &resp)
}

func (g *Gateway) handleLogin(c *gin.Context) {
	var req api.UserLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest[api.UserLoginResp](c, err)
		return
	}
	fillRequestID(&req.BaseReq)

	var resp api.UserLoginResp
	if err := g.call(c.Request.Context(), api.ServiceUser, api.MethodUserLogin, &req, &resp); err != nil {
		g.log.Error("login call failed", "request_id", req.RequestID, "error", err)
		resp.Fail("user service unavailable")
	}
	c.JSON(http.StatusOK, &resp)
}

func (g *Gateway) handleNewMessage(c *gin.Context) {
	var req api.NewMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest[api.NewMessageResp](c, err)
		return
	}
	fillRequestID(&req.BaseReq)

	resp := g.newMessage(c.Request.Context(), &req)
	c.JSON(http.StatusOK, resp)
}

// newMessage 新消息提交：鉴权、经会话服务路由入队、下推在线目标。
// 入队成功才下推，下推失败不影响应答。
func (g *Gateway) newMessage(ctx context.Context, req *api.NewMessageReq) *api.NewMessageResp {
	resp := &api.NewMessageResp{}
	if err := g.authenticate(ctx, req.LoginSessionID, req.UserID); err != nil {
		resp.Fail(err.Error())
		return resp
	}

	transmitReq := &api.TransmitTargetReq{
		BaseReq:   req.BaseReq,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Body:      req.Body,
	}
	var transmitResp api.TransmitTargetResp
	if err := g.call(ctx, api.ServiceChatSession, api.MethodTransmitTarget, transmitReq, &transmitResp); err != nil {
		g.log.Error("transmit call failed", "request_id", req.RequestID, "error", err)
		resp.Fail("chat session service unavailable")
		return resp
	}
	if !transmitResp.Success {
		resp.Fail(transmitResp.Errmsg)
		return resp
	}

	g.fanOut(transmitResp.Message, transmitResp.TargetIDs)

	resp.Message = transmitResp.Message
	resp.Ok()
	return resp
}

func (g *Gateway) handleHistory(c *gin.Context) {
	var req struct {
		api.GetHistoryMsgReq
		LoginSessionID string `json:"login_session_id"`
		UserID         string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest[api.GetHistoryMsgResp](c, err)
		return
	}
	fillRequestID(&req.BaseReq)

	var resp api.GetHistoryMsgResp
	if err := g.authenticate(c.Request.Context(), req.LoginSessionID, req.UserID); err != nil {
		resp.Fail(err.Error())
		c.JSON(http.StatusOK, &resp)
		return
	}
	if err := g.call(c.Request.Context(), api.ServiceMessage, api.MethodGetHistoryMsg, &req.GetHistoryMsgReq, &resp); err != nil {
		g.log.Error("history call failed", "request_id", req.RequestID, "error", err)
		resp.Fail("message service unavailable")
	}
	c.JSON(http.StatusOK, &resp)
}

func (g *Gateway) handleSessionList(c *gin.Context) {
	var req struct {
		api.GetChatSessionListReq
		LoginSessionID string `json:"login_session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest[api.GetChatSessionListResp](c, err)
		return
	}
	fillRequestID(&req.BaseReq)

	var resp api.GetChatSessionListResp
	if err := g.authenticate(c.Request.Context(), req.LoginSessionID, req.UserID); err != nil {
		resp.Fail(err.Error())
		c.JSON(http.StatusOK, &resp)
		return
	}
	if err := g.call(c.Request.Context(), api.ServiceChatSession, api.MethodGetChatSessionList, &req.GetChatSessionListReq, &resp); err != nil {
		g.log.Error("session list call failed", "request_id", req.RequestID, "error", err)
		resp.Fail("chat session service unavailable")
	}
	c.JSON(http.StatusOK, &resp)
}

func (g *Gateway) handleSessionCreate(c *gin.Context) {
	var req struct {
		api.ChatSessionCreateReq
		LoginSessionID string `json:"login_session_id"`
		UserID         string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest[api.ChatSessionCreateResp](c, err)
		return
	}
	fillRequestID(&req.BaseReq)

	var resp api.ChatSessionCreateResp
	if err := g.authenticate(c.Request.Context(), req.LoginSessionID, req.UserID); err != nil {
		resp.Fail(err.Error())
		c.JSON(http.StatusOK, &resp)
		return
	}
	if err := g.call(c.Request.Context(), api.ServiceChatSession, api.MethodChatSessionCreate, &req.ChatSessionCreateReq, &resp); err != nil {
		g.log.Error("session create call failed", "request_id", req.RequestID, "error", err)
		resp.Fail("chat session service unavailable")
	}
	c.JSON(http.StatusOK, &resp)
}

// badRequest 报文解析失败统一应答
func badRequest[T any](c *gin.Context, err error) {
	var resp T
	if r, ok := any(&resp).(interface{ Fail(string) }); ok {
		r.Fail("invalid request: " + err.Error())
	}
	c.JSON(http.StatusBadRequest, &resp)
}
