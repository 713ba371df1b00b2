package api

// WebSocket 帧类型
const (
	// WSTypeAuth 客户端首帧：登录会话认证
	WSTypeAuth = "auth"
	// WSTypeAuthResult 服务端认证应答
	WSTypeAuthResult = "auth_result"
	// WSTypeMessage 服务端消息推送
	WSTypeMessage = "message"
)

// WSAuthReq WebSocket 首帧认证请求
type WSAuthReq struct {
	Type           string `json:"type"` // 必须为 WSTypeAuth
	UserID         string `json:"user_id"`
	LoginSessionID string `json:"login_session_id"`
}

// WSAuthResult 认证应答
type WSAuthResult struct {
	Type    string `json:"type"` // WSTypeAuthResult
	Success bool   `json:"success"`
	Errmsg  string `json:"errmsg,omitempty"`
}

// WSPush 消息推送帧
type WSPush struct {
	Type    string       `json:"type"` // WSTypeMessage
	Message *MessageInfo `json:"message"`
}

// NewMessageReq 网关新消息提交（HTTP）
type NewMessageReq struct {
	BaseReq
	LoginSessionID string      `json:"login_session_id"`
	UserID         string      `json:"user_id"`
	SessionID      string      `json:"session_id"`
	Body           MessageBody `json:"body"`
}

// NewMessageResp 新消息提交结果
type NewMessageResp struct {
	BaseResp
	Message *MessageInfo `json:"message,omitempty"`
}
