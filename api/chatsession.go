package api

// ChatSessionInfo 会话概要
type ChatSessionInfo struct {
	SessionID   string       `json:"session_id"`
	SessionName string       `json:"session_name"`
	Single      bool         `json:"single"` // 单聊为 true，群聊为 false
	LastMessage *MessageInfo `json:"last_message,omitempty"`
}

// ChatSessionCreateReq 创建群聊会话
type ChatSessionCreateReq struct {
	BaseReq
	SessionName string   `json:"session_name"`
	MemberIDs   []string `json:"member_ids"`
}

// ChatSessionCreateResp 创建结果
type ChatSessionCreateResp struct {
	BaseResp
	SessionID string `json:"session_id"`
}

// GetChatSessionMemberReq 查询会话成员
type GetChatSessionMemberReq struct {
	BaseReq
	SessionID string `json:"session_id"`
}

// GetChatSessionMemberResp 会话成员 ID 列表
type GetChatSessionMemberResp struct {
	BaseResp
	MemberIDs []string `json:"member_ids,omitempty"`
}

// GetChatSessionListReq 查询用户的会话列表
type GetChatSessionListReq struct {
	BaseReq
	UserID string `json:"user_id"`
}

// GetChatSessionListResp 会话列表
type GetChatSessionListResp struct {
	BaseResp
	Sessions []*ChatSessionInfo `json:"sessions,omitempty"`
}

// TransmitTargetReq 路由一条新消息：定位转发目标并持久化入队
type TransmitTargetReq struct {
	BaseReq
	UserID    string      `json:"user_id"`
	SessionID string      `json:"session_id"`
	Body      MessageBody `json:"body"`
}

// TransmitTargetResp 完整消息与转发目标（含发送者本人）
type TransmitTargetResp struct {
	BaseResp
	Message   *MessageInfo `json:"message,omitempty"`
	TargetIDs []string     `json:"target_ids,omitempty"`
}

// 会话服务方法名
const (
	MethodChatSessionCreate    = "ChatSessionService.Create"
	MethodGetChatSessionMember = "ChatSessionService.GetMember"
	MethodGetChatSessionList   = "ChatSessionService.GetList"
	MethodTransmitTarget       = "ChatSessionService.TransmitTarget"
)
