package api

// MessageType 消息体类型
type MessageType string

const (
	// MessageTypeText 文本消息
	MessageTypeText MessageType = "text"
	// MessageTypeImage 图片消息
	MessageTypeImage MessageType = "image"
	// MessageTypeFile 文件消息
	MessageTypeFile MessageType = "file"
	// MessageTypeSpeech 语音消息
	MessageTypeSpeech MessageType = "speech"
)

// Valid 是否为已知类型
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSpeech:
		return true
	}
	return false
}

// MessageBody 消息体。文本消息填 Content；
// 二进制消息上行时填 FileName+FileContents，落库后只保留 FileID。
type MessageBody struct {
	Type         MessageType `json:"type"`
	Content      string      `json:"content,omitempty"`
	FileName     string      `json:"file_name,omitempty"`
	FileContents []byte      `json:"file_contents,omitempty"`
	FileID       string      `json:"file_id,omitempty"`
}

// MessageInfo 路由与存储共用的不可变消息结构
type MessageInfo struct {
	MessageID string      `json:"message_id"`
	SessionID string      `json:"session_id"`
	Timestamp int64       `json:"timestamp"` // unix 秒
	Sender    *UserInfo   `json:"sender"`
	Body      MessageBody `json:"body"`
}

// GetRecentMsgReq 拉取会话最近 N 条消息
type GetRecentMsgReq struct {
	BaseReq
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
}

// GetRecentMsgResp 最近消息，按时间升序
type GetRecentMsgResp struct {
	BaseResp
	Messages []*MessageInfo `json:"messages,omitempty"`
}

// GetHistoryMsgReq 拉取时间区间内的历史消息
type GetHistoryMsgReq struct {
	BaseReq
	SessionID string `json:"session_id"`
	StartTime int64  `json:"start_time"` // unix 秒，含
	EndTime   int64  `json:"end_time"`   // unix 秒，含
}

// GetHistoryMsgResp 历史消息，按时间升序
type GetHistoryMsgResp struct {
	BaseResp
	Messages []*MessageInfo `json:"messages,omitempty"`
}

// 消息服务方法名
const (
	MethodGetRecentMsg  = "MessageService.GetRecentMsg"
	MethodGetHistoryMsg = "MessageService.GetHistoryMsg"
)
