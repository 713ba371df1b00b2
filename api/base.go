// Package api 定义服务间 RPC 与网关接口共享的报文结构。
//
// 所有请求携带 RequestID 用于全链路追踪；所有响应携带
// Success/Errmsg，业务失败通过 Errmsg 返回而不是传输层错误。
package api

// BaseReq 请求公共字段
type BaseReq struct {
	RequestID string `json:"request_id"`
}

// BaseResp 响应公共字段
type BaseResp struct {
	Success bool   `json:"success"`
	Errmsg  string `json:"errmsg,omitempty"`
}

// Ok 标记成功
func (r *BaseResp) Ok() {
	r.Success = true
	r.Errmsg = ""
}

// Fail 标记失败并携带原因
func (r *BaseResp) Fail(errmsg string) {
	r.Success = false
	r.Errmsg = errmsg
}

// 服务名，与注册中心内的 key 段一致
const (
	ServiceUser        = "user"
	ServiceChatSession = "chatsession"
	ServiceMessage     = "message"
	ServiceFile        = "file"
)

// TopicNewMessage 新消息入库队列的 Kafka topic
const TopicNewMessage = "lumo.message.new"
