package rpc

// Message 一次 RPC 请求或响应的载体。
//
//   - 请求：ServiceMethod 为 "Service.Method"，Payload 为序列化后的参数，Error 为空。
//   - 响应：Payload 为序列化后的返回值，调用失败时 Error 非空。
type Message struct {
	ServiceMethod string // 格式 "UserService.GetUserInfo"
	Error         string // 服务端处理失败时的错误描述
	Payload       []byte // 序列化后的参数或返回值
}
