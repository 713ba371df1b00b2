package api

// UserInfo 用户档案快照
type UserInfo struct {
	UserID      string `json:"user_id"`
	Nickname    string `json:"nickname"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	AvatarID    string `json:"avatar_id"`
}

// UserRegisterReq 用户注册
type UserRegisterReq struct {
	BaseReq
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// UserRegisterResp 注册结果
type UserRegisterResp struct {
	BaseResp
	UserID string `json:"user_id"`
}

// UserLoginReq 用户登录
type UserLoginReq struct {
	BaseReq
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// UserLoginResp 登录结果，携带后续请求使用的登录会话 ID
type UserLoginResp struct {
	BaseResp
	UserID         string `json:"user_id"`
	LoginSessionID string `json:"login_session_id"`
}

// GetUserInfoReq 查询单个用户档案
type GetUserInfoReq struct {
	BaseReq
	UserID string `json:"user_id"`
}

// GetUserInfoResp 用户档案
type GetUserInfoResp struct {
	BaseResp
	User *UserInfo `json:"user,omitempty"`
}

// GetMultiUserInfoReq 批量查询用户档案
type GetMultiUserInfoReq struct {
	BaseReq
	UserIDs []string `json:"user_ids"`
}

// GetMultiUserInfoResp 批量用户档案，按 user_id 索引
type GetMultiUserInfoResp struct {
	BaseResp
	Users map[string]*UserInfo `json:"users,omitempty"`
}

// 用户服务方法名
const (
	MethodUserRegister     = "UserService.Register"
	MethodUserLogin        = "UserService.Login"
	MethodGetUserInfo      = "UserService.GetUserInfo"
	MethodGetMultiUserInfo = "UserService.GetMultiUserInfo"
)
