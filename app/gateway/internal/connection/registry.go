// Package connection 维护在线用户与长连接的双向注册表。
package connection

import (
	"sync"
)

// Conn 一条可推送的客户端连接
type Conn interface {
	// WriteJSON 推送一帧 JSON 报文，并发安全
	WriteJSON(v any) error
	// Close 关闭连接
	Close() error
}

// identity 连接归属
type identity struct {
	userID         string
	loginSessionID string
}

// Registry 用户与连接的双向索引。
// 两张表始终在同一把锁内一起变更，任何时刻互为反函数。
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]Conn
	idents map[Conn]identity
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Conn),
		idents: make(map[Conn]identity),
	}
}

// Insert 登记连接。同一用户已有连接时先从两张表摘除旧连接，
// 返回被顶替的连接由调用方负责关闭；无顶替返回 nil。
func (r *Registry) Insert(userID, loginSessionID string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted Conn
	if old, ok := r.byUser[userID]; ok && old != conn {
		delete(r.idents, old)
		evicted = old
	}
	r.byUser[userID] = conn
	r.idents[conn] = identity{userID: userID, loginSessionID: loginSessionID}
	return evicted
}

// ByUser 查用户当前连接，不在线返回 nil
func (r *Registry) ByUser(userID string) Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[userID]
}

// Identity 查连接归属的用户与登录会话
func (r *Registry) Identity(conn Conn) (userID, loginSessionID string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.idents[conn]
	return ident.userID, ident.loginSessionID, ok
}

// Remove 摘除连接。连接已被顶替或不存在时不影响现任连接。
func (r *Registry) Remove(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.idents[conn]
	if !ok {
		return
	}
	delete(r.idents, conn)
	if r.byUser[ident.userID] == conn {
		delete(r.byUser, ident.userID)
	}
}

// Size 当前在线连接数
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
