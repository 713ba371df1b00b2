// Package dao 实现用户表的持久化访问。
package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lumochat/lumo/pkg/database/postgres"
)

// ErrUserNotFound 用户不存在
var ErrUserNotFound = errors.New("dao: user not found")

// User 用户行
type User struct {
	UserID       string    `db:"user_id"`
	Nickname     string    `db:"nickname"`
	PasswordHash string    `db:"password_hash"`
	Description  string    `db:"description"`
	Phone        string    `db:"phone"`
	AvatarID     string    `db:"avatar_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// UserDAO 用户表访问对象
type UserDAO struct {
	db *postgres.Client
}

// NewUserDAO 创建 DAO
func NewUserDAO(db *postgres.Client) *UserDAO {
	return &UserDAO{db: db}
}

// Create 插入用户
func (d *UserDAO) Create(ctx context.Context, user *User) error {
	_, err := d.db.Exec(ctx,
		`INSERT INTO users (user_id, nickname, password_hash, description, phone, avatar_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.UserID, user.Nickname, user.PasswordHash,
		user.Description, user.Phone, user.AvatarID, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID 按用户 ID 查询
func (d *UserDAO) GetByID(ctx context.Context, userID string) (*User, error) {
	user, err := postgres.QueryOne[User](ctx, d.db,
		`SELECT user_id, nickname, password_hash, description, phone, avatar_id, created_at
		 FROM users WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByNickname 按昵称查询
func (d *UserDAO) GetByNickname(ctx context.Context, nickname string) (*User, error) {
	user, err := postgres.QueryOne[User](ctx, d.db,
		`SELECT user_id, nickname, password_hash, description, phone, avatar_id, created_at
		 FROM users WHERE nickname = $1`, nickname)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetMulti 批量查询，缺失的 ID 不在结果中
func (d *UserDAO) GetMulti(ctx context.Context, userIDs []string) ([]*User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return postgres.QueryAll[User](ctx, d.db,
		`SELECT user_id, nickname, password_hash, description, phone, avatar_id, created_at
		 FROM users WHERE user_id = ANY($1)`, userIDs)
}

// NicknameExists 昵称是否已被占用
func (d *UserDAO) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	return d.db.Exists(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE nickname = $1)`, nickname)
}
