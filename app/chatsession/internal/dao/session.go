// Package dao 实现会话表与成员表的持久化访问。
package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lumochat/lumo/pkg/database/postgres"
)

// ErrSessionNotFound 会话不存在
var ErrSessionNotFound = errors.New("dao: chat session not found")

// Session 会话行
type Session struct {
	SessionID   string    `db:"session_id"`
	SessionName string    `db:"session_name"`
	Single      bool      `db:"single"`
	CreatedAt   time.Time `db:"created_at"`
}

// SessionDAO 会话表访问对象
type SessionDAO struct {
	db *postgres.Client
}

// NewSessionDAO 创建 DAO
func NewSessionDAO(db *postgres.Client) *SessionDAO {
	return &SessionDAO{db: db}
}

// CreateSession 在同一事务中写入会话与全部成员
func (d *SessionDAO) CreateSession(ctx context.Context, session *Session, memberIDs []string) error {
	return d.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO chat_sessions (session_id, session_name, single, created_at)
			 VALUES ($1, $2, $3, $4)`,
			session.SessionID, session.SessionName, session.Single, session.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		for _, memberID := range memberIDs {
			_, err := tx.Exec(ctx,
				`INSERT INTO session_members (session_id, user_id) VALUES ($1, $2)
				 ON CONFLICT DO NOTHING`,
				session.SessionID, memberID)
			if err != nil {
				return fmt.Errorf("insert member: %w", err)
			}
		}
		return nil
	})
}

// GetSession 按会话 ID 查询
func (d *SessionDAO) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := postgres.QueryOne[Session](ctx, d.db,
		`SELECT session_id, session_name, single, created_at
		 FROM chat_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// GetMembers 查询会话全部成员 ID，会话不存在时返回 ErrSessionNotFound
func (d *SessionDAO) GetMembers(ctx context.Context, sessionID string) ([]string, error) {
	if _, err := d.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := postgres.QueryAll[memberRow](ctx, d.db,
		`SELECT user_id FROM session_members WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	memberIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		memberIDs = append(memberIDs, row.UserID)
	}
	return memberIDs, nil
}

type memberRow struct {
	UserID string `db:"user_id"`
}

// GetSessionsForUser 查询用户参与的全部会话
func (d *SessionDAO) GetSessionsForUser(ctx context.Context, userID string) ([]*Session, error) {
	return postgres.QueryAll[Session](ctx, d.db,
		`SELECT s.session_id, s.session_name, s.single, s.created_at
		 FROM chat_sessions s
		 JOIN session_members m ON m.session_id = s.session_id
		 WHERE m.user_id = $1
		 ORDER BY s.created_at DESC`, userID)
}
