// Package storage 实现按文件 ID 落盘的内容存储。
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrFileNotFound 文件不存在
	ErrFileNotFound = errors.New("storage: file not found")

	// ErrEmptyContent 内容为空
	ErrEmptyContent = errors.New("storage: empty content")
)

// Config 存储配置
type Config struct {
	// Dir 文件落盘目录
	Dir string `mapstructure:"dir" json:"dir"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{Dir: "data/files"}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("storage: dir is required")
	}
	return nil
}

// DiskStore 磁盘文件存储。
// 内容写入 {dir}/{file_id}，原始文件名写入 {dir}/{file_id}.name。
type DiskStore struct {
	dir string
}

// NewDiskStore 创建存储并确保目录存在
func NewDiskStore(cfg *Config) (*DiskStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir %s: %w", cfg.Dir, err)
	}
	return &DiskStore{dir: cfg.Dir}, nil
}

// Save 保存内容并返回新分配的文件 ID
func (s *DiskStore) Save(fileName string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyContent
	}

	fileID := uuid.NewString()
	if err := os.WriteFile(s.contentPath(fileID), content, 0o644); err != nil {
		return "", fmt.Errorf("storage: write content: %w", err)
	}
	if err := os.WriteFile(s.namePath(fileID), []byte(fileName), 0o644); err != nil {
		_ = os.Remove(s.contentPath(fileID))
		return "", fmt.Errorf("storage: write name: %w", err)
	}
	return fileID, nil
}

// Load 按文件 ID 读取内容与原始文件名
func (s *DiskStore) Load(fileID string) (fileName string, content []byte, err error) {
	if !validFileID(fileID) {
		return "", nil, ErrFileNotFound
	}

	content, err = os.ReadFile(s.contentPath(fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, ErrFileNotFound
		}
		return "", nil, fmt.Errorf("storage: read content: %w", err)
	}

	nameBytes, err := os.ReadFile(s.namePath(fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", content, nil
		}
		return "", nil, fmt.Errorf("storage: read name: %w", err)
	}
	return string(nameBytes), content, nil
}

// validFileID 拒绝包含路径成分的 ID，防止目录穿越
func validFileID(fileID string) bool {
	return fileID != "" &&
		!strings.ContainsAny(fileID, `/\`) &&
		fileID != "." && fileID != ".."
}

func (s *DiskStore) contentPath(fileID string) string {
	return filepath.Join(s.dir, fileID)
}

func (s *DiskStore) namePath(fileID string) string {
	return filepath.Join(s.dir, fileID+".name")
}
