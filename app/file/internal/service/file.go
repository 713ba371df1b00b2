// Package service 实现文件服务的 RPC 方法。
package service

import (
	"context"
	"errors"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/file/internal/storage"
	"github.com/lumochat/lumo/pkg/logger"
)

// FileService 文件上传下载服务
type FileService struct {
	store *storage.DiskStore
	log   logger.Logger
}

// NewFileService 创建服务
func NewFileService(store *storage.DiskStore) *FileService {
	return &FileService{
		store: store,
		log:   logger.Default().Named("file.service"),
	}
}

// PutFile 保存文件内容，返回文件 ID
func (s *FileService) PutFile(ctx context.Context, req *api.PutFileReq, resp *api.PutFileResp) error {
	fileID, err := s.store.Save(req.FileName, req.Content)
	if err != nil {
		s.log.Warn("put file failed",
			"request_id", req.RequestID, "file_name", req.FileName, "error", err)
		resp.Fail(err.Error())
		return nil
	}

	resp.FileID = fileID
	resp.Ok()
	return nil
}

// GetFile 读取单个文件
func (s *FileService) GetFile(ctx context.Context, req *api.GetFileReq, resp *api.GetFileResp) error {
	name, content, err := s.store.Load(req.FileID)
	if err != nil {
		if !errors.Is(err, storage.ErrFileNotFound) {
			s.log.Error("get file failed",
				"request_id", req.RequestID, "file_id", req.FileID, "error", err)
		}
		resp.Fail(err.Error())
		return nil
	}

	resp.File = &api.FileData{FileID: req.FileID, FileName: name, Content: content}
	resp.Ok()
	return nil
}

// GetMultiFile 批量读取文件。缺失的 ID 跳过，不整体失败。
func (s *FileService) GetMultiFile(ctx context.Context, req *api.GetMultiFileReq, resp *api.GetMultiFileResp) error {
	files := make(map[string]*api.FileData, len(req.FileIDs))
	for _, fileID := range req.FileIDs {
		name, content, err := s.store.Load(fileID)
		if err != nil {
			s.log.Warn("skip unreadable file",
				"request_id", req.RequestID, "file_id", fileID, "error", err)
			continue
		}
		files[fileID] = &api.FileData{FileID: fileID, FileName: name, Content: content}
	}

	resp.Files = files
	resp.Ok()
	return nil
}
