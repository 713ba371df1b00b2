package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/file/internal/storage"
)

func newTestService(t *testing.T) *FileService {
	t.Helper()
	store, err := storage.NewDiskStore(&storage.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	return NewFileService(store)
}

func TestPutAndGetFile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var putResp api.PutFileResp
	err := svc.PutFile(ctx, &api.PutFileReq{FileName: "voice.ogg", Content: []byte("opus")}, &putResp)
	require.NoError(t, err)
	require.True(t, putResp.Success)
	require.NotEmpty(t, putResp.FileID)

	var getResp api.GetFileResp
	err = svc.GetFile(ctx, &api.GetFileReq{FileID: putResp.FileID}, &getResp)
	require.NoError(t, err)
	require.True(t, getResp.Success)
	assert.Equal(t, "voice.ogg", getResp.File.FileName)
	assert.Equal(t, []byte("opus"), getResp.File.Content)
}

func TestGetFileNotFound(t *testing.T) {
	svc := newTestService(t)

	var resp api.GetFileResp
	err := svc.GetFile(context.Background(), &api.GetFileReq{FileID: "missing"}, &resp)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Errmsg)
}

func TestGetMultiFileSkipsMissing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var putResp api.PutFileResp
	require.NoError(t, svc.PutFile(ctx, &api.PutFileReq{FileName: "a.jpg", Content: []byte("jpeg")}, &putResp))

	var multiResp api.GetMultiFileResp
	err := svc.GetMultiFile(ctx, &api.GetMultiFileReq{
		FileIDs: []string{putResp.FileID, "missing"},
	}, &multiResp)
	require.NoError(t, err)
	require.True(t, multiResp.Success)
	assert.Len(t, multiResp.Files, 1)
	assert.Contains(t, multiResp.Files, putResp.FileID)
}

func TestPutFileEmptyContent(t *testing.T) {
	svc := newTestService(t)

	var resp api.PutFileResp
	err := svc.PutFile(context.Background(), &api.PutFileReq{FileName: "x"}, &resp)
	require.NoError(t, err)
	assert.False(t, resp.Success)
}
