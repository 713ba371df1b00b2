package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumochat/lumo/api"
	"github.com/lumochat/lumo/app/message/internal/dao"
	"github.com/lumochat/lumo/pkg/channel"
	"github.com/lumochat/lumo/pkg/mq/kafka"
)

type fakeStore struct {
	rows      map[string]*dao.Message
	insertErr error
	existsErr error
	inserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*dao.Message)}
}

func (f *fakeStore) Insert(_ context.Context, msg *dao.Message) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts++
	f.rows[msg.MessageID] = msg
	return nil
}

func (f *fakeStore) ExistsByID(_ context.Context, messageID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.rows[messageID]
	return ok, nil
}

type fakeFileChannel struct {
	fileID  string
	callErr error
	puts    int
}

func (f *fakeFileChannel) Call(_ context.Context, serviceMethod string, args, reply any) error {
	if f.callErr != nil {
		return f.callErr
	}
	if serviceMethod == api.MethodPutFile {
		f.puts++
		resp := reply.(*api.PutFileResp)
		resp.FileID = f.fileID
		resp.Ok()
	}
	return nil
}

func (f *fakeFileChannel) Addr() string { return "fake:0" }
func (f *fakeFileChannel) Close() error { return nil }

type fakeChannels struct {
	file *fakeFileChannel
}

func (f *fakeChannels) Choose(serviceName string) channel.Client {
	if serviceName == api.ServiceFile && f.file != nil {
		return f.file
	}
	return nil
}

func queueMessage(t *testing.T, info *api.MessageInfo) *kafka.Message {
	t.Helper()
	value, err := json.Marshal(info)
	require.NoError(t, err)
	return &kafka.Message{Topic: api.TopicNewMessage, Value: value}
}

func textMessage(id string) *api.MessageInfo {
	return &api.MessageInfo{
		MessageID: id,
		SessionID: "sess-1",
		Timestamp: 1700000000,
		Sender:    &api.UserInfo{UserID: "u1", Nickname: "alice"},
		Body:      api.MessageBody{Type: api.MessageTypeText, Content: "hello"},
	}
}

func TestHandleTextMessage(t *testing.T) {
	store := newFakeStore()
	p := NewPersister(store, &fakeChannels{})

	err := p.Handle(context.Background(), queueMessage(t, textMessage("m1")))
	require.NoError(t, err)

	row := store.rows["m1"]
	require.NotNil(t, row)
	assert.Equal(t, "sess-1", row.SessionID)
	assert.Equal(t, "u1", row.SenderID)
	assert.Equal(t, "text", row.MsgType)
	assert.Equal(t, "hello", row.Content)
	assert.Empty(t, row.FileID)
}

func TestHandleRedeliveredMessageOnce(t *testing.T) {
	store := newFakeStore()
	p := NewPersister(store, &fakeChannels{})
	msg := queueMessage(t, textMessage("m1"))

	require.NoError(t, p.Handle(context.Background(), msg))
	// 重投：去重后直接确认，不重复落库
	require.NoError(t, p.Handle(context.Background(), msg))
	assert.Equal(t, 1, store.inserts)
}

func TestHandleBinaryMessageUploadsPayload(t *testing.T) {
	store := newFakeStore()
	file := &fakeFileChannel{fileID: "f42"}
	p := NewPersister(store, &fakeChannels{file: file})

	info := &api.MessageInfo{
		MessageID: "m2",
		SessionID: "sess-1",
		Timestamp: 1700000001,
		Sender:    &api.UserInfo{UserID: "u2"},
		Body: api.MessageBody{
			Type:         api.MessageTypeImage,
			FileName:     "cat.png",
			FileContents: []byte{0x89, 0x50},
		},
	}
	require.NoError(t, p.Handle(context.Background(), queueMessage(t, info)))

	assert.Equal(t, 1, file.puts)
	row := store.rows["m2"]
	require.NotNil(t, row)
	assert.Equal(t, "f42", row.FileID)
	assert.Equal(t, "cat.png", row.FileName)
	assert.Empty(t, row.Content)
}

func TestHandleBinaryMessageFileServiceDown(t *testing.T) {
	store := newFakeStore()
	p := NewPersister(store, &fakeChannels{file: &fakeFileChannel{callErr: errors.New("refused")}})

	info := &api.MessageInfo{
		MessageID: "m3",
		SessionID: "sess-1",
		Sender:    &api.UserInfo{UserID: "u1"},
		Body:      api.MessageBody{Type: api.MessageTypeFile, FileName: "a.txt", FileContents: []byte("x")},
	}
	// 上传失败要返回错误，offset 不提交、消息重投
	err := p.Handle(context.Background(), queueMessage(t, info))
	require.Error(t, err)
	assert.Empty(t, store.rows)
}

func TestHandleInsertFailureRetriable(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("db down")
	p := NewPersister(store, &fakeChannels{})

	err := p.Handle(context.Background(), queueMessage(t, textMessage("m4")))
	require.Error(t, err)
}

func TestHandleMalformedMessageAcked(t *testing.T) {
	p := NewPersister(newFakeStore(), &fakeChannels{})

	// 解析不了的消息重投无意义，确认后丢弃
	err := p.Handle(context.Background(), &kafka.Message{Value: []byte("not json")})
	require.NoError(t, err)

	// 缺关键字段同样丢弃
	err = p.Handle(context.Background(), queueMessage(t, &api.MessageInfo{SessionID: "s"}))
	require.NoError(t, err)
}
