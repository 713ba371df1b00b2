package rpc

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// CodecType 序列化格式
type CodecType byte

const (
	// CodecTypeJSON JSON 序列化，跨语言、可读
	CodecTypeJSON CodecType = 0
	// CodecTypeGob gob 二进制序列化，仅限 Go 端互通
	CodecTypeGob CodecType = 1
)

// Codec 帧体序列化接口
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType
}

// GetCodec 按类型返回 codec 实例
func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeGob {
		return &GobCodec{}
	}
	return &JSONCodec{}
}

// JSONCodec 基于 encoding/json
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}

// GobCodec 基于 encoding/gob
type GobCodec struct{}

func (c *GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *GobCodec) Decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (c *GobCodec) Type() CodecType {
	return CodecTypeGob
}
