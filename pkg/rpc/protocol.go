// Package rpc 实现服务间通信的二进制帧协议。
//
// 固定 14 字节帧头 + 变长帧体，帧头先行解决 TCP 粘包：
//
//	0      3  4  5  6         10        14
//	┌──────┬──┬──┬──┬─────────┬─────────┬───────────────┐
//	│magic │v │ct│mt│   seq   │ bodyLen │    body ...   │
//	└──────┴──┴──┴──┴─────────┴─────────┴───────────────┘
//
// seq 用于在同一条连接上复用多路请求：响应携带与请求相同的 seq。
package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// 魔数 "lrp"，快速拒绝非本协议连接
const (
	magicByte1 byte = 0x6c // 'l'
	magicByte2 byte = 0x72 // 'r'
	magicByte3 byte = 0x70 // 'p'

	// Version 协议版本
	Version byte = 0x01

	// HeaderSize 帧头长度: 3 (magic) + 1 (version) + 1 (codec) + 1 (msgType) + 4 (seq) + 4 (bodyLen)
	HeaderSize int = 14

	// MaxBodySize 单帧最大帧体长度，超出视为协议错误
	MaxBodySize uint32 = 64 << 20
)

// MsgType 帧类型
type MsgType byte

const (
	// MsgTypeRequest 客户端请求帧
	MsgTypeRequest MsgType = 0
	// MsgTypeResponse 服务端响应帧
	MsgTypeResponse MsgType = 1
	// MsgTypeHeartbeat 连接保活帧（无帧体）
	MsgTypeHeartbeat MsgType = 2
)

// Header 固定长度帧头
type Header struct {
	CodecType byte    // 序列化格式
	MsgType   MsgType // 帧类型
	Seq       uint32  // 请求序号，响应原样带回
	BodyLen   uint32  // 帧体长度
}

// EncodeFrame 将完整的一帧（帧头 + 帧体）写入 w。
// 多个 goroutine 共享同一 writer 时调用方必须持有写锁，
// 否则不同请求的帧会交错损坏字节流。
func EncodeFrame(w io.Writer, h *Header, body []byte) error {
	buf := make([]byte, HeaderSize)

	buf[0], buf[1], buf[2] = magicByte1, magicByte2, magicByte3
	buf[3] = Version
	buf[4] = h.CodecType
	buf[5] = byte(h.MsgType)
	binary.BigEndian.PutUint32(buf[6:10], h.Seq)
	binary.BigEndian.PutUint32(buf[10:14], h.BodyLen)

	if _, err := w.Write(buf); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// DecodeFrame 从 r 读取完整的一帧，校验魔数与版本。
// 使用 io.ReadFull 保证读满，避免半包。
func DecodeFrame(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != magicByte1 || headerBuf[1] != magicByte2 || headerBuf[2] != magicByte3 {
		return nil, nil, fmt.Errorf("%w: magic %x", ErrBadFrame, headerBuf[0:3])
	}
	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("%w: version %d", ErrBadFrame, headerBuf[3])
	}

	msgType := MsgType(headerBuf[5])
	if msgType != MsgTypeRequest && msgType != MsgTypeResponse && msgType != MsgTypeHeartbeat {
		return nil, nil, fmt.Errorf("%w: message type %d", ErrBadFrame, msgType)
	}

	bodyLen := binary.BigEndian.Uint32(headerBuf[10:14])
	if bodyLen > MaxBodySize {
		return nil, nil, fmt.Errorf("%w: body length %d", ErrBadFrame, bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{
		CodecType: headerBuf[4],
		MsgType:   msgType,
		Seq:       binary.BigEndian.Uint32(headerBuf[6:10]),
		BodyLen:   bodyLen,
	}, body, nil
}
