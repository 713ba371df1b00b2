package rpc

import (
	"context"
	"fmt"
	"reflect"
)

var (
	typeOfError   = reflect.TypeOf((*error)(nil)).Elem()
	typeOfContext = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// methodType 一个可被远程调用的方法
type methodType struct {
	method    reflect.Method
	argType   reflect.Type // 指针指向的结构体类型
	replyType reflect.Type
}

// service 一个已注册的服务及其导出方法
type service struct {
	name    string
	rcvr    reflect.Value
	methods map[string]*methodType
}

// newService 通过反射提取 rcvr 上所有符合签名的导出方法：
//
//	func (s *T) Method(ctx context.Context, args *Args, reply *Reply) error
func newService(rcvr any) (*service, error) {
	rcvrValue := reflect.ValueOf(rcvr)
	rcvrType := reflect.TypeOf(rcvr)
	name := reflect.Indirect(rcvrValue).Type().Name()
	if name == "" {
		return nil, fmt.Errorf("rpc: service has no name: %s", rcvrType)
	}

	s := &service{
		name:    name,
		rcvr:    rcvrValue,
		methods: make(map[string]*methodType),
	}

	for i := 0; i < rcvrType.NumMethod(); i++ {
		method := rcvrType.Method(i)
		mt := method.Type
		// receiver + ctx + args + reply
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if !mt.In(1).Implements(typeOfContext) {
			continue
		}
		argType, replyType := mt.In(2), mt.In(3)
		if argType.Kind() != reflect.Pointer || replyType.Kind() != reflect.Pointer {
			continue
		}
		if mt.Out(0) != typeOfError {
			continue
		}
		s.methods[method.Name] = &methodType{
			method:    method,
			argType:   argType.Elem(),
			replyType: replyType.Elem(),
		}
	}

	if len(s.methods) == 0 {
		return nil, fmt.Errorf("rpc: service %s has no exported RPC methods", name)
	}
	return s, nil
}

// call 调用方法，返回 reply 指针
func (s *service) call(ctx context.Context, mt *methodType, argv reflect.Value) (reflect.Value, error) {
	replyv := reflect.New(mt.replyType)
	returns := mt.method.Func.Call([]reflect.Value{
		s.rcvr, reflect.ValueOf(ctx), argv, replyv,
	})
	if errIface := returns[0].Interface(); errIface != nil {
		return replyv, errIface.(error)
	}
	return replyv, nil
}
