package etcd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lumochat/lumo/pkg/registry"
)

// 注册 key 布局: {namespace}/{service}/instance/{token}
// token 为实例唯一标识，value 为 JSON 序列化的 registry.ServiceInfo。

// BuildInstanceKey 构建服务实例的注册 key
func BuildInstanceKey(namespace, serviceName, token string) string {
	return fmt.Sprintf("%s/%s/instance/%s", strings.TrimSuffix(namespace, "/"), serviceName, token)
}

// ServiceNameFromKey 从注册 key 中解析服务名。
// key 不属于 namespace 或布局不符时返回空串。
func ServiceNameFromKey(namespace, key string) string {
	prefix := strings.TrimSuffix(namespace, "/") + "/"
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(key, prefix)
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[1] != "instance" || parts[2] == "" {
		return ""
	}
	return parts[0]
}

// decodeServiceRecord 解析一条注册记录。
// 服务归属以 key 为权威来源：value 中的 service_name 与 key 不一致时
// 以 key 解析结果覆盖；key 不符合布局的记录直接拒绝。
func decodeServiceRecord(namespace, key string, value []byte) (*registry.ServiceInfo, error) {
	name := ServiceNameFromKey(namespace, key)
	if name == "" {
		return nil, fmt.Errorf("key %q does not match layout under %q", key, namespace)
	}

	var info registry.ServiceInfo
	if err := json.Unmarshal(value, &info); err != nil {
		return nil, err
	}
	info.ServiceName = name
	return &info, nil
}
