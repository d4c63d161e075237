package governance

import (
	"context"
)

// ServiceRegistry 服务注册接口（调用外部注册中心）
type ServiceRegistry interface {
	// Register 注册服务，成功后自动启动心跳保活
	Register(ctx context.Context, info *ServiceInfo) error

	// Deregister 停止心跳并从注册中心移除服务信息
	Deregister(ctx context.Context) error

	// IsRegistered 检查服务是否已注册
	IsRegistered() bool
}

// ServiceInfo 服务注册信息（etcd 中保存的 JSON 值）
type ServiceInfo struct {
	ServiceName string            `json:"service_name"` // 如 "cloud-payment-service"
	InstanceID  string            `json:"instance_id"`  // 如 "cloud-payment-service-192.168.1.100-8001"
	Address     string            `json:"address"`
	Port        int               `json:"port"`
	Protocol    string            `json:"protocol"` // http/https
	Weight      int               `json:"weight"`
	Metadata    map[string]string `json:"metadata"`
	TTL         int64             `json:"ttl"` // 租约秒数
}

// GetFullAddress 获取完整地址（address:port）
func (s *ServiceInfo) GetFullAddress() string {
	return joinHostPort(s.Address, s.Port)
}

// Validate 验证服务信息并填充默认值
func (s *ServiceInfo) Validate() error {
	if s.ServiceName == "" {
		return ErrInvalidServiceName
	}
	if s.Address == "" {
		return ErrInvalidAddress
	}
	if s.Port <= 0 || s.Port > 65535 {
		return ErrInvalidPort
	}
	if s.TTL <= 0 {
		s.TTL = 10
	}
	if s.Protocol == "" {
		s.Protocol = "http"
	}
	if s.Weight <= 0 {
		s.Weight = 100
	}
	if s.InstanceID == "" {
		s.InstanceID = instanceID(s.ServiceName, s.Address, s.Port)
	}
	return nil
}
