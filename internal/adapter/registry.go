// internal/adapter/registry.go
package adapter

import (
	"fmt"
	"sort"
	"sync"

	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// Factory 采集器工厂函数签名
type Factory func(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceCollector

// ========== 全局工厂函数注册表 ==========
var (
	factoryMu       sync.RWMutex
	factoryRegistry = make(map[model.SourceType]Factory)
)

// Register 供采集器 init 函数调用，注册工厂函数
func Register(source model.SourceType, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("来源%s的工厂函数不能为nil", source))
	}
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, exists := factoryRegistry[source]; exists {
		logrus.Warnf("来源%s的采集器已注册，将覆盖原有实现", source)
	}
	factoryRegistry[source] = factory
}

// GetFactory 获取指定来源的工厂函数
func GetFactory(source model.SourceType) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := factoryRegistry[source]
	return factory, ok
}

// ListFactories 列出所有已注册的来源（按名称排序）
func ListFactories() []model.SourceType {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	sources := make([]model.SourceType, 0, len(factoryRegistry))
	for s := range factoryRegistry {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}
