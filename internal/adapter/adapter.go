package adapter

import (
	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// CollectorRegistry 按 sync.enabled_sources 顺序持有采集器实例
type CollectorRegistry struct {
	cfg        *config.Config
	logger     *logrus.Logger
	order      []model.SourceType
	collectors map[model.SourceType]interfaces.SourceCollector
}

func NewCollectorRegistry(cfg *config.Config, logger *logrus.Logger) *CollectorRegistry {
	r := &CollectorRegistry{
		cfg:        cfg,
		logger:     logger,
		collectors: make(map[model.SourceType]interfaces.SourceCollector),
	}
	r.initFromFactories()
	return r
}

// initFromFactories 遍历启用的来源，匹配工厂函数创建实例
func (r *CollectorRegistry) initFromFactories() {
	r.logger.WithField("factory_sources", ListFactories()).Debug("已注册的采集器工厂")

	for _, name := range r.cfg.Sync.EnabledSources {
		source := model.SourceType(name)
		sourceCfg, ok := r.cfg.Sources[name]
		if !ok {
			r.logger.WithField("source", name).Error("未找到来源配置，跳过")
			continue
		}

		factory, ok := GetFactory(source)
		if !ok {
			r.logger.WithField("source", name).Error("未找到对应的工厂函数（init未注册？）")
			continue
		}

		collector := factory(&sourceCfg, r.logger)
		if collector == nil {
			r.logger.WithField("source", name).Error("工厂函数返回nil采集器")
			continue
		}
		if collector.GetSource() != source {
			r.logger.WithFields(logrus.Fields{
				"config_source":    name,
				"collector_source": collector.GetSource(),
			}).Error("采集器来源与配置不匹配")
			continue
		}
		if _, dup := r.collectors[source]; dup {
			continue
		}

		r.collectors[source] = collector
		r.order = append(r.order, source)
		r.logger.WithField("source", name).Info("采集器初始化成功")
	}
	r.logger.WithField("count", len(r.order)).Info("采集器初始化完成")
}

// Add 手动注册采集器实例（测试或自定义来源）
func (r *CollectorRegistry) Add(c interfaces.SourceCollector) {
	if _, dup := r.collectors[c.GetSource()]; !dup {
		r.order = append(r.order, c.GetSource())
	}
	r.collectors[c.GetSource()] = c
}

// List 按注册顺序返回
func (r *CollectorRegistry) List() []interfaces.SourceCollector {
	out := make([]interfaces.SourceCollector, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, r.collectors[s])
	}
	return out
}

// SourceConfig 来源配置；未配置时返回默认值
func (r *CollectorRegistry) SourceConfig(source model.SourceType) config.SourceConfig {
	if sc, ok := r.cfg.Sources[string(source)]; ok {
		return sc
	}
	return config.DefaultSources()[string(source)]
}

// Count 已初始化的采集器数量
func (r *CollectorRegistry) Count() int {
	return len(r.order)
}
