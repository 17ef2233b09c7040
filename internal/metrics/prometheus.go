package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MigrationRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "migration_rows_total",
		Help: "迁移的行数，按实体与结果区分",
	}, []string{"entity", "outcome"})

	EntitiesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "migration_entities_skipped_total",
		Help: "被跳过的实体数",
	}, []string{"entity"})

	MigrationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "migration_duration_seconds",
		Help:    "单次迁移耗时",
		Buckets: prometheus.DefBuckets,
	})

	ConfigWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "config_list_writes_total",
		Help: "配置列表写入次数",
	}, []string{"result"})

	AdminLogins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_logins_total",
		Help: "后台登录尝试次数",
	}, []string{"result"})
)

var (
	registry = prometheus.NewRegistry()
	once     sync.Once
)

// MustRegister 注册指标，可在 main 中调用。
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(MigrationRows, EntitiesSkipped, MigrationDuration, ConfigWrites, AdminLogins)
}

// Registry 返回进程内的默认注册表，首次调用时注册全部指标。
func Registry() *prometheus.Registry {
	once.Do(func() { MustRegister(registry) })
	return registry
}

// WriteTextfile 将当前指标写成 node_exporter textfile 格式。
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry())
}
