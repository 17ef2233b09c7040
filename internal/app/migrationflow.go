package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"excel2dataverse/internal/domain"
	"excel2dataverse/internal/loader"
	"excel2dataverse/internal/metrics"
	"excel2dataverse/internal/sheet"
	"excel2dataverse/internal/transform"
	"go.uber.org/zap"
)

// PhaseKind 是迁移运行所处的阶段。
type PhaseKind int

const (
	PhaseNotStarted PhaseKind = iota
	PhaseRunning
	PhaseCompleted
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

// Phase 是运行状态，Running 时 Entity 为正在处理的实体。
type Phase struct {
	Kind   PhaseKind
	Entity string
}

// Report 汇总一次运行的全部实体结果。
type Report struct {
	Started  time.Time
	Finished time.Time
	Outcomes []domain.Outcome
}

// Totals 返回所有实体的尝试、成功、失败行数之和。
func (r Report) Totals() (attempted, succeeded, failed int) {
	for _, o := range r.Outcomes {
		attempted += o.Attempted
		succeeded += o.Succeeded
		failed += o.Failed
	}
	return
}

// ReadFunc 读取一个源文件。
type ReadFunc func(path string) (sheet.Table, error)

// MigrationFlow 依次迁移每个实体：读取 -> 清洗 -> 写入。
type MigrationFlow struct {
	Mappings []domain.EntityMapping
	Read     ReadFunc
	Cleaners *transform.Registry
	Loader   *loader.RecordLoader
	ErrorLog *loader.ErrorLog
	Logger   *zap.Logger

	mu    sync.Mutex
	phase Phase
}

// State 返回当前阶段。
func (f *MigrationFlow) State() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

func (f *MigrationFlow) setPhase(p Phase) {
	f.mu.Lock()
	f.phase = p
	f.mu.Unlock()
}

// Run 执行一次完整迁移。单个实体的失败不会中断整个运行。
func (f *MigrationFlow) Run(ctx context.Context) (Report, error) {
	if f.Loader == nil {
		return Report{}, errors.New("migration flow 依赖未注入完整")
	}
	if f.Logger == nil {
		f.Logger = zap.NewNop()
	}
	if f.Read == nil {
		f.Read = sheet.ReadFile
	}
	if f.Cleaners == nil {
		f.Cleaners = transform.DefaultRegistry()
	}
	if f.ErrorLog != nil {
		if err := f.ErrorLog.Reset(); err != nil {
			return Report{}, err
		}
	}

	report := Report{Started: time.Now()}
	for _, m := range f.Mappings {
		if ctx.Err() != nil {
			break
		}
		f.setPhase(Phase{Kind: PhaseRunning, Entity: m.Key})
		outcome := f.migrateEntity(ctx, m)
		report.Outcomes = append(report.Outcomes, outcome)
	}
	report.Finished = time.Now()
	f.setPhase(Phase{Kind: PhaseCompleted})
	metrics.MigrationDuration.Observe(report.Finished.Sub(report.Started).Seconds())

	if f.ErrorLog != nil {
		if err := f.ErrorLog.Close(); err != nil {
			f.Logger.Warn("关闭错误日志失败", zap.Error(err))
		}
	}
	attempted, succeeded, failed := report.Totals()
	f.Logger.Info("迁移完成", zap.Int("attempted", attempted), zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	return report, ctx.Err()
}

func (f *MigrationFlow) migrateEntity(ctx context.Context, m domain.EntityMapping) domain.Outcome {
	outcome := domain.Outcome{Entity: m.Key, Table: m.Table, Source: m.SourcePath}
	log := f.Logger.With(zap.String("entity", m.Key))
	log.Info("开始迁移实体", zap.String("source", m.SourcePath), zap.String("table", m.Table))

	if _, err := os.Stat(m.SourcePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f.skip(log, outcome, "源文件不存在: "+m.SourcePath)
		}
		outcome.Err = fmt.Errorf("检查源文件失败: %w", err)
		log.Error("实体迁移失败", zap.Error(outcome.Err))
		return outcome
	}
	if m.Table == "" {
		return f.skip(log, outcome, "未配置目标表")
	}

	table, err := f.Read(m.SourcePath)
	if err != nil {
		outcome.Err = fmt.Errorf("读取源文件失败 entity=%s: %w", m.Key, err)
		log.Error("实体迁移失败", zap.Error(outcome.Err))
		return outcome
	}
	log.Info("读取源文件", zap.Int("rows", len(table.Rows)))

	cleaner := f.Cleaners.Lookup(m.Key)
	rows := make([]domain.Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		rows = append(rows, cleaner.Clean(row))
	}

	res := f.Loader.Load(ctx, m.Key, m.Table, rows)
	outcome.Attempted, outcome.Succeeded, outcome.Failed = res.Attempted, res.Succeeded, res.Failed
	log.Info("实体迁移完成", zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed))
	return outcome
}

func (f *MigrationFlow) skip(log *zap.Logger, outcome domain.Outcome, reason string) domain.Outcome {
	outcome.Skipped = true
	outcome.SkipReason = reason
	metrics.EntitiesSkipped.WithLabelValues(outcome.Entity).Inc()
	log.Warn("跳过实体", zap.String("reason", reason))
	return outcome
}
