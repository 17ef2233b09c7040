package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"excel2dataverse/internal/dataverse"
	"excel2dataverse/internal/domain"
	"excel2dataverse/internal/metrics"
	"excel2dataverse/internal/util"
	pkgutil "excel2dataverse/pkg/util"
	"go.uber.org/zap"
)

// Creator 是加载器需要的最小写入能力。
type Creator interface {
	Create(ctx context.Context, table string, record domain.Row) (domain.Row, error)
}

// Options 控制并发与重试，零值为逐行顺序写入、不重试。
type Options struct {
	Workers  int
	Attempts int
	Backoff  time.Duration
}

// Result 是一次加载的计数。
type Result struct {
	Attempted int
	Succeeded int
	Failed    int
}

// RecordLoader 逐行调用 Create，失败的行写入错误日志后继续。
type RecordLoader struct {
	creator Creator
	errLog  *ErrorLog
	opts    Options
	logger  *zap.Logger
}

// NewRecordLoader 创建记录加载器。
func NewRecordLoader(creator Creator, errLog *ErrorLog, opts Options, logger *zap.Logger) *RecordLoader {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordLoader{creator: creator, errLog: errLog, opts: opts, logger: logger}
}

// Load 把 rows 写入 table。rows 是清洗后的行，nil 字段在发送前去掉。
// ctx 取消后不再发起新的写入，未尝试的行不计入 Attempted，也不写错误日志。
func (l *RecordLoader) Load(ctx context.Context, entity, table string, rows []domain.Row) Result {
	var res Result
	if len(rows) == 0 {
		return res
	}
	var mu sync.Mutex
	record := func(ok bool) {
		mu.Lock()
		defer mu.Unlock()
		res.Attempted++
		if ok {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}

	if l.opts.Workers == 1 {
		for i, row := range rows {
			if ctx.Err() != nil {
				l.stopped(entity, i, len(rows))
				break
			}
			record(l.loadOne(ctx, entity, table, i, len(rows), row))
		}
		return res
	}

	indexes := make([]int, len(rows))
	for i := range indexes {
		indexes[i] = i
	}
	for _, window := range pkgutil.Batch(indexes, l.opts.Workers) {
		if ctx.Err() != nil {
			l.stopped(entity, window[0], len(rows))
			break
		}
		var wg sync.WaitGroup
		for _, i := range window {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				record(l.loadOne(ctx, entity, table, i, len(rows), rows[i]))
			}(i)
		}
		wg.Wait()
	}
	return res
}

func (l *RecordLoader) stopped(entity string, next, total int) {
	l.logger.Warn("migration cancelled, remaining records not attempted",
		zap.String("entity", entity), zap.Int("next_row", next+1), zap.Int("total", total))
}

func (l *RecordLoader) loadOne(ctx context.Context, entity, table string, i, total int, row domain.Row) bool {
	payload := row.Payload()
	err := util.Retry(ctx, l.opts.Attempts, l.opts.Backoff, func() error {
		_, err := l.creator.Create(ctx, table, payload)
		if err != nil && !retryable(err) {
			return util.Permanent(err)
		}
		return err
	})
	if err == nil {
		metrics.MigrationRows.WithLabelValues(entity, "succeeded").Inc()
		l.logger.Info("record migrated", zap.String("entity", entity), zap.Int("row", i+1), zap.Int("total", total))
		return true
	}

	metrics.MigrationRows.WithLabelValues(entity, "failed").Inc()
	l.logger.Warn("record migration failed", zap.String("entity", entity), zap.Int("row", i+1), zap.Error(err))
	if l.errLog != nil {
		if logErr := l.errLog.Record(Entry{Entity: entity, Row: i + 1, Record: row, Err: err}); logErr != nil {
			l.logger.Error("write error log failed", zap.String("path", l.errLog.Path()), zap.Error(logErr))
		}
	}
	return false
}

// retryable 对限流、服务端错误与传输错误返回 true；认证失败与 4xx 不重试。
func retryable(err error) bool {
	var authErr *dataverse.AuthError
	if errors.As(err, &authErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rse *dataverse.RemoteServiceError
	if errors.As(err, &rse) {
		return rse.Retryable()
	}
	return true
}
