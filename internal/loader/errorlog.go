package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"excel2dataverse/internal/domain"
	"excel2dataverse/internal/logging"
	"excel2dataverse/pkg/util"
	"go.uber.org/zap"
)

// ErrorLog 把失败的行以 JSON 行追加到文件，首次写入时才创建文件。
type ErrorLog struct {
	path string

	mu     sync.Mutex
	logger *zap.Logger
	file   *os.File
}

// Entry 是错误日志中的一行。
type Entry struct {
	Entity string
	Row    int
	Record domain.Row
	Err    error
}

// NewErrorLog 创建指向 path 的错误日志。
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path}
}

// Path 返回日志文件路径。
func (l *ErrorLog) Path() string { return l.path }

// Reset 关闭已打开的文件并删除上一次运行留下的日志。
func (l *ErrorLog) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("删除错误日志失败 path=%s: %w", l.path, err)
	}
	return nil
}

// Record 追加一条失败记录。
func (l *ErrorLog) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logger == nil {
		logger, f, err := logging.NewFileJSON(l.path)
		if err != nil {
			return err
		}
		l.logger, l.file = logger, f
	}
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	l.logger.Error("record migration failed",
		zap.String("entity", e.Entity),
		zap.Int("row", e.Row),
		zap.String("row_hash", util.HashMap(e.Record)),
		zap.Any("record", map[string]any(e.Record)),
		zap.String("error", msg),
	)
	return nil
}

// Close 刷新并关闭文件。
func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *ErrorLog) closeLocked() error {
	if l.logger == nil {
		return nil
	}
	_ = l.logger.Sync()
	err := l.file.Close()
	l.logger, l.file = nil, nil
	return err
}
