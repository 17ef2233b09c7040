package configstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"excel2dataverse/internal/metrics"
	"go.uber.org/zap"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidName 判断列表名是否只包含字母、数字、下划线与短横线。
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// IOError 描述列表读写失败，调用方可用 errors.Is(err, fs.ErrNotExist) 判断文件缺失。
type IOError struct {
	Op   string
	Name string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("config list %s %q (%s): %v", e.Op, e.Name, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Store 把每个列表保存为目录下的一个 JSON 文件。
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore 创建 Store，目录不存在时创建。创建失败只记录日志，读取时按空目录处理。
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("create config dir failed", zap.String("dir", dir), zap.Error(err))
	}
	return &Store{dir: dir, logger: logger}
}

// Dir 返回配置目录。
func (s *Store) Dir() string { return s.dir }

// ListNames 扫描目录中的 *.json，返回排序后的列表名；目录不存在时返回空。
func (s *Store) ListNames() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("scan config dir failed", zap.String("dir", s.dir), zap.Error(err))
		}
		return []string{}
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		if !validName.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load 读取列表，失败时返回 *IOError。
func (s *Store) Load(name string) (List, error) {
	path, err := s.path("read", name)
	if err != nil {
		return List{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return List{}, &IOError{Op: "read", Name: name, Path: path, Err: err}
	}
	list, err := ParseItems(name, data)
	if err != nil {
		return List{}, &IOError{Op: "decode", Name: name, Path: path, Err: err}
	}
	return list, nil
}

// ReadList 读取列表；文件缺失或损坏时返回空列表。
func (s *Store) ReadList(name string) List {
	list, err := s.Load(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("config list unreadable, using empty list", zap.String("list", name), zap.Error(err))
		}
		return Empty(name)
	}
	return list
}

// Save 覆盖写入列表，先写临时文件再 rename。
func (s *Store) Save(name string, list List) error {
	path, err := s.path("write", name)
	if err != nil {
		return err
	}
	data, err := list.Encode()
	if err != nil {
		return &IOError{Op: "encode", Name: name, Path: path, Err: err}
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &IOError{Op: "write", Name: name, Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return &IOError{Op: "write", Name: name, Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &IOError{Op: "write", Name: name, Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &IOError{Op: "write", Name: name, Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &IOError{Op: "write", Name: name, Path: path, Err: err}
	}
	return nil
}

// WriteList 写入列表并返回是否成功，错误只记录日志。
func (s *Store) WriteList(name string, list List) bool {
	if err := s.Save(name, list); err != nil {
		s.logger.Error("save config list failed", zap.String("list", name), zap.Error(err))
		metrics.ConfigWrites.WithLabelValues("error").Inc()
		return false
	}
	metrics.ConfigWrites.WithLabelValues("ok").Inc()
	return true
}

func (s *Store) path(op, name string) (string, error) {
	if !validName.MatchString(name) {
		return "", &IOError{Op: op, Name: name, Err: errors.New("非法的列表名")}
	}
	return filepath.Join(s.dir, name+".json"), nil
}
