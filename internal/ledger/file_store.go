package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// safeStem 把人名转成安全的目录名
func safeStem(name string) string {
	cleaned := unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if cleaned == "" {
		return "contact"
	}
	return cleaned
}

// FileStore 按人分文件的 JSON 账本
// 每人一个目录，账页写在 <root>/<person>/contacts.json
type FileStore struct {
	root   string
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*PersonLedger
}

// NewFileStore 创建文件账本，root 目录不存在时自动创建
func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileStore{
		root:   root,
		logger: logger,
		cache:  make(map[string]*PersonLedger),
	}, nil
}

// Record 追加一段接触并立即落盘
// 文件格式只保留接触开始时刻
func (s *FileStore) Record(person, other string, risk float64, start, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.load(person)
	if err != nil {
		return err
	}
	entry.applyRisk(other, risk, start)
	return s.flush(person, entry)
}

// Load 返回某人的账页快照，供测试与查询使用
func (s *FileStore) Load(person string) (*PersonLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(person)
}

// Close 文件后端无需释放资源
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) fileFor(person string) (string, error) {
	folder := filepath.Join(s.root, safeStem(person))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create person directory: %w", err)
	}
	return filepath.Join(folder, "contacts.json"), nil
}

func (s *FileStore) load(person string) (*PersonLedger, error) {
	if entry, ok := s.cache[person]; ok {
		return entry, nil
	}

	path, err := s.fileFor(person)
	if err != nil {
		return nil, err
	}

	entry := &PersonLedger{Person: person, Contacts: make(map[string]*ContactRecord)}
	data, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, entry); jsonErr != nil {
			// 损坏的账页从空开始，不中断监控
			s.logger.Warn("corrupt_ledger_file_reset",
				zap.String("person", person),
				zap.String("path", path),
				zap.Error(jsonErr))
			entry = &PersonLedger{Person: person, Contacts: make(map[string]*ContactRecord)}
		}
		if entry.Contacts == nil {
			entry.Contacts = make(map[string]*ContactRecord)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	s.cache[person] = entry
	return entry, nil
}

func (s *FileStore) flush(person string, entry *PersonLedger) error {
	path, err := s.fileFor(person)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	return nil
}
