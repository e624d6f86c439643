package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/nurpe/contracts-service/internal/rules"
)

// PrimaryExtensions допустимые расширения для первого вложения
var PrimaryExtensions = []string{"pdf", "doc", "docx", "jpg", "jpeg", "png"}

const DefaultMaxFileSize int64 = 20 << 20

var ErrInvalidKey = errors.New("invalid storage key")

type Upload struct {
	Name   string
	Size   int64
	Reader io.Reader
}

type Stored struct {
	Key         string
	Name        string
	ContentType string
	Size        int64
}

type File struct {
	Reader      io.ReadCloser
	Name        string
	ContentType string
	Size        int64
}

type LocalStorage struct {
	root    string
	maxSize int64
	now     func() time.Time
}

func NewLocalStorage(root string, maxSize int64) (*LocalStorage, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root, maxSize: maxSize, now: time.Now}, nil
}

// Check проверяет загрузку для слота без записи на диск
func (s *LocalStorage) Check(slot int, name string, size int64) error {
	if size > s.maxSize {
		return fmt.Errorf("%w: %s exceeds %d MB", rules.ErrFileTooLarge, name, s.maxSize>>20)
	}
	if slot == 1 && !allowedPrimary(name) {
		return fmt.Errorf("%w: %s", rules.ErrUnsupportedFileType, name)
	}
	return nil
}

func (s *LocalStorage) Save(ctx context.Context, slot int, up Upload) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	if err := s.Check(slot, up.Name, up.Size); err != nil {
		return Stored{}, err
	}

	now := s.now()
	name := sanitizeName(up.Name)
	key := path.Join("contracts", now.Format("2006"), now.Format("01"), uuid.NewString()+"_"+name)
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Stored{}, fmt.Errorf("create storage dir: %w", err)
	}

	out, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(out, io.LimitReader(up.Reader, s.maxSize+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxSize {
		err = fmt.Errorf("%w: %s exceeds %d MB", rules.ErrFileTooLarge, up.Name, s.maxSize>>20)
	}
	if err != nil {
		_ = os.Remove(full)
		return Stored{}, err
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(full); err == nil {
		contentType = mt.String()
	}

	return Stored{Key: key, Name: name, ContentType: contentType, Size: written}, nil
}

func (s *LocalStorage) Open(key string) (*File, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(full); err == nil {
		contentType = mt.String()
	}
	return &File{Reader: f, Name: DisplayName(key), ContentType: contentType, Size: info.Size()}, nil
}

// Delete удаляет сохранённый файл, отсутствие файла не ошибка
func (s *LocalStorage) Delete(key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean[1:] != key {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// DisplayName возвращает исходное имя файла без префикса хранилища
func DisplayName(key string) string {
	base := path.Base(key)
	if len(base) > 37 && base[36] == '_' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}

// Extension возвращает расширение в верхнем регистре или FILE, если его нет
func Extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 && i < len(name)-1 {
		return strings.ToUpper(name[i+1:])
	}
	return "FILE"
}

func allowedPrimary(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, allowed := range PrimaryExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func sanitizeName(input string) string {
	input = filepath.Base(strings.ReplaceAll(input, "\\", "/"))
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r == '/', r == '\\', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			result = append(result, '-')
		case r < 0x20:
			continue
		default:
			result = append(result, r)
		}
	}
	name := strings.Trim(string(result), " .")
	if name == "" {
		return "file"
	}
	return name
}
