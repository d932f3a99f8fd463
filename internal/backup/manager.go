package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"craftbridge/internal/domain"

	"github.com/charmbracelet/log"
)

var ErrNotFound = errors.New("backup not found")

// Server is the slice of the bridge a backup needs: world saves are paused
// over RCON while the archive is written.
type Server interface {
	State() domain.LifecycleState
	RunCommand(ctx context.Context, text string) (string, error)
}

type Manager struct {
	ServerDir   string
	BackupsPath string
	Server      Server
	logger      *log.Logger
}

func NewManager(serverDir, backupsPath string, srv Server, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default().WithPrefix("backup")
	}
	return &Manager{ServerDir: serverDir, BackupsPath: backupsPath, Server: srv, logger: logger}
}

type BackupInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ListBackups returns archives newest first.
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	files, err := os.ReadDir(m.BackupsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("could not read backups directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".zip") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{Name: file.Name(), Size: info.Size(), CreatedAt: info.ModTime()})
	}
	slices.SortFunc(backups, func(a, b BackupInfo) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return backups, nil
}

func (m *Manager) DeleteBackup(name string) error {
	path, err := m.resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// CreateBackup archives the server directory. A running server is told to
// flush and stop writing chunks for the duration; a stopped one is copied as is.
func (m *Manager) CreateBackup(ctx context.Context, name string) (BackupInfo, error) {
	if _, err := os.Stat(m.ServerDir); err != nil {
		return BackupInfo{}, fmt.Errorf("server directory %s does not exist", m.ServerDir)
	}
	if name == "" {
		name = filepath.Base(m.ServerDir)
	}
	fileName := fmt.Sprintf("%s-%s.zip", sanitizeFileName(name), time.Now().Format("20060102-150405"))
	dest := filepath.Join(m.BackupsPath, fileName)

	if err := os.MkdirAll(m.BackupsPath, 0o755); err != nil {
		return BackupInfo{}, fmt.Errorf("could not create backups directory: %w", err)
	}

	if m.Server != nil && m.Server.State() == domain.Running {
		if _, err := m.Server.RunCommand(ctx, "save-off"); err != nil {
			return BackupInfo{}, fmt.Errorf("pause world saves: %w", err)
		}
		defer func() {
			if _, err := m.Server.RunCommand(context.WithoutCancel(ctx), "save-on"); err != nil {
				m.logger.Warn("could not resume world saves", "err", err)
			}
		}()
		if _, err := m.Server.RunCommand(ctx, "save-all flush"); err != nil {
			return BackupInfo{}, fmt.Errorf("flush world: %w", err)
		}
	}

	start := time.Now()
	size, err := m.writeArchive(ctx, dest)
	if err != nil {
		return BackupInfo{}, err
	}
	m.logger.Info("backup created", "name", fileName, "size", size, "duration", time.Since(start))
	return BackupInfo{Name: fileName, Size: size, CreatedAt: start}, nil
}

func (m *Manager) writeArchive(ctx context.Context, dest string) (int64, error) {
	tmp := dest + ".temp"
	backupFile, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("could not create backup file: %w", err)
	}
	zipWriter := zip.NewWriter(backupFile)

	skip, _ := filepath.Abs(m.BackupsPath)
	err = filepath.Walk(m.ServerDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if abs, _ := filepath.Abs(path); info.IsDir() && abs == skip {
			return filepath.SkipDir
		}

		relPath, err := filepath.Rel(m.ServerDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)
		if info.IsDir() {
			header.Name += "/"
		} else {
			header.Method = zip.Deflate
		}

		writer, err := zipWriter.CreateHeader(header)
		if err != nil || info.IsDir() {
			return err
		}
		return copyFile(writer, path)
	})

	zipErr := zipWriter.Close()
	fileErr := backupFile.Close()
	if err != nil || zipErr != nil || fileErr != nil {
		os.Remove(tmp)
		if err != nil {
			return 0, fmt.Errorf("error creating backup: %w", err)
		}
		return 0, fmt.Errorf("error closing files: %v, %v", zipErr, fileErr)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return 0, fmt.Errorf("error renaming temp file: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// RestoreBackup replaces the server directory contents with the archive.
// The server must not be running.
func (m *Manager) RestoreBackup(name string) error {
	path, err := m.resolve(name)
	if err != nil {
		return err
	}
	if m.Server != nil {
		switch m.Server.State() {
		case domain.Stopped, domain.Crashed:
		default:
			return fmt.Errorf("stop the server before restoring: %w", domain.ErrAlreadyRunning)
		}
	}

	files, err := os.ReadDir(m.ServerDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	skip, _ := filepath.Abs(m.BackupsPath)
	for _, file := range files {
		target := filepath.Join(m.ServerDir, file.Name())
		if abs, _ := filepath.Abs(target); abs == skip {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return err
		}
	}

	if err := unzip(path, m.ServerDir); err != nil {
		return fmt.Errorf("failed to unzip backup: %w", err)
	}
	m.logger.Info("backup restored", "name", name, "dir", m.ServerDir)
	return nil
}

func (m *Manager) resolve(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid backup name %q", name)
	}
	path := filepath.Join(m.BackupsPath, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

func copyFile(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}

func unzip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	for _, f := range r.File {
		fpath := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("%s: illegal file path", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return err
		}
		if err := extract(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extract(f *zip.File, fpath string) error {
	outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer outFile.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(outFile, rc)
	return err
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

func sanitizeFileName(name string) string {
	sanitized := unsafeChars.ReplaceAllString(strings.ReplaceAll(name, " ", "-"), "")
	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	if sanitized == "" {
		sanitized = "backup"
	}
	return sanitized
}
