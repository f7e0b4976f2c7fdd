package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nitrado-deploy/models"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
)

// ErrBackupIncomplete is returned when none of the remote files could be downloaded
var ErrBackupIncomplete = errors.New("no files could be downloaded, backup is empty")

type downloader interface {
	DownloadFile(ctx context.Context, path string) ([]byte, error)
}

// Archiver snapshots the remote copies of files before they are overwritten
type Archiver struct {
	dir    string
	client downloader
	now    func() time.Time
}

// NewArchiver creates an archiver writing zip files into dir
func NewArchiver(dir string, client downloader) *Archiver {
	return &Archiver{
		dir:    dir,
		client: client,
		now:    time.Now,
	}
}

// ArchiveName returns the backup file name for the given moment
func ArchiveName(t time.Time) string {
	return "backup_" + t.Format("20060102150405") + ".zip"
}

// Backup downloads the current remote copy of every file and stores it in a new
// zip archive under its bare file name. Failed downloads are skipped; if nothing
// could be downloaded the archive is removed and ErrBackupIncomplete returned.
func (a *Archiver) Backup(ctx context.Context, files []models.ModifiedFile) (string, error) {
	log.Info("Backing up modified files...")

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	archivePath := filepath.Join(a.dir, ArchiveName(a.now()))
	written, err := a.writeArchive(ctx, archivePath, files)
	if err != nil {
		os.Remove(archivePath)
		return "", err
	}
	if written == 0 {
		os.Remove(archivePath)
		return "", ErrBackupIncomplete
	}

	log.Infof("Backup created at %s", archivePath)
	return archivePath, nil
}

func (a *Archiver) writeArchive(ctx context.Context, archivePath string, files []models.ModifiedFile) (int, error) {
	f, err := os.Create(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create backup archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	written := 0
	for _, file := range files {
		content, err := a.client.DownloadFile(ctx, file.RemotePath)
		if err != nil {
			log.Error("Download failed, file not backed up", "file", file.RemotePath, "err", err)
			continue
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     file.Name,
			Method:   zip.Deflate,
			Modified: file.RemoteModifiedAt,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to add %s to backup: %w", file.Name, err)
		}
		if _, err := w.Write(content); err != nil {
			return 0, fmt.Errorf("failed to write %s to backup: %w", file.Name, err)
		}
		log.Debug("Backed up", "file", file.Name, "size", humanize.Bytes(uint64(len(content))))
		written++
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize backup archive: %w", err)
	}
	return written, f.Close()
}
