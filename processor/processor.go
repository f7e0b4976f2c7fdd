package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nitrado-deploy/models"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

var (
	// ErrNoLocalFiles is returned when the deploy directory holds nothing to deploy
	ErrNoLocalFiles = errors.New("no local files found to process")
	// ErrNoRemoteFiles is returned when the remote listing is empty
	ErrNoRemoteFiles = errors.New("no remote files found to process")
	// ErrUpload is returned when a file could not be uploaded
	ErrUpload = errors.New("upload failed")
	// ErrRestart is returned when the server restart was rejected
	ErrRestart = errors.New("restart failed")
)

type remoteClient interface {
	ListFiles(ctx context.Context, baseDir string, extraDirs []string) ([]models.FileRecord, error)
	UploadFile(ctx context.Context, remotePath, fileName string, content io.Reader) error
	RestartServer(ctx context.Context) error
}

type localScanner interface {
	Scan(ctx context.Context) ([]models.FileRecord, error)
}

type archiver interface {
	Backup(ctx context.Context, files []models.ModifiedFile) (string, error)
}

// Processor deploys newer local files to the game server
type Processor struct {
	remote   remoteClient
	scanner  localScanner
	archiver archiver
}

// Dependencies configuration for creating a processor
type Dependencies struct {
	Remote   remoteClient
	Scanner  localScanner
	Archiver archiver
}

// Config holds configuration for one deployment run
type Config struct {
	DeployDirectory    string
	RemoteRootDir      string
	RemoteDirs         []string
	RestartAfterDeploy bool
	DryRun             bool
}

// NewProcessor creates a new instance of the deployment processor
func NewProcessor(d *Dependencies) *Processor {
	return &Processor{
		remote:   d.Remote,
		scanner:  d.Scanner,
		archiver: d.Archiver,
	}
}

// Main runs one deployment. Each step gates the next: nothing is uploaded
// unless the backup succeeded, and uploading stops at the first failure.
func (p *Processor) Main(ctx context.Context, cfg Config) error {
	localFiles, err := p.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan local files: %w", err)
	}
	if len(localFiles) == 0 {
		return ErrNoLocalFiles
	}

	remoteFiles, err := p.remote.ListFiles(ctx, cfg.RemoteRootDir, cfg.RemoteDirs)
	if err != nil {
		return fmt.Errorf("failed to get remote file information: %w", err)
	}
	if len(remoteFiles) == 0 {
		return ErrNoRemoteFiles
	}

	modified := CompareFiles(localFiles, remoteFiles)
	if len(modified) == 0 {
		log.Info("No files modified. Skipping deployment.")
		return nil
	}
	for _, file := range modified {
		log.Info("Modified", "file", file.LocalPath,
			"local", humanize.Time(file.LocalModifiedAt), "remote", humanize.Time(file.RemoteModifiedAt))
	}

	if cfg.DryRun {
		log.Infof("Dry run: %d files would be deployed", len(modified))
		return nil
	}

	backupPath, err := p.archiver.Backup(ctx, modified)
	if err != nil {
		return fmt.Errorf("backup failed, aborting deployment: %w", err)
	}

	for _, file := range modified {
		if err := p.uploadFile(ctx, cfg.DeployDirectory, file); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrUpload, file.LocalPath, err)
		}
	}
	log.Info("All modified files uploaded successfully.", "files", len(modified), "backup", backupPath)

	if cfg.RestartAfterDeploy {
		if err := p.remote.RestartServer(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrRestart, err)
		}
		log.Info("Server restart initiated")
	}

	return nil
}

// uploadFile reads one file from the deploy directory and sends it to its remote path
func (p *Processor) uploadFile(ctx context.Context, deployDir string, file models.ModifiedFile) error {
	f, err := os.Open(filepath.Join(deployDir, file.LocalPath))
	if err != nil {
		return err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		log.Debug("Uploading", "file", file.LocalPath, "size", humanize.Bytes(uint64(info.Size())))
	}

	return p.remote.UploadFile(ctx, file.RemotePath, file.Name, f)
}
