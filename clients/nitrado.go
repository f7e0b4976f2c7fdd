package clients

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"nitrado-deploy/models"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrNotFound is returned when a remote file or directory does not exist
	ErrNotFound = errors.New("remote path not found")
	// ErrRemote is returned for any other unsuccessful API response
	ErrRemote = errors.New("remote API error")
)

// NitradoConfig configures a NitradoClient
type NitradoConfig struct {
	APIBaseURL     string
	Token          string
	NitradoID      string
	RemoteBasePath string
	SSLVerify      bool
	Timeout        time.Duration
}

// NitradoClient client for the Nitrado game server file API
type NitradoClient struct {
	NitradoID      string
	remoteBasePath string
	client         *resty.Client
}

// NitradoEntry structure for one entry of a directory listing
type NitradoEntry struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	ModifiedAt int64  `json:"modified_at"`
}

// NitradoListResponse structure for the file_server/list response
type NitradoListResponse struct {
	Status string `json:"status"`
	Data   struct {
		Entries []NitradoEntry `json:"entries"`
	} `json:"data"`
}

// NewNitradoClient creates a new Nitrado client scoped to one service
func NewNitradoClient(cfg NitradoConfig) *NitradoClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.APIBaseURL, "/") + "/" + cfg.NitradoID)
	client.SetAuthToken(cfg.Token)
	client.SetDisableWarn(true)
	if !cfg.SSLVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &NitradoClient{
		NitradoID:      cfg.NitradoID,
		remoteBasePath: "/" + strings.Trim(cfg.RemoteBasePath, "/"),
		client:         client,
	}
}

func (nc *NitradoClient) fileServerURL(action string) string {
	return path.Join(nc.remoteBasePath, action)
}

// ListFiles lists baseDir and every extra directory below it, returning only files.
// Any directory that cannot be listed fails the whole call.
func (nc *NitradoClient) ListFiles(ctx context.Context, baseDir string, extraDirs []string) ([]models.FileRecord, error) {
	log.Info("Get file information from Nitrado...")

	files, err := nc.listDir(ctx, baseDir)
	if err != nil {
		return nil, err
	}

	for _, dir := range extraDirs {
		dirFiles, err := nc.listDir(ctx, path.Join(baseDir, dir))
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}

	log.Infof("Successfully fetched %d file stats", len(files))
	return files, nil
}

func (nc *NitradoClient) listDir(ctx context.Context, dir string) ([]models.FileRecord, error) {
	resp, err := nc.client.R().
		SetContext(ctx).
		SetQueryParam("dir", dir).
		Get(nc.fileServerURL("list"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: directory %s", ErrNotFound, dir)
	default:
		return nil, fmt.Errorf("%w: list %s failed: status %d: %s", ErrRemote, dir, resp.StatusCode(), resp.String())
	}

	var listing NitradoListResponse
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("failed to parse listing of %s: %w", dir, err)
	}

	var files []models.FileRecord
	for _, entry := range listing.Data.Entries {
		if entry.Type != "file" {
			continue
		}
		files = append(files, models.FileRecord{
			Path:       entry.Path,
			Name:       entry.Name,
			ModifiedAt: time.Unix(entry.ModifiedAt, 0),
		})
	}

	return files, nil
}

// DownloadFile downloads the content of one remote file
func (nc *NitradoClient) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	log.Debug("Downloading from Nitrado", "file", filePath)

	resp, err := nc.client.R().
		SetContext(ctx).
		SetQueryParam("file", filePath).
		Get(nc.fileServerURL("download"))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", filePath, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return resp.Body(), nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, filePath)
	default:
		return nil, fmt.Errorf("%w: download %s failed: status %d: %s", ErrRemote, filePath, resp.StatusCode(), resp.String())
	}
}

// UploadFile uploads content to remotePath as a multipart form
func (nc *NitradoClient) UploadFile(ctx context.Context, remotePath, fileName string, content io.Reader) error {
	log.Infof("Uploading to Nitrado %s to %s", fileName, remotePath)

	resp, err := nc.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"path": remotePath,
			"file": fileName,
		}).
		SetFileReader("file", fileName, content).
		Post(nc.fileServerURL("upload"))
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: upload %s failed: status %d: %s", ErrRemote, remotePath, resp.StatusCode(), resp.String())
	}

	log.Infof("Successfully uploaded to %s", remotePath)
	return nil
}

// RestartServer asks Nitrado to restart the game server
func (nc *NitradoClient) RestartServer(ctx context.Context) error {
	log.Info("Restarting server...")

	resp, err := nc.client.R().
		SetContext(ctx).
		Post("/gameservers/restart")
	if err != nil {
		return fmt.Errorf("failed to restart server: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: restart failed: status %d: %s", ErrRemote, resp.StatusCode(), resp.String())
	}

	return nil
}
