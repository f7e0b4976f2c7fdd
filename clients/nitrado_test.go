package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoot = "/games/ni1_1/ftproot/dayzxb_missions/dayzOffline.chernarusplus/"

func newTestClient(t *testing.T, handler http.HandlerFunc) *NitradoClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewNitradoClient(NitradoConfig{
		APIBaseURL:     srv.URL + "/services/",
		Token:          "secret",
		NitradoID:      "42",
		RemoteBasePath: "/gameservers/file_server/",
		SSLVerify:      true,
		Timeout:        5 * time.Second,
	})
}

func listingJSON(entries ...string) string {
	return fmt.Sprintf(`{"status":"success","data":{"entries":[%s]}}`, strings.Join(entries, ","))
}

func TestListFiles(t *testing.T) {
	var dirs []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/services/42/gameservers/file_server/list", r.URL.Path)

		dir := r.URL.Query().Get("dir")
		dirs = append(dirs, dir)
		switch dir {
		case testRoot:
			fmt.Fprint(w, listingJSON(
				`{"type":"file","name":"types.xml","path":"/root/types.xml","modified_at":1700000000}`,
				`{"type":"dir","name":"db","path":"/root/db","modified_at":1700000000}`,
			))
		case "/games/ni1_1/ftproot/dayzxb_missions/dayzOffline.chernarusplus/db":
			fmt.Fprint(w, listingJSON(
				`{"type":"file","name":"events.xml","path":"/root/db/events.xml","modified_at":1700000100}`,
			))
		default:
			http.NotFound(w, r)
		}
	})

	files, err := client.ListFiles(context.Background(), testRoot, []string{"db"})
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, []string{testRoot, "/games/ni1_1/ftproot/dayzxb_missions/dayzOffline.chernarusplus/db"}, dirs)
	assert.Equal(t, "types.xml", files[0].Name)
	assert.Equal(t, "/root/types.xml", files[0].Path)
	assert.True(t, files[0].ModifiedAt.Equal(time.Unix(1700000000, 0)))
	assert.Equal(t, "events.xml", files[1].Name)
	assert.True(t, files[1].ModifiedAt.Equal(time.Unix(1700000100, 0)))
}

func TestListFiles_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "sub directory not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrRemote},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("dir") == testRoot {
					fmt.Fprint(w, listingJSON())
					return
				}
				w.WriteHeader(tt.status)
			})

			files, err := client.ListFiles(context.Background(), testRoot, []string{"missing"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, files)
		})
	}
}

func TestListFiles_BadJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":`)
	})

	_, err := client.ListFiles(context.Background(), testRoot, nil)
	assert.Error(t, err)
}

func TestDownloadFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/42/gameservers/file_server/download", r.URL.Path)
		switch r.URL.Query().Get("file") {
		case "/root/db/events.xml":
			fmt.Fprint(w, "<events/>")
		case "/root/broken.xml":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	})

	content, err := client.DownloadFile(context.Background(), "/root/db/events.xml")
	require.NoError(t, err)
	assert.Equal(t, "<events/>", string(content))

	_, err = client.DownloadFile(context.Background(), "/root/gone.xml")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.DownloadFile(context.Background(), "/root/broken.xml")
	assert.ErrorIs(t, err, ErrRemote)
}

func TestUploadFile(t *testing.T) {
	var gotPath, gotName, gotContent string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/42/gameservers/file_server/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		gotPath = r.FormValue("path")
		gotName = r.FormValue("file")
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, err := io.ReadAll(f)
		require.NoError(t, err)
		gotContent = string(b)
	})

	err := client.UploadFile(context.Background(), "/root/db/events.xml", "events.xml", strings.NewReader("<events/>"))
	require.NoError(t, err)
	assert.Equal(t, "/root/db/events.xml", gotPath)
	assert.Equal(t, "events.xml", gotName)
	assert.Equal(t, "<events/>", gotContent)
}

func TestUploadFile_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	})

	err := client.UploadFile(context.Background(), "/root/types.xml", "types.xml", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrRemote)
}

func TestRestartServer(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/42/gameservers/restart", r.URL.Path)
		if calls > 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	require.NoError(t, client.RestartServer(context.Background()))
	assert.ErrorIs(t, client.RestartServer(context.Background()), ErrRemote)
}
