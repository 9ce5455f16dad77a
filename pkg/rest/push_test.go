package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestArchive(t *testing.T) string {
	t.Helper()
	tgzPath := filepath.Join(t.TempDir(), "demo-0.1.0.tgz")
	require.NoError(t, os.WriteFile(tgzPath, []byte("not-a-real-archive"), 0o644))
	return tgzPath
}

func TestPushMultipart(t *testing.T) {
	var gotFilename string
	var gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotUser, gotPass, _ = r.BasicAuth()
		file, header, err := r.FormFile("chart")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	tgzPath := writeTestArchive(t)
	creds := Credentials{Username: "admin", Password: "hunter2"}
	require.NoError(t, PushMultipart(context.Background(), server.URL+"/api/charts", tgzPath, creds))
	assert.Equal(t, "demo-0.1.0.tgz", gotFilename)
	assert.Equal(t, "admin", gotUser)
	assert.Equal(t, "hunter2", gotPass)
}

func TestPushMultipartServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chart already exists", http.StatusConflict)
	}))
	defer server.Close()

	err := PushMultipart(context.Background(), server.URL+"/api/charts", writeTestArchive(t), Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "chart already exists")
}

func TestPushRaw(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, PushRaw(context.Background(), server.URL+"/repository/helm/demo-0.1.0.tgz", writeTestArchive(t), Credentials{}))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/repository/helm/demo-0.1.0.tgz", gotPath)
}

func TestHead(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, Head(context.Background(), server.URL, ""))
	assert.Equal(t, 3, attempts)
}

func TestHeadUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := Head(context.Background(), server.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
