package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chartgen/chart-gen-scripts/pkg/logger"
)

// Credentials carry optional basic-auth for a chart repository
type Credentials struct {
	Username string
	Password string
}

// PushMultipart uploads a chart archive as a multipart form to a
// Chartmuseum-style `/api/charts` endpoint
func PushMultipart(ctx context.Context, url, tgzPath string, creds Credentials) error {
	file, err := os.Open(tgzPath)
	if err != nil {
		return fmt.Errorf("error opening chart archive %s: %v", tgzPath, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("chart", filepath.Base(tgzPath))
	if err != nil {
		return fmt.Errorf("error creating the multipart form: %v", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("error buffering chart archive: %v", err)
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("error creating the POST request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if creds.Username != "" {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	return send(ctx, req, url)
}

// PushRaw uploads a chart archive with a PUT request, the upload contract of
// Nexus- and Artifactory-style raw repositories
func PushRaw(ctx context.Context, url, tgzPath string, creds Credentials) error {
	file, err := os.Open(tgzPath)
	if err != nil {
		return fmt.Errorf("error opening chart archive %s: %v", tgzPath, err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return fmt.Errorf("error creating the PUT request: %v", err)
	}
	req.Header.Set("Content-Type", "application/gzip")
	if creds.Username != "" {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	return send(ctx, req, url)
}

func send(ctx context.Context, req *http.Request, url string) error {
	client := &http.Client{
		Timeout: time.Minute,
	}
	response, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending the %s request: %v", req.Method, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		responseBody, _ := io.ReadAll(response.Body)
		return fmt.Errorf("received unexpected status code %d with message: %s", response.StatusCode, responseBody)
	}
	logger.Log(ctx, slog.LevelInfo, "pushed chart archive", slog.String("url", url), slog.Int("status", response.StatusCode))
	return nil
}
