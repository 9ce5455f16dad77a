package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/chartgen/chart-gen-scripts/pkg/logger"
)

const maxRetries = 5

// Head sends a HEAD request to the given URL and returns an error if the request fails.
// Retries on 503 responses, honoring Retry-After when present.
func Head(ctx context.Context, url, token string) error {
	for retries := 0; retries <= maxRetries; retries++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return fmt.Errorf("error creating the HEAD request: %v", err)
		}
		if token != "" {
			req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
		}

		client := &http.Client{}
		response, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("error sending the HEAD request: %v", err)
		}
		response.Body.Close()

		switch response.StatusCode {
		case http.StatusOK:
			return nil
		case http.StatusServiceUnavailable:
			wait := time.Duration(retries+1) * time.Second
			if retryAfter := response.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					wait = time.Duration(seconds) * time.Second
				}
			}
			logger.Log(ctx, slog.LevelWarn, "service unavailable, retrying",
				slog.String("url", url), slog.String("wait", wait.String()))
			time.Sleep(wait)
		default:
			return fmt.Errorf("received unexpected status code %d for HEAD %s", response.StatusCode, url)
		}
	}
	return fmt.Errorf("exceeded %d retries for HEAD %s", maxRetries, url)
}
