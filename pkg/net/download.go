package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

var ErrorURLNotFound = errors.New("URL not found")

func getResp(ctx context.Context, url, token string) (*http.Response, error) {
	c, err := getClient(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)

	return c.Do(req) //nolint:gosec // G107: URL is an explicit user input source
}

// Download saves the content at url into filepath. The file is written to a
// temporary name first so a failed download never leaves a partial file.
func Download(ctx context.Context, url, filepath, token string) (retErr error) {
	resp, err := getResp(ctx, url, token)
	if err != nil {
		return fmt.Errorf("error executing HTTP Get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrorURLNotFound
	}
	if resp.StatusCode != http.StatusOK {
		PrintHTTPResponse(resp)
		return fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	tmp := filepath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmp, filepath); err != nil {
		return fmt.Errorf("moving downloaded file into place: %w", err)
	}
	return nil
}
