package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// ProgressReader logs download progress every ten percent.
type ProgressReader struct {
	Reader  io.Reader
	Total   int64
	Current int64
	Message string
	Logger  *log.Logger

	lastStep int64
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.Current += int64(n)

	if pr.Logger != nil && pr.Total > 0 {
		step := pr.Current * 10 / pr.Total
		if step > pr.lastStep {
			pr.lastStep = step
			pr.Logger.Info(pr.Message, "progress", fmt.Sprintf("%d%%", step*10), "bytes", pr.Current)
		}
	}
	return n, err
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API responded with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// download streams url into dest through a temp file so a failed transfer
// never leaves a truncated jar behind.
func download(ctx context.Context, client *http.Client, url, dest, message string, logger *log.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading file: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, &ProgressReader{
		Reader:  resp.Body,
		Total:   resp.ContentLength,
		Message: message,
		Logger:  logger,
	})
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
