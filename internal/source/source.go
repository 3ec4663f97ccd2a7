// Package source acquires the candidate URL set from an operator-supplied
// document: a PDF of feed URLs (the usual case), a plain text listing, or a
// remote document downloaded first. Extraction yields deduplicated absolute
// URLs in first-seen order.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURLs scans free-form text for absolute http(s) URLs and returns them
// deduplicated, keeping first-seen order.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// FromPDF extracts candidate URLs from the text layer of a PDF document.
func FromPDF(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	return ExtractURLs(string(text)), nil
}

// FromList reads newline-delimited URLs. Blank lines and '#' comments are
// skipped; non-URL lines are ignored rather than rejected.
func FromList(r io.Reader) ([]string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return ExtractURLs(b.String()), nil
}

// FromFile dispatches on the file extension: .pdf goes through the PDF text
// layer, anything else is treated as a plain text listing.
func FromFile(path string) ([]string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return FromPDF(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list %s: %w", path, err)
	}
	defer f.Close()
	return FromList(f)
}

// Download fetches the source document to a local file so it can be handed to
// FromFile. The whole transfer is bounded by timeout.
func Download(ctx context.Context, rawURL, dest string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
