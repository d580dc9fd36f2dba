package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
)

const defaultLlamaParseURL = "https://api.cloud.llamaindex.ai/api/parsing"

// errJobPending marks a job that has not finished yet.
var errJobPending = errors.New("llamaparse job pending")

// LlamaParseParser sends documents to the LlamaParse service and returns
// the markdown it produces.
type LlamaParseParser struct {
	cfg          LlamaParseConfig
	client       *http.Client
	pollInterval time.Duration
	maxPolls     uint
}

func NewLlamaParseParser(cfg LlamaParseConfig) *LlamaParseParser {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultLlamaParseURL
	}
	return &LlamaParseParser{
		cfg:          cfg,
		client:       &http.Client{Timeout: 60 * time.Second},
		pollInterval: 5 * time.Second,
		maxPolls:     60, // ~5 minutes
	}
}

func (p *LlamaParseParser) SupportedFormats() []string { return legacyFormats }

func (p *LlamaParseParser) Parse(ctx context.Context, path string) (*Document, error) {
	if p.cfg.APIKey == "" {
		return nil, ErrExternalParserRequired
	}

	jobID, err := p.uploadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("uploading to LlamaParse: %w", err)
	}

	markdown, err := p.pollResult(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("getting LlamaParse result: %w", err)
	}

	return &Document{
		FileType: DetectFormat(path),
		RawText:  markdown,
		Method:   "llamaparse",
		Metadata: map[string]string{"llamaparse_job_id": jobID},
	}, nil
}

func (p *LlamaParseParser) uploadFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.ID, nil
}

func (p *LlamaParseParser) pollResult(ctx context.Context, jobID string) (string, error) {
	url := fmt.Sprintf("%s/job/%s/result/markdown", p.cfg.BaseURL, jobID)

	return retry.DoWithData(
		func() (string, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return "", retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

			resp, err := p.client.Do(req)
			if err != nil {
				return "", err
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusOK:
				var result struct {
					Markdown string `json:"markdown"`
				}
				if err := json.Unmarshal(body, &result); err != nil {
					return string(body), nil // raw text fallback
				}
				return result.Markdown, nil
			case http.StatusAccepted, http.StatusNotFound:
				return "", errJobPending
			default:
				return "", retry.Unrecoverable(fmt.Errorf("LlamaParse error %d: %s", resp.StatusCode, string(body)))
			}
		},
		retry.Context(ctx),
		retry.Attempts(p.maxPolls),
		retry.Delay(p.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
