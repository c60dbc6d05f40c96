package art

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

var ErrNoImage = errors.New("art: generator returned no image")

// Generator turns a prompt into an image URL (http(s) or data: URI).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// HTTPGenerator posts {"model","prompt"} to an image endpoint and reads the URL
// from whichever of the common reply shapes it finds.
type HTTPGenerator struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

func NewHTTPGenerator(endpoint, apiKey, model string) *HTTPGenerator {
	return &HTTPGenerator{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Model:    model,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

var imagePaths = []string{
	"url",
	"data.0.url",
	"images.0.url",
	"output.0",
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"model": g.Model, "prompt": prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("art request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("art read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("art request: status %d", resp.StatusCode)
	}

	if b64 := gjson.GetBytes(raw, "data.0.b64_json"); b64.Exists() && b64.String() != "" {
		return "data:image/png;base64," + b64.String(), nil
	}
	for _, path := range imagePaths {
		if v := gjson.GetBytes(raw, path); v.Exists() && v.String() != "" {
			return v.String(), nil
		}
	}
	return "", ErrNoImage
}
