package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/abtn/nexus-smart-scraper/internal/models"
)

// doJSON posts a JSON body and decodes a JSON response, mapping transport
// and status failures into the provider error taxonomy.
func doJSON(ctx context.Context, client *http.Client, provider, method, url string, headers map[string]string, reqBody, respBody interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return &models.ProviderError{Provider: provider, Err: fmt.Errorf("%w: %v", models.ErrProviderFatal, err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &models.ProviderError{Provider: provider, Err: fmt.Errorf("%w: %v", models.ErrProviderFatal, err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransport(provider, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(provider, resp.StatusCode); err != nil {
		return err
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return malformedOutput(provider, err)
		}
	}
	return nil
}
