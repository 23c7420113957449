package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// doRequest issues an HTTP request against the daemon and decodes a JSON
// response into out. A non-2xx status is surfaced as an error carrying the
// response body (the daemon's apierrors.ErrorResponse shape).
func doRequest(method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequest(method, serverAddr+path, body)
	if err != nil {
		return fmt.Errorf("insalatactl: build request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("insalatactl: request to %s failed: %w", serverAddr, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("insalatactl: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("insalatactl: %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("insalatactl: decode response: %w", err)
	}
	return nil
}

// rawRequest issues a bodiless request with the given method and returns
// the raw response body, for endpoints
// that reply with XML rather than JSON.
func rawRequest(method, path string) ([]byte, error) {
	req, err := http.NewRequest(method, serverAddr+path, nil)
	if err != nil {
		return nil, fmt.Errorf("insalatactl: build request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("insalatactl: request to %s failed: %w", serverAddr, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("insalatactl: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("insalatactl: %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	return data, nil
}

// render prints v per the --output flag: "yaml" marshals it with
// gopkg.in/yaml.v3, "json" with encoding/json, anything else (the
// default) falls back to the command's own human-readable formatting.
func render(v interface{}, fallback func()) error {
	switch outputFormat {
	case "yaml":
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("insalatactl: render yaml: %w", err)
		}
		fmt.Print(string(out))
		return nil
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("insalatactl: render json: %w", err)
		}
		fmt.Println(string(out))
		return nil
	default:
		fallback()
		return nil
	}
}
