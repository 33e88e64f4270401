package aimlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/upb/imagegen-proxy/services/providers"
)

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter(providers.ProviderConfig{})

	if adapter == nil {
		t.Fatal("NewAdapter() returned nil")
	}

	if adapter.Name() != "aimlapi" {
		t.Errorf("Name() = %s, want aimlapi", adapter.Name())
	}

	if adapter.config.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", adapter.config.BaseURL, defaultBaseURL)
	}

	if adapter.generationsURL() != "https://api.aimlapi.com/v1/images/generations/" {
		t.Errorf("generationsURL() = %s", adapter.generationsURL())
	}

	if adapter.editsURL() != "https://api.aimlapi.com/v1/images/edits" {
		t.Errorf("editsURL() = %s", adapter.editsURL())
	}

	if adapter.config.EditMode != providers.EditModeMultipart {
		t.Errorf("EditMode = %s, want multipart", adapter.config.EditMode)
	}

	if adapter.config.MaxResponseBytes != 32<<20 {
		t.Errorf("MaxResponseBytes = %d, want %d", adapter.config.MaxResponseBytes, 32<<20)
	}

	if adapter.httpClient.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", adapter.httpClient.Timeout)
	}
}

func TestNewAdapter_TrimsBaseURL(t *testing.T) {
	adapter := NewAdapter(providers.ProviderConfig{BaseURL: "http://localhost:9999/v1/"})

	if adapter.generationsURL() != "http://localhost:9999/v1/images/generations/" {
		t.Errorf("generationsURL() = %s", adapter.generationsURL())
	}
}

func TestAdapter_Generate(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}

		if r.URL.Path != "/images/generations/" {
			t.Errorf("Expected path /images/generations/, got %s", r.URL.Path)
		}

		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", auth)
		}

		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"url":"https://cdn.example.com/fox.png"}]}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL})

	resp, err := adapter.Generate(context.Background(), "test-key", &providers.GenerationRequest{
		Model:  "flux/schnell",
		Prompt: "a red fox",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.Locator != "https://cdn.example.com/fox.png" {
		t.Errorf("Locator = %s, want https://cdn.example.com/fox.png", resp.Locator)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}

	want := map[string]interface{}{"model": "flux/schnell", "prompt": "a red fox"}
	if len(gotBody) != len(want) || gotBody["model"] != want["model"] || gotBody["prompt"] != want["prompt"] {
		t.Errorf("request body = %v, want %v", gotBody, want)
	}
}

func TestAdapter_Generate_Error(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "structured error object",
			status:      http.StatusUnauthorized,
			body:        `{"error":{"message":"Invalid API key","type":"auth_error"}}`,
			wantMessage: "Invalid API key",
		},
		{
			name:        "string error",
			status:      http.StatusBadRequest,
			body:        `{"error":"prompt is required"}`,
			wantMessage: "prompt is required",
		},
		{
			name:        "top-level message",
			status:      http.StatusForbidden,
			body:        `{"statusCode":403,"message":"Insufficient credits"}`,
			wantMessage: "Insufficient credits",
		},
		{
			name:        "non-JSON body",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			body:        ``,
			wantMessage: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL})

			_, err := adapter.Generate(context.Background(), "bad-key", &providers.GenerationRequest{Model: "m", Prompt: "p"})
			if err == nil {
				t.Fatal("Expected error but got none")
			}

			var provErr *providers.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("Expected ProviderError, got %T", err)
			}

			if provErr.Code != providers.CodeStatusError {
				t.Errorf("Code = %s, want %s", provErr.Code, providers.CodeStatusError)
			}

			if provErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", provErr.StatusCode, tt.status)
			}

			if provErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", provErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestAdapter_Generate_NoRetry(t *testing.T) {
	attempts := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL})

	_, err := adapter.Generate(context.Background(), "key", &providers.GenerationRequest{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatal("Expected error but got none")
	}

	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1", attempts)
	}
}

func TestAdapter_Generate_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	adapter := NewAdapter(providers.ProviderConfig{BaseURL: url})

	_, err := adapter.Generate(context.Background(), "key", &providers.GenerationRequest{Model: "m", Prompt: "p"})

	var provErr *providers.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Expected ProviderError, got %T", err)
	}

	if provErr.Code != providers.CodeHTTPError {
		t.Errorf("Code = %s, want %s", provErr.Code, providers.CodeHTTPError)
	}

	if provErr.Cause == nil {
		t.Error("Cause should carry the transport error")
	}
}

func TestAdapter_Generate_BadSuccessBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"not JSON", `ok`, providers.CodeUnmarshalError},
		{"no locator", `{"data":[]}`, providers.CodeNoImage},
		{"data without url", `{"data":[{"b64_json":"AAAA"}]}`, providers.CodeNoImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL})

			_, err := adapter.Generate(context.Background(), "key", &providers.GenerationRequest{Model: "m", Prompt: "p"})

			var provErr *providers.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("Expected ProviderError, got %v", err)
			}

			if provErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", provErr.Code, tt.wantCode)
			}
		})
	}
}

func TestAdapter_ResponseSizeLimit(t *testing.T) {
	success := `{"data":[{"url":"https://cdn.example.com/y.png","b64_json":"` + strings.Repeat("A", 512) + `"}]}`
	failure := `{"error":{"message":"` + strings.Repeat("x", 512) + `"}}`

	tests := []struct {
		name     string
		status   int
		body     string
		limit    int64
		wantURL  string
		wantCode string
	}{
		{"success within limit", http.StatusOK, success, int64(len(success)), "https://cdn.example.com/y.png", ""},
		{"success over limit", http.StatusOK, success, int64(len(success)) - 1, "", providers.CodeResponseTooLarge},
		{"error body over limit", http.StatusBadRequest, failure, 64, "", providers.CodeResponseTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL, MaxResponseBytes: tt.limit})

			resp, err := adapter.Generate(context.Background(), "key", &providers.GenerationRequest{Model: "m", Prompt: "p"})

			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Generate returned error: %v", err)
				}
				if resp.Locator != tt.wantURL {
					t.Errorf("Locator = %s, want %s", resp.Locator, tt.wantURL)
				}
				return
			}

			var provErr *providers.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("Expected ProviderError, got %v", err)
			}
			if provErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", provErr.Code, tt.wantCode)
			}
			if provErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", provErr.StatusCode, tt.status)
			}
		})
	}
}

func TestExtractLocator(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"data array url", `{"data":[{"url":"https://x/y.png"}]}`, "https://x/y.png"},
		{"image_url only", `{"image_url":"https://x/y.png"}`, "https://x/y.png"},
		{"image only", `{"image":"https://x/z.png"}`, "https://x/z.png"},
		{"data wins over image_url", `{"data":[{"url":"https://x/a.png"}],"image_url":"https://x/b.png"}`, "https://x/a.png"},
		{"image_url wins over image", `{"image_url":"https://x/b.png","image":"https://x/c.png"}`, "https://x/b.png"},
		{"only first data element", `{"data":[{"url":""},{"url":"https://x/second.png"}],"image":"https://x/c.png"}`, "https://x/c.png"},
		{"data is an object", `{"data":{"url":"https://x/a.png"},"image_url":"https://x/b.png"}`, "https://x/b.png"},
		{"image is an object", `{"image":{"url":"https://x/a.png"}}`, ""},
		{"nothing", `{"id":"gen-1"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractLocator([]byte(tt.body))
			if err != nil {
				t.Fatalf("extractLocator() error = %v", err)
			}

			if got != tt.want {
				t.Errorf("extractLocator() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdapter_Probe(t *testing.T) {
	t.Run("success ignores body", func(t *testing.T) {
		var gotBody providers.GenerationRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/images/generations/" {
				t.Errorf("Expected path /images/generations/, got %s", r.URL.Path)
			}
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_, _ = w.Write([]byte(`not even json`))
		}))
		defer server.Close()

		adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL})

		if err := adapter.Probe(context.Background(), "key"); err != nil {
			t.Fatalf("Probe() error = %v", err)
		}

		if gotBody.Model != "flux/schnell" || gotBody.Prompt != "test connection" {
			t.Errorf("probe body = %+v", gotBody)
		}
	})

	t.Run("failure keeps provider message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key"}}`))
		}))
		defer server.Close()

		adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL})

		err := adapter.Probe(context.Background(), "bad")

		var provErr *providers.ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("Expected ProviderError, got %v", err)
		}

		if provErr.Message != "Invalid API key" {
			t.Errorf("Message = %q, want Invalid API key", provErr.Message)
		}
	})

	t.Run("custom probe model", func(t *testing.T) {
		var gotBody providers.GenerationRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}))
		defer server.Close()

		adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL, ProbeModel: "flux/dev", ProbePrompt: "ping"})

		if err := adapter.Probe(context.Background(), "key"); err != nil {
			t.Fatalf("Probe() error = %v", err)
		}

		if gotBody.Model != "flux/dev" || gotBody.Prompt != "ping" {
			t.Errorf("probe body = %+v", gotBody)
		}
	})
}

func TestAdapter_Edit_Multipart(t *testing.T) {
	imageBytes := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/edits" {
			t.Errorf("Expected path /images/edits, got %s", r.URL.Path)
		}

		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("Authorization = %q", auth)
		}

		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Errorf("Content-Type = %q, want multipart with boundary", r.Header.Get("Content-Type"))
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}

		if got := r.FormValue("model"); got != "flux/kontext" {
			t.Errorf("model = %q, want flux/kontext", got)
		}

		if got := r.FormValue("prompt"); got != "make it blue" {
			t.Errorf("prompt = %q, want make it blue", got)
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			return
		}
		defer file.Close()

		if header.Filename != "image.png" {
			t.Errorf("Filename = %s, want image.png", header.Filename)
		}

		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("part Content-Type = %s, want image/png", ct)
		}

		got, _ := io.ReadAll(file)
		if !bytes.Equal(got, imageBytes) {
			t.Errorf("image bytes = %v, want %v", got, imageBytes)
		}

		_, _ = w.Write([]byte(`{"image_url":"https://cdn.example.com/edited.png"}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL})

	resp, err := adapter.Edit(context.Background(), "key", &providers.EditRequest{
		Model:         "flux/kontext",
		Prompt:        "make it blue",
		ImageData:     imageBytes,
		ImageMIME:     "image/png",
		ImageFilename: "image.png",
		ImageDataURL:  "data:image/png;base64,iVBORw0KGgoAAQ==",
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if resp.Locator != "https://cdn.example.com/edited.png" {
		t.Errorf("Locator = %s", resp.Locator)
	}
}

func TestAdapter_Edit_MultipartDefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}

		if got := r.FormValue("model"); got != "edit-model" {
			t.Errorf("model = %q, want edit-model", got)
		}

		_, _ = w.Write([]byte(`{"image":"https://cdn.example.com/e.png"}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{BaseURL: server.URL, EditModel: "edit-model"})

	if _, err := adapter.Edit(context.Background(), "key", &providers.EditRequest{Prompt: "p", ImageData: []byte("x")}); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
}

func TestAdapter_Edit_JSON(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations/" {
			t.Errorf("Expected path /images/generations/, got %s", r.URL.Path)
		}

		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}

		_, _ = w.Write([]byte(`{"data":[{"url":"https://cdn.example.com/j.png"}]}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{
		BaseURL:   server.URL,
		EditMode:  providers.EditModeJSON,
		EditModel: "forced/edit-model",
	})

	resp, err := adapter.Edit(context.Background(), "key", &providers.EditRequest{
		Model:        "caller-model",
		Prompt:       "add a hat",
		ImageDataURL: "data:image/png;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if resp.Locator != "https://cdn.example.com/j.png" {
		t.Errorf("Locator = %s", resp.Locator)
	}

	if gotBody["model"] != "forced/edit-model" {
		t.Errorf("model = %v, want forced/edit-model", gotBody["model"])
	}

	if gotBody["prompt"] != "add a hat" {
		t.Errorf("prompt = %v", gotBody["prompt"])
	}

	if gotBody["image"] != "data:image/png;base64,AAAA" {
		t.Errorf("image = %v", gotBody["image"])
	}

	mask, present := gotBody["mask"]
	if !present || mask != nil {
		t.Errorf("mask = %v (present %v), want explicit null", mask, present)
	}
}

func TestAdapter_CustomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Client"); got != "imagegen-proxy" {
			t.Errorf("X-Client = %q", got)
		}
		_, _ = w.Write([]byte(`{"image":"u"}`))
	}))
	defer server.Close()

	adapter := NewAdapter(providers.ProviderConfig{
		BaseURL: server.URL,
		Headers: map[string]string{"X-Client": "imagegen-proxy"},
	})

	if _, err := adapter.Generate(context.Background(), "k", &providers.GenerationRequest{Model: "m", Prompt: "p"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestFactory_Registry(t *testing.T) {
	registry := providers.NewRegistry()
	if err := registry.Register(ProviderName, Factory); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	p, err := registry.New(ProviderName, providers.ProviderConfig{EditMode: providers.EditModeJSON})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	adapter, ok := p.(*Adapter)
	if !ok {
		t.Fatalf("registry built %T, want *Adapter", p)
	}
	if adapter.config.EditMode != providers.EditModeJSON {
		t.Errorf("EditMode = %s, want json", adapter.config.EditMode)
	}
}
