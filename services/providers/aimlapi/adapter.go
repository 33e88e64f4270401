package aimlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/upb/imagegen-proxy/services/providers"
)

const (
	defaultBaseURL = "https://api.aimlapi.com/v1"
	// ProviderName is the registry name of this adapter
	ProviderName   = "aimlapi"
)

// Adapter implements the ImageProvider interface for the AI/ML API
type Adapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewAdapter creates a new AI/ML API adapter. Empty fields of config are
// filled from providers.DefaultProviderConfig.
func NewAdapter(config providers.ProviderConfig) *Adapter {
	defaults := providers.DefaultProviderConfig()

	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.GenerationsPath == "" {
		config.GenerationsPath = defaults.GenerationsPath
	}
	if config.EditsPath == "" {
		config.EditsPath = defaults.EditsPath
	}
	if config.ProbeModel == "" {
		config.ProbeModel = defaults.ProbeModel
	}
	if config.ProbePrompt == "" {
		config.ProbePrompt = defaults.ProbePrompt
	}
	if config.EditModel == "" {
		config.EditModel = defaults.EditModel
	}
	if config.EditMode == "" {
		config.EditMode = defaults.EditMode
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = defaults.MaxResponseBytes
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Factory matches providers.Factory for registry use
func Factory(config providers.ProviderConfig) providers.ImageProvider {
	return NewAdapter(config)
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return ProviderName
}

// Generate performs a JSON request against the generations endpoint
func (a *Adapter) Generate(ctx context.Context, apiKey string, req *providers.GenerationRequest) (*providers.ImageResponse, error) {
	return a.postJSON(ctx, apiKey, req)
}

// Edit performs an image edit using the configured edit mode
func (a *Adapter) Edit(ctx context.Context, apiKey string, req *providers.EditRequest) (*providers.ImageResponse, error) {
	if a.config.EditMode == providers.EditModeJSON {
		return a.postJSON(ctx, apiKey, &editJSONRequest{
			Model:  a.config.EditModel,
			Prompt: req.Prompt,
			Image:  req.ImageDataURL,
			Mask:   nil,
		})
	}
	return a.postMultipart(ctx, apiKey, req)
}

// Probe sends the connectivity test request. Only the HTTP status matters;
// the body of a successful response is discarded.
func (a *Adapter) Probe(ctx context.Context, apiKey string) error {
	body, err := json.Marshal(&providers.GenerationRequest{
		Model:  a.config.ProbeModel,
		Prompt: a.config.ProbePrompt,
	})
	if err != nil {
		return providers.NewProviderError(a.Name(), providers.CodeMarshalError, "", 0, err)
	}

	httpReq, err := a.newRequest(ctx, a.generationsURL(), apiKey, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	statusCode, respBody, err := a.do(httpReq)
	if err != nil {
		return err
	}
	if !isSuccess(statusCode) {
		return a.handleErrorResponse(statusCode, respBody)
	}
	return nil
}

func (a *Adapter) postJSON(ctx context.Context, apiKey string, payload interface{}) (*providers.ImageResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CodeMarshalError, "", 0, err)
	}

	httpReq, err := a.newRequest(ctx, a.generationsURL(), apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return a.execute(httpReq)
}

func (a *Adapter) postMultipart(ctx context.Context, apiKey string, req *providers.EditRequest) (*providers.ImageResponse, error) {
	model := req.Model
	if model == "" {
		model = a.config.EditModel
	}

	body, contentType, err := buildEditForm(model, req)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CodeMarshalError, "", 0, err)
	}

	httpReq, err := a.newRequest(ctx, a.editsURL(), apiKey, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)

	return a.execute(httpReq)
}

// buildEditForm encodes model, prompt and the binary image part. The
// returned content type carries the multipart boundary.
func buildEditForm(model string, req *providers.EditRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := w.WriteField("model", model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("prompt", req.Prompt); err != nil {
		return nil, "", err
	}

	filename := req.ImageFilename
	if filename == "" {
		filename = "image"
	}
	mimeType := req.ImageMIME
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.ImageData); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func (a *Adapter) newRequest(ctx context.Context, url, apiKey string, body io.Reader) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CodeRequestError, "", 0, err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// do sends a single request. There is no retry: the caller gets whatever
// outcome the provider gives.
func (a *Adapter) do(httpReq *http.Request) (int, []byte, error) {
	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, providers.NewProviderError(a.Name(), providers.CodeHTTPError, "", 0, err)
	}
	defer httpResp.Body.Close()

	limit := a.config.MaxResponseBytes
	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return httpResp.StatusCode, nil, providers.NewProviderError(a.Name(), providers.CodeReadError, "", httpResp.StatusCode, err)
	}
	if int64(len(respBody)) > limit {
		return httpResp.StatusCode, nil, providers.NewProviderError(a.Name(), providers.CodeResponseTooLarge, "", httpResp.StatusCode,
			fmt.Errorf("response body exceeds %d bytes", limit))
	}
	return httpResp.StatusCode, respBody, nil
}

func (a *Adapter) execute(httpReq *http.Request) (*providers.ImageResponse, error) {
	statusCode, respBody, err := a.do(httpReq)
	if err != nil {
		return nil, err
	}

	if !isSuccess(statusCode) {
		return nil, a.handleErrorResponse(statusCode, respBody)
	}

	locator, err := extractLocator(respBody)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CodeUnmarshalError, "", statusCode, err)
	}
	if locator == "" {
		return nil, providers.NewProviderError(a.Name(), providers.CodeNoImage, "", statusCode, nil)
	}

	return &providers.ImageResponse{
		Locator:    locator,
		StatusCode: statusCode,
	}, nil
}

// extractLocator finds the image reference in a successful response,
// checking data[0].url, then image_url, then image.
func extractLocator(body []byte) (string, error) {
	var resp imagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}

	var data []imageData
	if len(resp.Data) > 0 && json.Unmarshal(resp.Data, &data) == nil && len(data) > 0 && data[0].URL != "" {
		return data[0].URL, nil
	}
	if s := rawString(resp.ImageURL); s != "" {
		return s, nil
	}
	return rawString(resp.Image), nil
}

// handleErrorResponse turns a non-success response into a ProviderError
// carrying the provider's own message when one can be found.
func (a *Adapter) handleErrorResponse(statusCode int, body []byte) error {
	return providers.NewProviderError(a.Name(), providers.CodeStatusError, errorMessage(body), statusCode, nil)
}

// errorMessage accepts {"error":{"message":...}}, {"error":"..."} and
// {"message":...}. Anything else yields an empty string.
func errorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}

	if len(errResp.Error) > 0 {
		var detail errorDetail
		if json.Unmarshal(errResp.Error, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
		if s := rawString(errResp.Error); s != "" {
			return s
		}
	}
	return rawString(errResp.Message)
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func (a *Adapter) generationsURL() string {
	return a.config.BaseURL + a.config.GenerationsPath
}

func (a *Adapter) editsURL() string {
	return a.config.BaseURL + a.config.EditsPath
}

var _ providers.ImageProvider = (*Adapter)(nil)

// AI/ML API request/response types

// editJSONRequest is the JSON edit body; Mask is always sent as null.
type editJSONRequest struct {
	Model  string  `json:"model"`
	Prompt string  `json:"prompt"`
	Image  string  `json:"image"`
	Mask   *string `json:"mask"`
}

type imagesResponse struct {
	Data     json.RawMessage `json:"data"`
	ImageURL json.RawMessage `json:"image_url"`
	Image    json.RawMessage `json:"image"`
}

type imageData struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error   json.RawMessage `json:"error"`
	Message json.RawMessage `json:"message"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
