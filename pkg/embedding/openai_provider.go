package embedding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// OpenAIProvider implements EmbeddingProvider against the OpenAI
// embeddings API (or any compatible endpoint).
type OpenAIProvider struct {
	BaseURL string
	ApiKey  string
	Model   string
	Client  *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, model string) EmbeddingProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIProvider{
		BaseURL: baseURL,
		ApiKey:  apiKey,
		Model:   model,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type openaiEmbeddingRequest struct {
	Model string      `json:"model"`
	Input interface{} `json:"input"`
}

type openaiEmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type openaiEmbeddingResponse struct {
	Data []openaiEmbeddingData `json:"data"`
}

type openaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (p *OpenAIProvider) Generate(text string) (*EmbeddingResponse, error) {
	vectors, err := p.request(text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai embedding: empty response")
	}
	return &EmbeddingResponse{Values: vectors[0]}, nil
}

func (p *OpenAIProvider) GenerateBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := p.request(texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("openai embedding: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (p *OpenAIProvider) request(input interface{}) ([][]float32, error) {
	reqBody := openaiEmbeddingRequest{
		Model: p.Model,
		Input: input,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/embeddings", strings.TrimSuffix(p.BaseURL, "/"))
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		var apiErr openaiErrorResponse
		_ = json.Unmarshal(resByte, &apiErr)
		if res.StatusCode == http.StatusTooManyRequests || apiErr.Error.Code == "insufficient_quota" {
			return nil, fmt.Errorf("%w: code %d, body %s", ErrRateLimited, res.StatusCode, string(resByte))
		}
		return nil, fmt.Errorf("error from openai embeddings, code %d, body %s", res.StatusCode, string(resByte))
	}

	var parsed openaiEmbeddingResponse
	if err := json.Unmarshal(resByte, &parsed); err != nil {
		return nil, err
	}

	// The API may return items out of order; restore input order by index.
	sort.Slice(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		values := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			values[j] = float32(v)
		}
		vectors[i] = values
	}
	return vectors, nil
}
