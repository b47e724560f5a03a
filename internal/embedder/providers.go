package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// NormalizeVector scales a vector to unit length in place. Vectors with
// near-zero norm are left untouched to avoid amplifying noise.
func NormalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < 1e-5 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// OpenAIProvider generates embeddings via the OpenAI embeddings API
type OpenAIProvider struct {
	apiKey    string
	model     string
	dimension int
	baseURL   string
	client    *http.Client
}

// NewOpenAIProvider creates an OpenAI embedding provider
func NewOpenAIProvider(apiKey, model string, dimension int) *OpenAIProvider {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimension <= 0 {
		dimension = 1536
	}
	return &OpenAIProvider{
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		baseURL:   "https://api.openai.com/v1/embeddings",
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type openAIRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed generates a normalized embedding for a single text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates normalized embeddings for multiple texts
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	return retryWithBackoff(ctx, 3, time.Second, func() ([][]float32, error) {
		body, err := json.Marshal(openAIRequest{
			Input:      texts,
			Model:      p.model,
			Dimensions: p.dimension,
		})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		var parsed openAIResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			msg := resp.Status
			if parsed.Error != nil {
				msg = parsed.Error.Message
			}
			return nil, fmt.Errorf("embedding request failed: %s", msg)
		}
		if len(parsed.Data) != len(texts) {
			return nil, fmt.Errorf("got %d embeddings for %d texts", len(parsed.Data), len(texts))
		}

		vecs := make([][]float32, len(texts))
		for _, d := range parsed.Data {
			if d.Index < 0 || d.Index >= len(vecs) {
				return nil, fmt.Errorf("embedding index %d out of range", d.Index)
			}
			NormalizeVector(d.Embedding)
			vecs[d.Index] = d.Embedding
		}
		return vecs, nil
	})
}

// Dimension returns the embedding dimension
func (p *OpenAIProvider) Dimension() int { return p.dimension }

// Provider returns the provider name
func (p *OpenAIProvider) Provider() string { return "openai" }

// Model returns the model identifier
func (p *OpenAIProvider) Model() string { return p.model }

// Close releases provider resources
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// localDimension is the vector size for the hash-based local provider
const localDimension = 384

// LocalProvider generates deterministic embeddings from a content hash.
// It requires no network or model files and is suitable for testing and
// offline use. Semantically similar texts do NOT map to nearby vectors.
type LocalProvider struct{}

// NewLocalProvider creates the deterministic local provider
func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

// Embed generates a deterministic normalized vector for a text
func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, localDimension)
	seed := sha256.Sum256([]byte(text))

	// Stretch the 32-byte digest across the vector by rehashing with a
	// counter suffix
	for i := 0; i < localDimension; i += 8 {
		block := sha256.Sum256(append(seed[:], byte(i), byte(i>>8)))
		for j := 0; j < 8 && i+j < localDimension; j++ {
			bits := binary.LittleEndian.Uint32(block[j*4:])
			vec[i+j] = float32(bits%2000)/1000.0 - 1.0
		}
	}

	NormalizeVector(vec)
	return vec, nil
}

// EmbedBatch generates deterministic vectors for multiple texts
func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimension returns the embedding dimension
func (p *LocalProvider) Dimension() int { return localDimension }

// Provider returns the provider name
func (p *LocalProvider) Provider() string { return "local" }

// Model returns the model identifier
func (p *LocalProvider) Model() string { return "hash-v1" }

// Close releases provider resources
func (p *LocalProvider) Close() error { return nil }
