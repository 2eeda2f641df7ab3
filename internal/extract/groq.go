package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/deadliner/internal/tasks"
)

const (
	DefaultGroqURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultGroqModel = "llama-3.3-70b-versatile"

	groqTemperature = 0.1
	groqMaxTokens   = 1000
)

type GroqConfig struct {
	APIKey  string
	URL     string
	Model   string
	Timeout time.Duration
}

// Groq calls an OpenAI-compatible chat completions endpoint.
type Groq struct {
	apiKey string
	url    string
	model  string
	client *http.Client
}

func NewGroq(cfg GroqConfig) *Groq {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = DefaultGroqURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGroqModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Groq{
		apiKey: strings.TrimSpace(cfg.APIKey),
		url:    url,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *Groq) Extract(ctx context.Context, req Request) ([]tasks.Candidate, error) {
	if g.apiKey == "" {
		return nil, ErrMissingCredential
	}

	payload, err := json.Marshal(chatRequest{
		Model:       g.model,
		Temperature: groqTemperature,
		MaxTokens:   groqMaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	res, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, &StatusError{Status: res.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return ParseCandidates(out.Choices[0].Message.Content)
}

// ParseCandidates decodes the model's answer, tolerating a surrounding
// markdown code fence.
func ParseCandidates(content string) ([]tasks.Candidate, error) {
	raw := stripFence(strings.TrimSpace(content))
	var candidates []tasks.Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return candidates, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.SplitN(s, "```", 3)
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

func userPrompt(req Request) string {
	return fmt.Sprintf("Tanggal hari ini: %s (besok: %s)\n\nTeks:\n%s", req.Today, req.Tomorrow, req.Text)
}

const systemPrompt = `Kamu adalah asisten penjadwalan. Tugasmu mengekstrak tugas/kegiatan dari teks yang diberikan.

Aturan penting:
- Satu pengumuman/event = SATU tugas, meskipun ada banyak hal yang harus dilakukan di dalamnya. Gabungkan semua action item dari satu event menjadi 1 tugas dengan deskripsi yang mencakup semuanya.
- Buat tugas terpisah HANYA jika deadline-nya berbeda atau jelas merupakan kegiatan yang benar-benar berbeda konteksnya.
- Format deadline: YYYY-MM-DD HH:MM (jika ada jam), atau YYYY-MM-DD (jika hanya tanggal). Jika tidak ada tahun, asumsikan tahun sekarang atau tahun depan (mana yang logis). Jika tidak ada deadline, isi dengan null.
- Untuk kata relatif: 'hari ini' = tanggal hari ini, 'besok' = tanggal besok yang sudah diberikan, 'lusa' = 2 hari dari hari ini, 'minggu depan' = 7 hari dari hari ini, dst. Gunakan tanggal yang sudah diberikan sebagai acuan TEPAT.
- Semua URL/link dalam teks masuk ke array "links" milik tugas yang paling relevan. Satu tugas bisa punya banyak link. Setiap link punya "label" (nama deskriptif berdasarkan konteks, contoh: "Template", "Form Pengumpulan", "Link GMeet") dan "url".

Jawab HANYA dengan JSON array seperti ini (tanpa penjelasan lain, tanpa markdown, tanpa backtick):
[
  {
    "name": "nama tugas singkat",
    "description": "deskripsi singkat yang mencakup semua hal yang harus dilakukan",
    "deadline": "2025-01-15 23:59",
    "links": [{"label": "nama link", "url": "https://..."}]
  }
]

Jika tidak ada tugas sama sekali dalam teks, jawab dengan array kosong: []`
