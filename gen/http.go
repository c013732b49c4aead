package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"time"

	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/oplang"
	"github.com/pyros-projects/zxplorer/oplang/vector"
)

// HTTPRenderer drives an external rendering service. Each output is one
// POST to <endpoint>/render; the service answers with the stored image
// path.
type HTTPRenderer struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPRenderer builds a renderer for the given endpoint
func NewHTTPRenderer(endpoint string, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

type renderPayload struct {
	Prompt string `json:"prompt"`
	Index  int    `json:"index"`
	Seed   int64  `json:"seed"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Steps  int    `json:"steps"`
}

type renderResponse struct {
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// Render posts one output spec to the external service
func (r *HTTPRenderer) Render(ctx context.Context, spec RenderSpec) (Image, error) {
	payload, err := json.Marshal(renderPayload{
		Prompt: spec.Prompt,
		Index:  spec.Index,
		Seed:   spec.Seed,
		Width:  spec.Width,
		Height: spec.Height,
		Steps:  spec.Steps,
	})
	if err != nil {
		return Image{}, errors.Wrap(err, "failed to encode render payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint+"/render", bytes.NewReader(payload))
	if err != nil {
		return Image{}, errors.Wrap(err, "failed to build render request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return Image{}, errors.Wrap(errors.ErrServiceUnavailable, err.Error())
	}
	defer resp.Body.Close()

	var body renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Image{}, errors.Wrap(err, "failed to decode render response")
	}
	if resp.StatusCode != http.StatusOK {
		msg := body.Error
		if msg == "" {
			msg = fmt.Sprintf("render service answered %d", resp.StatusCode)
		}
		return Image{}, errors.New(msg)
	}

	return Image{Index: spec.Index, Path: body.Path, Seed: spec.Seed}, nil
}

// StubEncoder returns a deterministic text encoder for the stub backend:
// same text, same vector, with no model behind it. Components derive
// from an FNV hash so distinct prompts land on distinct directions.
func StubEncoder(dim int) oplang.EncodeFunc {
	return func(ctx context.Context, text string) (vector.Vector, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := fnv.New64a()
		h.Write([]byte(text))
		seed := h.Sum64()

		v := make(vector.Vector, dim)
		for i := range v {
			seed = seed*6364136223846793005 + 1442695040888963407
			v[i] = float32(math.Sin(float64(seed >> 33)))
		}
		return v, nil
	}
}
