package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/seenimoa/finsum/pkg/models"
)

// DefaultClassifierURL is the hosted inference endpoint for the FinBERT model.
const DefaultClassifierURL = "https://api-inference.huggingface.co/models/ProsusAI/finbert"

// The model accepts 512 tokens; longer input is cut before sending.
const maxClassifierRunes = 2000

// ErrClassifier is returned when the inference endpoint answers with an error.
var ErrClassifier = errors.New("sentiment classifier error")

// Classifier scores text with a hosted three-class finance sentiment model.
type Classifier struct {
	url    string
	token  string
	client *http.Client
}

// NewClassifier creates a classifier backend. An empty url uses
// DefaultClassifierURL; a nil client uses http.DefaultClient.
func NewClassifier(url, token string, client *http.Client) *Classifier {
	if url == "" {
		url = DefaultClassifierURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Classifier{url: url, token: token, client: client}
}

// Name returns the backend name.
func (c *Classifier) Name() string { return "finbert" }

type classifierRequest struct {
	Inputs  string          `json:"inputs"`
	Options map[string]bool `json:"options,omitempty"`
}

type classLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score implements Scorer. The compound score is the winning class
// probability, negated for Negative and zero for Neutral.
func (c *Classifier) Score(ctx context.Context, text string) (Result, error) {
	text = truncateRunes(Normalize(text), maxClassifierRunes)
	if text == "" {
		return Result{
			Label:  models.SentimentNeutral,
			Detail: map[string]float64{"confidence": 0},
		}, nil
	}

	probs, err := c.classify(ctx, text)
	if err != nil {
		return Result{}, err
	}

	best, bestP := "", -1.0
	for _, label := range []string{"positive", "negative", "neutral"} {
		if p, ok := probs[label]; ok && p > bestP {
			best, bestP = label, p
		}
	}

	var res Result
	switch best {
	case "positive":
		res.Label, res.Compound = models.SentimentPositive, bestP
	case "negative":
		res.Label, res.Compound = models.SentimentNegative, -bestP
	case "neutral":
		res.Label, res.Compound = models.SentimentNeutral, 0
	default:
		return Result{}, fmt.Errorf("%w: no known labels in response", ErrClassifier)
	}

	res.Detail = map[string]float64{"confidence": bestP}
	for label, p := range probs {
		res.Detail[label] = p
	}
	return res, nil
}

func (c *Classifier) classify(ctx context.Context, text string) (map[string]float64, error) {
	payload, err := json.Marshal(classifierRequest{
		Inputs:  text,
		Options: map[string]bool{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("encode classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read classifier response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrClassifier, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	labels, err := decodeLabels(body)
	if err != nil {
		return nil, err
	}
	probs := make(map[string]float64, len(labels))
	for _, l := range labels {
		probs[strings.ToLower(l.Label)] = l.Score
	}
	return probs, nil
}

// decodeLabels accepts both the batched [[...]] and flat [...] response shapes.
func decodeLabels(body []byte) ([]classLabel, error) {
	var batched [][]classLabel
	if err := json.Unmarshal(body, &batched); err == nil && len(batched) > 0 {
		return batched[0], nil
	}
	var flat []classLabel
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrClassifier, apiErr.Error)
	}
	return nil, fmt.Errorf("%w: unexpected response %.200s", ErrClassifier, body)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ Scorer = (*Classifier)(nil)
