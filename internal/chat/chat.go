// Package chat answers shopper questions through a local ollama server,
// feeding it store data when the question mentions orders or products.
package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultModel is what the shop assistant runs on unless configured
// otherwise.
const DefaultModel = "mistral"

const systemPrompt = "Siz onlayn do'kon operatorisiz. Faqat do'kon va mahsulotlar haqida gapiring."

// Client talks to an ollama server's chat endpoint.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	logger  *log.Logger
}

// NewClient builds a client for the ollama server at baseURL (e.g.
// "http://localhost:11434"). An empty model selects DefaultModel.
func NewClient(baseURL, model string, logger *log.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: 2 * time.Minute},
		logger:  logger.With("component", "chat"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func prompt(message, contextText string) string {
	if contextText == "" {
		contextText = "Hech qanday ma'lumot topilmadi."
	}
	return fmt.Sprintf("%s\nSavol: %s\nMa'lumot: %s", systemPrompt, message, contextText)
}

// Reply sends one blocking chat turn and returns the model's full answer.
func (c *Client) Reply(ctx context.Context, message, contextText string) (string, error) {
	var reply strings.Builder
	err := c.send(ctx, message, contextText, false, func(chunk string) {
		reply.WriteString(chunk)
	})
	if err != nil {
		return "", err
	}
	return reply.String(), nil
}

// Stream sends one chat turn and delivers the answer incrementally
// through fn, one model chunk at a time.
func (c *Client) Stream(ctx context.Context, message, contextText string, fn func(chunk string)) error {
	return c.send(ctx, message, contextText, true, fn)
}

func (c *Client) send(ctx context.Context, message, contextText string, stream bool, fn func(string)) error {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt(message, contextText)}},
		Stream:   stream,
	})
	if err != nil {
		return fmt.Errorf("chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat request: ollama returned %s", resp.Status)
	}

	// Ollama streams newline-delimited JSON; the non-stream response is a
	// single object, which the same scan handles.
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var cr chatResponse
		if err := json.Unmarshal(line, &cr); err != nil {
			return fmt.Errorf("chat response: %w", err)
		}
		if cr.Message.Content != "" {
			fn(cr.Message.Content)
		}
		if cr.Done && stream {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("chat response: %w", err)
	}
	return nil
}

// ContextSource supplies the store data the assistant may quote.
type ContextSource interface {
	OrdersContext(ctx context.Context) (string, error)
	ProductsContext(ctx context.Context) (string, error)
}

// Advisor routes a shopper's message: questions mentioning orders or
// products get the matching store rows attached as model context.
type Advisor struct {
	client *Client
	source ContextSource
	logger *log.Logger
}

func NewAdvisor(client *Client, source ContextSource, logger *log.Logger) *Advisor {
	if logger == nil {
		logger = log.Default()
	}
	return &Advisor{client: client, source: source, logger: logger.With("component", "chat")}
}

// contextFor picks the store data matching the message's keywords.
// The shop operates in Uzbek: "buyurtma" is order, "mahsulot" is product.
func (a *Advisor) contextFor(ctx context.Context, message string) string {
	lower := strings.ToLower(message)
	var (
		text string
		err  error
	)
	switch {
	case strings.Contains(lower, "buyurtma"):
		text, err = a.source.OrdersContext(ctx)
	case strings.Contains(lower, "mahsulot"):
		text, err = a.source.ProductsContext(ctx)
	default:
		return ""
	}
	if err != nil {
		a.logger.Warn("context lookup failed, answering without store data", "err", err)
		return ""
	}
	return text
}

// Answer produces a complete reply for the blocking chat endpoint.
func (a *Advisor) Answer(ctx context.Context, message string) (string, error) {
	return a.client.Reply(ctx, message, a.contextFor(ctx, message))
}

// AnswerStream produces the reply in chunks for the websocket endpoint.
func (a *Advisor) AnswerStream(ctx context.Context, message string, fn func(chunk string)) error {
	return a.client.Stream(ctx, message, a.contextFor(ctx, message), fn)
}
