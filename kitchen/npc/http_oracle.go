package npc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxReplyBytes = 1 << 20

// HTTPOracle asks a remote decision service (typically an LLM gateway) for each move.
// The request carries a prompt plus the raw view; the reply may be a bare decision object,
// a chat-completion envelope, or free text containing one.
type HTTPOracle struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

func NewHTTPOracle(endpoint, apiKey, model string) *HTTPOracle {
	return &HTTPOracle{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Model:    model,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (o *HTTPOracle) Name() string { return "http:" + o.Model }

type oracleRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	View   View   `json:"view"`
}

func (o *HTTPOracle) Decide(ctx context.Context, view View) (Decision, error) {
	body, err := json.Marshal(oracleRequest{Model: o.Model, Prompt: Prompt(view), View: view})
	if err != nil {
		return PassDecision(), fmt.Errorf("encode oracle request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint, bytes.NewReader(body))
	if err != nil {
		return PassDecision(), fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return PassDecision(), fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return PassDecision(), fmt.Errorf("read oracle reply: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return PassDecision(), fmt.Errorf("oracle status %d", resp.StatusCode)
	}
	return ParseDecision(replyText(raw)), nil
}

// replyText digs the decision text out of the common reply envelopes.
func replyText(raw []byte) string {
	for _, path := range []string{"decision", "choices.0.message.content", "candidates.0.content.parts.0.text", "text"} {
		r := gjson.GetBytes(raw, path)
		if !r.Exists() {
			continue
		}
		if r.IsObject() {
			return r.Raw
		}
		return r.String()
	}
	return string(raw)
}

// Prompt renders the instruction sent to a language-model oracle.
func Prompt(v View) string {
	var b strings.Builder
	b.WriteString("You are a chef in a two-player cooking card game. ")
	fmt.Fprintf(&b, "Your score: %d. Opponent score: %d. First to %d wins.\n", v.Score, v.OpponentScore, v.WinningScore)
	fmt.Fprintf(&b, "Phase: %s. Stunned: %t. Can draw: %t.\n", v.Phase, v.Stunned, v.CanDraw)
	b.WriteString("Your hand:\n")
	for _, c := range v.Hand {
		if c.IsWild() {
			fmt.Fprintf(&b, "- %s: %s [%s] %s\n", c.ID, c.Name, c.Effect, c.Description)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.ID, c.Name)
	}
	b.WriteString("Orders on the market:\n")
	for _, o := range v.ActiveOrders {
		if o.Locked() {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s needs %s (%d pts)\n", o.ID, o.Name, strings.Join(o.Ingredients, ", "), o.Points)
	}
	if v.Cooking != nil {
		fmt.Fprintf(&b, "You are cooking %s: %d/%d taps.\n", v.Cooking.Name, v.TapsDone, v.Cooking.TapsRequired)
	}
	b.WriteString(`Reply with one JSON object: {"action":"DRAW|WILD|COOK|TAP|END","targetId":"...","ingredientIds":["..."],"wildAssignments":{"cardId":"ingredient"}}`)
	return b.String()
}
