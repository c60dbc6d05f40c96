package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"cookduel/kitchen"
	"cookduel/peer"
)

// dialRelay opens a room on the relay and connects both seats to it.
func dialRelay(ctx context.Context, base string, policy kitchen.TurnPolicy) (string, [kitchen.PlayerCount]peer.Transport, error) {
	var out [kitchen.PlayerCount]peer.Transport
	base = strings.TrimRight(base, "/")

	room, err := postJSON(ctx, base+"/api/rooms", map[string]string{"name": "selfplay", "policy": policy.String()})
	if err != nil {
		return "", out, err
	}
	roomID := gjson.GetBytes(room, "id").String()
	if roomID == "" {
		return "", out, fmt.Errorf("relay returned no room id: %s", room)
	}

	wsBase := "ws" + strings.TrimPrefix(base, "http")
	for seat := range out {
		join, err := postJSON(ctx, base+"/api/rooms/"+roomID+"/join", map[string]any{"seat": seat})
		if err != nil {
			return "", out, err
		}
		path := gjson.GetBytes(join, "ws_path").String()
		t, err := peer.DialWebSocket(ctx, wsBase+path, nil, nil)
		if err != nil {
			return "", out, err
		}
		out[seat] = t
	}
	return roomID, out, nil
}

func postJSON(ctx context.Context, url string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("POST %s: %d %s", url, resp.StatusCode, gjson.GetBytes(data, "error").String())
	}
	return data, nil
}
