package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type roomView struct {
	Code string `json:"code"`
}

type stats struct {
	sent   atomic.Int64
	failed atomic.Int64
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	pairs := flag.Int("pairs", 50, "number of rooms, two users each")
	msgs := flag.Int("msgs", 20, "messages per user")
	gap := flag.Duration("gap", 10*time.Millisecond, "pause between messages")
	flag.Parse()

	slog.Info("starting load test", "users", *pairs*2, "messages_each", *msgs, "url", *baseURL)
	start := time.Now()
	var st stats
	var wg sync.WaitGroup
	for i := 0; i < *pairs; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(*baseURL, pairID, *msgs, *gap, &st)
		}(i)
	}
	wg.Wait()

	slog.Info("load test complete", "sent", st.sent.Load(), "failed", st.failed.Load(), "elapsed", time.Since(start).String())
	if st.failed.Load() > 0 {
		os.Exit(1)
	}
}

// runPair has A create a room and B join it by code, then both talk at once.
func runPair(baseURL string, pairID, msgs int, gap time.Duration, st *stats) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)

	jarA, code, err := enter(baseURL, url.Values{"name": {userA}, "create": {"1"}})
	if err != nil {
		slog.Error("create room failed", "user", userA, "err", err)
		st.failed.Add(1)
		return
	}
	jarB, _, err := enter(baseURL, url.Values{"name": {userB}, "code": {code}, "join": {"1"}})
	if err != nil {
		slog.Error("join room failed", "user", userB, "room", code, "err", err)
		st.failed.Add(1)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go spamChat(&wg, baseURL, jarA, userA, msgs, gap, st)
	go spamChat(&wg, baseURL, jarB, userB, msgs, gap, st)
	wg.Wait()
}

// enter posts the entry form with a fresh cookie jar and returns the jar
// holding the session plus the room code from the room view.
func enter(baseURL string, form url.Values) (http.CookieJar, string, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, "", err
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}
	resp, err := client.PostForm(baseURL+"/", form)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("entry returned %s", resp.Status)
	}
	var view roomView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, "", fmt.Errorf("decode room view: %w", err)
	}
	return jar, view.Code, nil
}

func spamChat(wg *sync.WaitGroup, baseURL string, jar http.CookieJar, user string, msgs int, gap time.Duration, st *stats) {
	defer wg.Done()

	dialer := websocket.Dialer{Jar: jar, HandshakeTimeout: 10 * time.Second}
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		slog.Error("websocket connect failed", "user", user, "err", err)
		st.failed.Add(1)
		return
	}
	defer conn.Close()

	// Drain broadcasts so the server never sees a slow consumer.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < msgs; i++ {
		err := conn.WriteJSON(map[string]any{
			"event": "message",
			"data":  map[string]any{"data": fmt.Sprintf("LoadTest Msg %d from %s", i, user)},
		})
		if err != nil {
			slog.Error("send failed", "user", user, "err", err)
			st.failed.Add(1)
			return
		}
		st.sent.Add(1)
		time.Sleep(gap)
	}
}
