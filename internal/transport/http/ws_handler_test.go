package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"trivia-match-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketMatchFlow(t *testing.T) {
	catalogs := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(sampleCatalogs()), time.Minute)
	service := app.NewMatchService(memory.NewMatchStore(), catalogs, memory.NewHistoryStore())
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?matchId=match-1&playerId=u1&lang=en"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect joined event first.
	msgType, payload := readNext(conn, t, "joined")
	if msgType != "joined" {
		t.Fatalf("expected joined, got %s", msgType)
	}
	if payload == nil {
		t.Fatalf("expected joined payload, got nil")
	}

	if err := conn.WriteJSON(map[string]any{"type": "start", "payload": map[string]any{}}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	waitForQuestion(conn, t, 1)

	// a single player answering closes the question immediately
	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"index": 0},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	waitForQuestion(conn, t, 2)
}

func waitForQuestion(conn *websocket.Conn, t *testing.T, number int) {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, payload := readNext(conn, t, "")
		if typ != "state" {
			continue
		}
		if got, ok := payload["questionNumber"].(float64); ok && int(got) == number {
			return
		}
	}
	t.Fatalf("never saw state for question %d", number)
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleCatalogs() map[domain.Language]domain.Catalog {
	return map[domain.Language]domain.Catalog{
		domain.LangEN: {
			Lang: domain.LangEN,
			Questions: []domain.Question{
				{ID: 1, Category: "Tutorial", Question: "Pick green", CorrectAnswer: "Green", IncorrectAnswers: []string{"Red", "Blue", "Yellow"}},
				{ID: 2, Category: "Science", Question: "Red planet?", CorrectAnswer: "Mars", IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"}},
				{ID: 3, Category: "Geography", Question: "Capital of Australia?", CorrectAnswer: "Canberra", IncorrectAnswers: []string{"Sydney", "Melbourne", "Perth"}},
				{ID: 4, Category: "History", Question: "Berlin Wall fell?", CorrectAnswer: "1989", IncorrectAnswers: []string{"1987", "1991", "1993"}},
				{ID: 5, Category: "Art", Question: "Mona Lisa painter?", CorrectAnswer: "Leonardo da Vinci", IncorrectAnswers: []string{"Michelangelo", "Raphael", "Donatello"}},
				{ID: 6, Category: "Sports", Question: "Players on the field?", CorrectAnswer: "11", IncorrectAnswers: []string{"9", "10", "12"}},
			},
		},
	}
}
