package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"trivia-match-service/internal/app"
	"trivia-match-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler wires websocket replicas into the match use cases. Every
// applied action fans a fresh state snapshot out to all connected
// replicas; the six game actions arrive as inbound JSON messages.
type WSHandler struct {
	service  *app.MatchService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.MatchService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type indexPayload struct {
	Index int `json:"index"`
}

type countPayload struct {
	Count int `json:"count"`
}

type enabledPayload struct {
	Enabled bool `json:"enabled"`
}

type languagePayload struct {
	Lang domain.Language `json:"lang"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets, joins the player to the
// match and pumps actions in and snapshots out until the peer hangs up.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	playerID := r.URL.Query().Get("playerId")
	if matchID == "" || playerID == "" {
		http.Error(w, "missing matchId or playerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.service.Join(r.Context(), matchID, playerID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	// locale self-report for late joiners
	if lang := domain.Language(r.URL.Query().Get("lang")); lang != "" {
		if _, err := h.service.SetLanguage(r.Context(), matchID, lang); err != nil {
			log.Printf("set language %q: %v", lang, err)
		}
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), matchID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(r.Context(), matchID, playerID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
				if update.Result != nil {
					select {
					case send <- outboundMessage[any]{Type: "gameOver", Payload: update.Result}:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joined}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, matchID, playerID, inbound); err != nil {
			if domain.IsRejection(err) {
				// illegal-in-this-phase actions are no-ops, surfaced only
				// so clients and audits can tell them from silence
				log.Printf("rejected %s from %s: %v", inbound.Type, playerID, err)
				continue
			}
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, matchID, playerID string, inbound inboundMessage) error {
	ctx := r.Context()
	switch inbound.Type {
	case app.ActionStart:
		_, err := h.service.Start(ctx, matchID)
		return err
	case app.ActionAnswer:
		var payload indexPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := h.service.Answer(ctx, matchID, playerID, payload.Index)
		return err
	case app.ActionTimeDone:
		var payload indexPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		_, _, err := h.service.TimeDone(ctx, matchID, payload.Index)
		return err
	case app.ActionQuestions:
		var payload countPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := h.service.SetQuestionCount(ctx, matchID, payload.Count)
		return err
	case app.ActionTimer:
		var payload enabledPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := h.service.SetTimer(ctx, matchID, payload.Enabled)
		return err
	case app.ActionLanguage:
		var payload languagePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return err
		}
		_, err := h.service.SetLanguage(ctx, matchID, payload.Lang)
		return err
	default:
		return errors.New("unsupported message type")
	}
}
