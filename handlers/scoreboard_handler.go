package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/nurlan-dev/ctf-arena/scoreboard"
	"github.com/nurlan-dev/ctf-arena/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin.
		return true
	},
}

type ScoreboardHandler struct {
	scoreboardService *services.ScoreboardService
	hub               *scoreboard.Hub
}

func NewScoreboardHandler(scoreboardService *services.ScoreboardService, hub *scoreboard.Hub) *ScoreboardHandler {
	return &ScoreboardHandler{
		scoreboardService: scoreboardService,
		hub:               hub,
	}
}

// Get godoc
// @Summary Снапшот скорборда игры
// @Tags scoreboard
// @Description Отдаётся из кеша; после сигнала инвалидации пересобирается лениво.
// @Produce json
// @Param gameID path int true "Game ID"
// @Success 200 {object} map[string]interface{}
// @Router /games/{gameID}/scoreboard [get]
func (h *ScoreboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.scoreboardService.Get(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"scoreboard": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ServeWs подписывает клиента на события скорборда игры.
// Клиент подключается к /ws/games/{gameID}.
func (h *ScoreboardHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		http.Error(w, "Missing or invalid gameID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту.
		log.Printf("Failed to upgrade connection for game %d: %v", gameID, err)
		return
	}

	client := &scoreboard.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: scoreboard.GameRoom(gameID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
