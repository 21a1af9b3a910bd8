package handlers

import (
	"net/http"

	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gameService services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// Create godoc
// @Summary Создать игру
// @Tags games
// @Accept json
// @Produce json
// @Param body body models.Game true "Данные игры"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 409 {object} map[string]string "Название занято"
// @Security BearerAuth
// @Router /games [post]
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var game models.Game
	if err := readJSON(w, r, &game); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	created, err := h.gameService.Create(r.Context(), &game)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID godoc
// @Summary Игра с каталогом задач
// @Tags games
// @Produce json
// @Param gameID path int true "Game ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Игра не найдена"
// @Router /games/{gameID} [get]
func (h *GameHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.GetByID(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Список игр
// @Tags games
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /games [get]
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update godoc
// @Summary Обновить игру
// @Tags games
// @Accept json
// @Produce json
// @Param gameID path int true "Game ID"
// @Param body body models.Game true "Данные игры"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Игра не найдена"
// @Security BearerAuth
// @Router /games/{gameID} [put]
func (h *GameHandler) Update(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var game models.Game
	if err := readJSON(w, r, &game); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	game.ID = gameID

	if err := h.gameService.Update(r.Context(), &game); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadPoster godoc
// @Summary Загрузить постер игры
// @Tags games
// @Accept image/png
// @Produce json
// @Param gameID path int true "Game ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Игра не найдена"
// @Security BearerAuth
// @Router /games/{gameID}/poster [put]
func (h *GameHandler) UploadPoster(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contentType := r.Header.Get("Content-Type")
	game, err := h.gameService.UploadPoster(r.Context(), gameID, contentType, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddChallenge godoc
// @Summary Добавить задачу в каталог игры
// @Tags games
// @Description Уже принятые заявки получат задачу при следующей сверке.
// @Accept json
// @Produce json
// @Param gameID path int true "Game ID"
// @Param body body services.CreateChallengeInput true "Данные задачи"
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Игра не найдена"
// @Security BearerAuth
// @Router /games/{gameID}/challenges [post]
func (h *GameHandler) AddChallenge(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateChallengeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.gameService.AddChallenge(r.Context(), gameID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveChallenge godoc
// @Summary Убрать задачу из каталога
// @Tags games
// @Description Выданные instance set'ы не трогает: сверка ничего не удаляет.
// @Produce json
// @Param challengeID path int true "Challenge ID"
// @Success 204 "Задача удалена"
// @Failure 404 {object} map[string]string "Задача не найдена"
// @Security BearerAuth
// @Router /challenges/{challengeID} [delete]
func (h *GameHandler) RemoveChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID, err := getIDFromURL(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameService.RemoveChallenge(r.Context(), challengeID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChallenges godoc
// @Summary Каталог задач игры
// @Tags games
// @Produce json
// @Param gameID path int true "Game ID"
// @Success 200 {object} map[string]interface{}
// @Router /games/{gameID}/challenges [get]
func (h *GameHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenges, err := h.gameService.ListChallenges(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenges": challenges}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
