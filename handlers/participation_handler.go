package handlers

import (
	"errors"
	"net/http"

	"github.com/nurlan-dev/ctf-arena/middleware"
	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/services"
)

type ParticipationHandler struct {
	participationService services.ParticipationService
}

func NewParticipationHandler(ps services.ParticipationService) *ParticipationHandler {
	return &ParticipationHandler{participationService: ps}
}

// JoinGame godoc
// @Summary Подать заявку команды на игру
// @Tags participations
// @Description Пользователь подаёт заявку от имени своей команды. Заявка создаётся в статусе pending.
// @Accept json
// @Produce json
// @Param gameID path int true "Game ID"
// @Param body body object true "team_id и опционально organization"
// @Success 201 {object} map[string]interface{} "Заявка создана"
// @Failure 400 {object} map[string]string "Пользователь не в команде / организация не разрешена"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 404 {object} map[string]string "Игра или команда не найдена"
// @Failure 409 {object} map[string]string "Уже участвует в игре"
// @Security BearerAuth
// @Router /games/{gameID}/join [post]
func (h *ParticipationHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		TeamID       int     `json:"team_id"`
		Organization *string `json:"organization"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TeamID <= 0 {
		badRequestResponse(w, r, errors.New("invalid team_id in request body"))
		return
	}

	participation, err := h.participationService.JoinGame(r.Context(), services.JoinGameInput{
		UserID:       currentUserID,
		TeamID:       input.TeamID,
		GameID:       gameID,
		Organization: input.Organization,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participation": participation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatus godoc
// @Summary Сменить статус заявки (принять/отклонить)
// @Tags participations
// @Description Принятие замораживает состав команды и выдаёт instance set задач одной транзакцией.
// @Accept json
// @Produce json
// @Param participationID path int true "Participation ID"
// @Param body body object true "Новый статус: pending, accepted или denied"
// @Success 200 {object} map[string]string "Статус обновлён"
// @Failure 400 {object} map[string]string "Неизвестный статус"
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Security BearerAuth
// @Router /participations/{participationID}/status [patch]
func (h *ParticipationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	participationID, err := getIDFromURL(r, "participationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Status models.ParticipationStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participationService.UpdateStatus(r.Context(), participationID, input.Status); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": string(input.Status)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// EnsureInstances godoc
// @Summary Досверить instance set заявки с каталогом игры
// @Tags participations
// @Description Идемпотентно: добавляет недостающие задачи, ничего не удаляет.
// @Produce json
// @Param participationID path int true "Participation ID"
// @Success 200 {object} map[string]bool "changed: добавилось ли что-то"
// @Failure 404 {object} map[string]string "Заявка не найдена"
// @Security BearerAuth
// @Router /participations/{participationID}/instances/sync [post]
func (h *ParticipationHandler) EnsureInstances(w http.ResponseWriter, r *http.Request) {
	participationID, err := getIDFromURL(r, "participationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	changed, err := h.participationService.EnsureInstances(r.Context(), participationID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"changed": changed}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByGame godoc
// @Summary Заявки игры с командами и составами
// @Tags participations
// @Produce json
// @Param gameID path int true "Game ID"
// @Success 200 {object} map[string]interface{} "Заявки, упорядоченные по team_id"
// @Security BearerAuth
// @Router /games/{gameID}/participations [get]
func (h *ParticipationHandler) ListByGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participations, err := h.participationService.ListByGame(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participations": participations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CountByGame godoc
// @Summary Количество заявок игры
// @Tags participations
// @Produce json
// @Param gameID path int true "Game ID"
// @Success 200 {object} map[string]int
// @Router /games/{gameID}/participations/count [get]
func (h *ParticipationHandler) CountByGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	count, err := h.participationService.CountByGame(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"count": count}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMine godoc
// @Summary Моя заявка в игре
// @Tags participations
// @Produce json
// @Param gameID path int true "Game ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Заявки нет"
// @Security BearerAuth
// @Router /games/{gameID}/participations/my [get]
func (h *ParticipationHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	participation, err := h.participationService.GetByUserAndGame(r.Context(), currentUserID, gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participation": participation}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveDenied godoc
// @Summary Очистить следы отклонённых заявок пользователя в игре
// @Tags participations
// @Description Позволяет пользователю зайти в игру через другую команду. Если у пользователя есть не-denied заявка, очистка отказывает с 409.
// @Produce json
// @Param gameID path int true "Game ID"
// @Param userID path int true "User ID"
// @Success 200 {object} map[string]bool "removed: была ли выполнена очистка"
// @Failure 409 {object} map[string]string "Есть активная заявка"
// @Security BearerAuth
// @Router /games/{gameID}/participations/users/{userID} [delete]
func (h *ParticipationHandler) RemoveDenied(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	removed, err := h.participationService.RemoveDeniedParticipation(r.Context(), userID, gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if !removed {
		conflictResponse(w, r, services.ErrCleanupRefused.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"removed": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
