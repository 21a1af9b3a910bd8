package handlers

import (
	"errors"
	"net/http"

	"github.com/nurlan-dev/ctf-arena/middleware"
	"github.com/nurlan-dev/ctf-arena/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(teamService services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// Create godoc
// @Summary Создать команду
// @Tags teams
// @Description Создатель становится капитаном и сразу входит в состав.
// @Accept json
// @Produce json
// @Param body body object true "Название команды"
// @Success 201 {object} map[string]interface{} "Команда создана"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 409 {object} map[string]string "Имя команды занято"
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.Create(r.Context(), input.Name, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// Токен приглашения отдаём только капитану при создании
	response := jsonResponse{"team": team, "invite_token": team.InviteToken}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID godoc
// @Summary Команда с составом
// @Tags teams
// @Produce json
// @Param teamID path int true "Team ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Router /teams/{teamID} [get]
func (h *TeamHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetByID(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Join godoc
// @Summary Вступить в команду по токену приглашения
// @Tags teams
// @Accept json
// @Produce json
// @Param body body object true "Токен приглашения"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Уже в команде"
// @Failure 403 {object} map[string]string "Состав команды заморожен"
// @Failure 404 {object} map[string]string "Токен не найден"
// @Security BearerAuth
// @Router /teams/join [post]
func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		InviteToken string `json:"invite_token"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.InviteToken == "" {
		badRequestResponse(w, r, errors.New("invite_token is required"))
		return
	}

	team, err := h.teamService.JoinByInviteToken(r.Context(), currentUserID, input.InviteToken)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Leave godoc
// @Summary Покинуть команду
// @Tags teams
// @Produce json
// @Param teamID path int true "Team ID"
// @Success 204 "Пользователь вышел из команды"
// @Failure 400 {object} map[string]string "Капитан не может выйти"
// @Failure 403 {object} map[string]string "Состав команды заморожен"
// @Security BearerAuth
// @Router /teams/{teamID}/leave [post]
func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.teamService.Leave(r.Context(), currentUserID, teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RotateInviteToken godoc
// @Summary Перевыпустить токен приглашения
// @Tags teams
// @Description Только капитан. Старый токен перестаёт действовать.
// @Produce json
// @Param teamID path int true "Team ID"
// @Success 200 {object} map[string]string "Новый токен"
// @Failure 403 {object} map[string]string "Не капитан"
// @Security BearerAuth
// @Router /teams/{teamID}/invite [post]
func (h *TeamHandler) RotateInviteToken(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	token, err := h.teamService.RotateInviteToken(r.Context(), teamID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invite_token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadLogo godoc
// @Summary Загрузить логотип команды
// @Tags teams
// @Accept image/png
// @Produce json
// @Param teamID path int true "Team ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Не капитан"
// @Security BearerAuth
// @Router /teams/{teamID}/logo [put]
func (h *TeamHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	contentType := r.Header.Get("Content-Type")
	team, err := h.teamService.UploadLogo(r.Context(), teamID, currentUserID, contentType, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
