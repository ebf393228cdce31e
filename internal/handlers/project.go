package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/projectdesk/internal/apperrors"
	"github.com/mkravets/projectdesk/internal/handlers/render"
	"github.com/mkravets/projectdesk/internal/handlers/userctx"
	"github.com/mkravets/projectdesk/internal/logger"
	"github.com/mkravets/projectdesk/internal/models"
	"github.com/mkravets/projectdesk/internal/service/project"
)

type projectResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Progress    int       `json:"progress"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

func toProjectResponse(p models.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		Priority:    p.Priority,
		Progress:    p.Progress,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt,
		ModifiedAt:  p.ModifiedAt,
	}
}

func handleCreateProject(projectService projectService, paymentService paymentService, l logger.Logger) http.Handler {
	type request struct {
		Title       string     `json:"title" validate:"required,min=1,max=200"`
		Description string     `json:"description"`
		Status      string     `json:"status" validate:"omitempty,oneof=planning in-progress completed on-hold cancelled"`
		Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		Tags        []string   `json:"tags"`
	}

	type insufficientData struct {
		CurrentBalance float64 `json:"currentBalance"`
		RequiredAmount float64 `json:"requiredAmount"`
		Shortfall      float64 `json:"shortfall"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		params := project.CreateParams{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			Tags:        req.Tags,
		}
		if req.StartDate != nil {
			params.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			params.EndDate = *req.EndDate
		}

		created, err := projectService.CreateProject(r.Context(), userID, params)

		switch {
		case err == nil:
			render.JSONWithStatus(w, toProjectResponse(created), http.StatusCreated)
		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			balance, berr := paymentService.GetBalance(r.Context(), userID)
			if berr != nil {
				l.Error("Failed to get balance", "error", berr, "user_id", userID)
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			fee := projectService.Fee()
			current, _ := balance.Amount.Float64()
			required, _ := fee.Float64()
			shortfall, _ := fee.Sub(balance.Amount).Float64()

			render.JSONWithStatus(w, struct {
				render.ErrorResponse
				Data insufficientData `json:"data"`
			}{
				ErrorResponse: render.ErrorResponse{
					Error:   render.ServiceErrorType,
					Message: "Insufficient balance to create project",
				},
				Data: insufficientData{
					CurrentBalance: current,
					RequiredAmount: required,
					Shortfall:      shortfall,
				},
			}, http.StatusPaymentRequired)
		default:
			l.Error("Failed to create project", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListProjects(projectService projectService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		projects, err := projectService.ListProjects(r.Context(), userID)
		if err != nil {
			l.Error("Failed to list projects", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]projectResponse, 0, len(projects))
		for _, p := range projects {
			resp = append(resp, toProjectResponse(p))
		}
		render.JSON(w, resp)
	})
}

func handleListProjectsByStatus(projectService projectService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		status := r.PathValue("status")
		if !models.ValidProjectStatus(status) {
			render.ServiceError(w, "Invalid project status", http.StatusBadRequest)
			return
		}

		projects, err := projectService.ListProjectsByStatus(r.Context(), userID, status)
		if err != nil {
			l.Error("Failed to list projects by status", "error", err, "user_id", userID, "status", status)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]projectResponse, 0, len(projects))
		for _, p := range projects {
			resp = append(resp, toProjectResponse(p))
		}
		render.JSON(w, resp)
	})
}

func handleSearchProjects(projectService projectService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		query := r.URL.Query().Get("q")
		if query == "" {
			render.ServiceError(w, "Search query is required", http.StatusBadRequest)
			return
		}

		projects, err := projectService.SearchProjects(r.Context(), userID, query)
		if err != nil {
			l.Error("Failed to search projects", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]projectResponse, 0, len(projects))
		for _, p := range projects {
			resp = append(resp, toProjectResponse(p))
		}
		render.JSON(w, resp)
	})
}

func handleGetProject(projectService projectService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		p, err := projectService.GetProject(r.Context(), id, userID)

		switch {
		case err == nil:
			render.JSON(w, toProjectResponse(p))
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		default:
			l.Error("Failed to get project", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUpdateProject(projectService projectService, l logger.Logger) http.Handler {
	type request struct {
		Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
		Description *string    `json:"description"`
		Status      *string    `json:"status" validate:"omitempty,oneof=planning in-progress completed on-hold cancelled"`
		Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
		Progress    *int       `json:"progress" validate:"omitempty,min=0,max=100"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		Tags        []string   `json:"tags"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		updated, err := projectService.UpdateProject(r.Context(), id, userID, project.UpdateParams{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			Progress:    req.Progress,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Tags:        req.Tags,
		})

		switch {
		case err == nil:
			render.JSON(w, toProjectResponse(updated))
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		default:
			l.Error("Failed to update project", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUpdateProjectProgress(projectService projectService, l logger.Logger) http.Handler {
	type request struct {
		// Pointer so that an explicit 0 is distinguishable from a missing field
		Progress *int `json:"progress" validate:"omitempty,min=0,max=100"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		if req.Progress == nil {
			render.ServiceError(w, "Progress is required", http.StatusBadRequest)
			return
		}

		updated, err := projectService.UpdateProgress(r.Context(), id, userID, *req.Progress)

		switch {
		case err == nil:
			render.JSON(w, toProjectResponse(updated))
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		default:
			l.Error("Failed to update project progress", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleDeleteProject(projectService projectService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		err = projectService.DeleteProject(r.Context(), id, userID)

		switch {
		case err == nil:
			render.JSON(w, response{Message: "Project deleted successfully"})
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		default:
			l.Error("Failed to delete project", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleProjectStats(projectService projectService, l logger.Logger) http.Handler {
	type response struct {
		Total      int `json:"total"`
		Planning   int `json:"planning"`
		InProgress int `json:"inProgress"`
		Completed  int `json:"completed"`
		OnHold     int `json:"onHold"`
		Cancelled  int `json:"cancelled"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		stats, err := projectService.GetStats(r.Context(), userID)
		if err != nil {
			l.Error("Failed to get project stats", "error", err, "user_id", userID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{
			Total:      stats.Total,
			Planning:   stats.Planning,
			InProgress: stats.InProgress,
			Completed:  stats.Completed,
			OnHold:     stats.OnHold,
			Cancelled:  stats.Cancelled,
		})
	})
}
