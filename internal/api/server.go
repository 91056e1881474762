package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/pipeplan/internal/planner"
	"github.com/samcharles93/pipeplan/internal/profile"
)

type Server struct {
	store   *PlanStore
	service *PlanService
	lister  GeneratorProvider
}

func NewServer(store *PlanStore, service *PlanService) *Server {
	if store == nil {
		store = NewPlanStore()
	}
	s := &Server{
		store:   store,
		service: service,
	}
	if service != nil {
		s.lister = service.provider
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/plans", s.handleCreatePlan)
	e.GET("/v1/plans", s.handleListPlans)
	e.GET("/v1/plans/:id", s.handleGetPlan)
	e.DELETE("/v1/plans/:id", s.handleDeletePlan)
	e.GET("/v1/plans/:id/templates/:n", s.handleGetTemplate)
	e.GET("/v1/profiles", s.handleListProfiles)
}

func (s *Server) handleCreatePlan(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "plan service not configured", "", "")
	}
	req, err := decodeJSON[CreatePlanRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error(), "")
	}

	plan, err := s.service.CreatePlan(c.Request().Context(), &req)
	if err != nil {
		return writePlanError(c, err)
	}
	saved := s.store.Save(*plan)
	return c.JSON(http.StatusOK, saved)
}

func (s *Server) handleListPlans(c *echo.Context) error {
	return c.JSON(http.StatusOK, PlanList{Object: "list", Data: s.store.List()})
}

func (s *Server) handleGetPlan(c *echo.Context) error {
	id := c.Param("id")
	plan, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "plan "+strconv.Quote(id)+" not found")
	}
	return c.JSON(http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "plan "+strconv.Quote(id)+" not found")
	}
	return c.JSON(http.StatusOK, PlanDeleted{ID: id, Object: "plan.deleted", Deleted: true})
}

func (s *Server) handleGetTemplate(c *echo.Context) error {
	id := c.Param("id")
	plan, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "plan "+strconv.Quote(id)+" not found")
	}
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		return writeBadRequest(c, "node count must be a positive integer", "n")
	}
	for _, t := range plan.Templates {
		if t.NumNodes == n {
			return c.JSON(http.StatusOK, t)
		}
	}
	return writeNotFound(c, "plan "+strconv.Quote(id)+" has no feasible template for "+strconv.Itoa(n)+" nodes")
}

func (s *Server) handleListProfiles(c *echo.Context) error {
	if s.lister == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "plan service not configured", "", "")
	}
	entries, err := s.lister.Profiles()
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	if entries == nil {
		entries = []profile.Entry{}
	}
	return c.JSON(http.StatusOK, ProfileList{Object: "list", Data: entries})
}

// writePlanError maps planning failures to HTTP statuses. A batch where only
// some counts are infeasible is a success and never reaches here.
func writePlanError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err.Error(), errorParam(err))
	case errors.Is(err, planner.ErrInvalidNodeCount):
		return writeBadRequest(c, err.Error(), "nodes")
	case errors.Is(err, planner.ErrProfileNotFound):
		return writeError(c, http.StatusNotFound, "not_found_error", err.Error(), "tag", "profile_not_found")
	case errors.Is(err, planner.ErrEmptyModel):
		return writeError(c, http.StatusUnprocessableEntity, "planning_error", err.Error(), "", "empty_model")
	case errors.Is(err, planner.ErrInfeasible):
		return writeError(c, http.StatusUnprocessableEntity, "planning_error", err.Error(), "", "infeasible")
	case errors.Is(err, profile.ErrInvalidProfile):
		return writeError(c, http.StatusUnprocessableEntity, "planning_error", err.Error(), "", "invalid_profile")
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
}
