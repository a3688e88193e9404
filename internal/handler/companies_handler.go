package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-discovery/internal/dto"
	"github.com/octobees/leads-discovery/internal/repository"
)

// CompaniesService is what the catalogue endpoints need from the service layer.
type CompaniesService interface {
	ListCompanies(ctx context.Context, filter dto.ListFilter) ([]dto.CompanyItem, error)
	CompanyContacts(ctx context.Context, id uuid.UUID) (dto.CompanyContacts, error)
}

// CompaniesHandler exposes the discovered company catalogue.
type CompaniesHandler struct {
	service CompaniesService
}

// NewCompaniesHandler creates a new handler instance.
func NewCompaniesHandler(service CompaniesService) *CompaniesHandler {
	return &CompaniesHandler{service: service}
}

// List handles GET /companies requests.
func (h *CompaniesHandler) List(c echo.Context) error {
	filter := dto.ListFilter{
		Q:           strings.TrimSpace(c.QueryParam("q")),
		Category:    strings.TrimSpace(c.QueryParam("category")),
		Domain:      strings.TrimSpace(c.QueryParam("domain")),
		PhoneStatus: strings.TrimSpace(c.QueryParam("phone")),
		Sort:        strings.TrimSpace(c.QueryParam("sort")),
		Page:        parseIntDefault(c.QueryParam("page"), 1),
		PerPage:     parseIntDefault(c.QueryParam("per_page"), 20),
	}

	if minRatingStr := strings.TrimSpace(c.QueryParam("min_rating")); minRatingStr != "" {
		minRating, err := strconv.ParseFloat(minRatingStr, 64)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid min_rating")
		}
		filter.MinRating = &minRating
	}

	if updatedSinceStr := strings.TrimSpace(c.QueryParam("updated_since")); updatedSinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, updatedSinceStr)
		if err != nil {
			return Error(c, http.StatusBadRequest, "invalid updated_since (use RFC3339)")
		}
		filter.UpdatedSince = &parsed
	}

	companies, err := h.service.ListCompanies(c.Request().Context(), filter)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list companies")
	}

	return Paged(c, "companies retrieved", companies, PageMeta{Page: filter.Page, PerPage: filter.PerPage, Count: len(companies)})
}

// Contacts handles GET /companies/:id/contacts requests.
func (h *CompaniesHandler) Contacts(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid company id")
	}

	out, err := h.service.CompanyContacts(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Error(c, http.StatusNotFound, "company not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to load contacts")
	}

	return Success(c, http.StatusOK, "contacts retrieved", out)
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
