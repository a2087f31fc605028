package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/camden-git/galacticcensus/database"
	"github.com/camden-git/galacticcensus/importer"
	"github.com/camden-git/galacticcensus/logger"
	"github.com/camden-git/galacticcensus/models"
	"github.com/camden-git/galacticcensus/repository"
	"github.com/camden-git/galacticcensus/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PersonHandler struct {
	Roster   *services.RosterService
	People   repository.PersonRepositoryInterface
	Importer *importer.Importer
}

type personResponse struct {
	models.Person
	FullName string `json:"full_name"`
}

func newPersonResponse(p models.Person) personResponse {
	if p.Locations == nil {
		p.Locations = []models.Location{}
	}
	if p.Affiliations == nil {
		p.Affiliations = []models.Affiliation{}
	}
	return personResponse{Person: p, FullName: p.FullName()}
}

type rosterResponse struct {
	*services.RosterPage
	People []personResponse `json:"people"`
}

func (ph *PersonHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ph.Roster.List(r.Context(), database.RosterQuery{
		Search:    q.Get("search"),
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
		Page:      queryInt(r, "page"),
		PerPage:   queryInt(r, "per_page"),
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list people", zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve people")
		return
	}

	people := make([]personResponse, 0, len(page.People))
	for _, p := range page.People {
		people = append(people, newPersonResponse(p))
	}
	writeJSON(w, http.StatusOK, rosterResponse{RosterPage: page, People: people})
}

func (ph *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "person_id")
	personID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid person ID format")
		return
	}

	person, err := ph.People.GetByID(r.Context(), uint(personID))
	if err != nil {
		writeStoreError(w, r, err, "Person not found", "Failed to retrieve person")
		return
	}
	writeJSON(w, http.StatusOK, newPersonResponse(*person))
}

type savePersonRequest struct {
	Name         string   `json:"name" validate:"required"`
	Locations    []string `json:"locations" validate:"omitempty,dive,max=255"`
	Affiliations []string `json:"affiliations" validate:"required,min=1,dive,required,max=255"`
	Weapon       string   `json:"weapon" validate:"max=255"`
	Vehicle      string   `json:"vehicle" validate:"max=255"`
}

// SavePerson creates or updates a person keyed by name, replacing their
// locations and affiliations with the ones in the request.
func (ph *PersonHandler) SavePerson(w http.ResponseWriter, r *http.Request) {
	var req savePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Invalid request body: "+err.Error())
		return
	}

	person, created, err := ph.Importer.Upsert(r.Context(), importer.Record{
		Name:         req.Name,
		Locations:    req.Locations,
		Affiliations: req.Affiliations,
		Weapon:       req.Weapon,
		Vehicle:      req.Vehicle,
	})
	if err != nil {
		writeStoreError(w, r, err, "Person not found", "Failed to save person")
		return
	}

	saved, err := ph.People.GetByID(r.Context(), person.ID)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to reload saved person", zap.Uint("person_id", person.ID), zap.Error(err))
		saved = person
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newPersonResponse(*saved))
}
