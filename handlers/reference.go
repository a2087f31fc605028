package handlers

import (
	"net/http"
	"sort"

	"github.com/camden-git/galacticcensus/logger"
	"github.com/camden-git/galacticcensus/models"
	"github.com/camden-git/galacticcensus/repository"
	"github.com/facette/natsort"
	"go.uber.org/zap"
)

type ReferenceHandler struct {
	Refs repository.ReferenceRepositoryInterface
}

func (rh *ReferenceHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	rh.list(w, r, models.KindLocation)
}

func (rh *ReferenceHandler) ListAffiliations(w http.ResponseWriter, r *http.Request) {
	rh.list(w, r, models.KindAffiliation)
}

func (rh *ReferenceHandler) list(w http.ResponseWriter, r *http.Request, kind models.ReferenceKind) {
	refs, err := rh.Refs.ListAll(r.Context(), kind)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list references", zap.String("kind", string(kind)), zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve "+string(kind)+" list")
		return
	}

	// natural order so "Sector 9" sorts before "Sector 10"
	sort.SliceStable(refs, func(i, j int) bool {
		return natsort.Compare(refs[i].Name, refs[j].Name)
	})
	writeJSON(w, http.StatusOK, refs)
}
