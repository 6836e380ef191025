package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"samaj/internal/database"
)

type CommonHandler struct {
	db database.Service
}

func NewCommonHandler(db database.Service) *CommonHandler {
	return &CommonHandler{db: db}
}

func (h *CommonHandler) HelloHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"message": "samaj membership API"}

	jsonResp, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("Error marshalling JSON response for HelloHandler")
		return
	}

	_, _ = w.Write(jsonResp)
}

func (h *CommonHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResp, err := json.Marshal(h.db.Health())
	if err != nil {
		log.Error().Err(err).Msg("Error marshalling JSON response for HealthHandler")
		return
	}

	_, _ = w.Write(jsonResp)
}
