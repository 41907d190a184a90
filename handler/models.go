package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kestrelhq/quotagate/apitypes"
)

var modelCatalog = []apitypes.Model{
	{ID: "mock-fast", Object: "model", OwnedBy: "quotagate"},
	{ID: "mock-standard", Object: "model", OwnedBy: "quotagate"},
	{ID: "mock-large", Object: "model", OwnedBy: "quotagate"},
}

// ModelsHandler implements GET /v1/models: a fixed catalog that never
// consults the Admission Engine or Coordination Store (spec.md §6).
func ModelsHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now().Unix()
	resp := struct {
		Object string            `json:"object"`
		Data   []apitypes.Model `json:"data"`
	}{Object: "list", Data: make([]apitypes.Model, len(modelCatalog))}

	for i, m := range modelCatalog {
		m.Created = now
		resp.Data[i] = m
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
