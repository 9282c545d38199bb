// loot/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ezloot/LOOT-SERVICES/loot/service"
	"github.com/ezloot/LOOT-SERVICES/shared/api"
	sharedservice "github.com/ezloot/LOOT-SERVICES/shared/service"
)

// LootHandlers holds the services the HTTP surface dispatches to.
type LootHandlers struct {
	lootService   *service.LootService
	reportService *service.ReportService
}

// NewLootHandlers creates a new instance of LootHandlers.
func NewLootHandlers(lootService *service.LootService, reportService *service.ReportService) *LootHandlers {
	return &LootHandlers{
		lootService:   lootService,
		reportService: reportService,
	}
}

// RegisterRoutes registers all loot-service API routes with the provided router.
func (h *LootHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.handleRegister).Methods("POST")
	router.HandleFunc("/users", h.handleListUsers).Methods("GET")
	router.HandleFunc("/users/{id}", h.handleGetUser).Methods("GET")
	router.HandleFunc("/users/{id}", h.handleRemoveUser).Methods("DELETE")
	router.HandleFunc("/users/{id}/gear/{slot}", h.handleSetItem).Methods("POST")
	router.HandleFunc("/users/{id}/gear/{slot}", h.handleEditItem).Methods("PUT")
	router.HandleFunc("/users/{id}/gear/{slot}", h.handleResetGear).Methods("DELETE")
	router.HandleFunc("/users/{id}/gear/{slot}/award", h.handleAssignLoot).Methods("POST")
	router.HandleFunc("/users/{id}/gear/{slot}/unlock", h.handleUnlockSlot).Methods("POST")
	router.HandleFunc("/users/{id}/bonusloot", h.handleAssignBonusLoot).Methods("POST")
	router.HandleFunc("/users/{id}/loot/{slot}", h.handleRemoveLoot).Methods("DELETE")
	router.HandleFunc("/users/{id}/bonusloot/{slot}", h.handleRemoveBonusLoot).Methods("DELETE")
	router.HandleFunc("/users/{id}/pity/increment", h.handleAddPity).Methods("POST")
	router.HandleFunc("/users/{id}/pity", h.handleSetPity).Methods("PUT")
	router.HandleFunc("/search/gear", h.handleFindGear).Methods("GET")
	router.HandleFunc("/search/bonusloot", h.handleFindBonusLoot).Methods("GET")
	router.HandleFunc("/reports/guild-totals", h.handleGuildTotals).Methods("GET")
	router.HandleFunc("/config/admins", h.handleAdminIDs).Methods("GET")
	router.HandleFunc("/config/admins/reload", h.handleReloadAdmins).Methods("POST")
}

// writeServiceError maps the loot service's sentinel errors to an HTTP status
// and the machine-readable code clients translate back with.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		api.WriteErrorWithDetails(w, http.StatusNotFound, "User is not registered", sharedservice.CodeUserNotFound)
	case errors.Is(err, service.ErrAlreadyRegistered):
		api.WriteErrorWithDetails(w, http.StatusConflict, "User is already registered", sharedservice.CodeAlreadyRegistered)
	case errors.Is(err, service.ErrUnknownSlot):
		api.WriteErrorWithDetails(w, http.StatusBadRequest, "Unknown gear slot", sharedservice.CodeUnknownSlot)
	case errors.Is(err, service.ErrSlotLocked):
		api.WriteErrorWithDetails(w, http.StatusConflict, "Gear slot is locked", sharedservice.CodeSlotLocked)
	case errors.Is(err, service.ErrSlotAlreadySet):
		api.WriteErrorWithDetails(w, http.StatusConflict, "Gear slot already has an item", sharedservice.CodeSlotAlreadySet)
	case errors.Is(err, service.ErrSlotEmpty):
		api.WriteErrorWithDetails(w, http.StatusConflict, "Gear slot is empty", sharedservice.CodeSlotEmpty)
	case errors.Is(err, service.ErrItemNotSet):
		api.WriteErrorWithDetails(w, http.StatusBadRequest, "No item declared for slot", sharedservice.CodeItemNotSet)
	case errors.Is(err, service.ErrAlreadyAwarded):
		api.WriteErrorWithDetails(w, http.StatusConflict, "Slot was already awarded", sharedservice.CodeAlreadyAwarded)
	case errors.Is(err, service.ErrProtectedAdmin):
		api.WriteErrorWithDetails(w, http.StatusForbidden, "Cannot remove a protected admin", sharedservice.CodeProtectedAdmin)
	default:
		log.Printf("ERROR: Loot service operation failed: %v", err)
		api.WriteInternalServerError(w, "An internal error occurred")
	}
}

// handleRegister handles POST /users
func (h *LootHandlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req sharedservice.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request payload")
		return
	}
	if req.ID == "" || req.Username == "" {
		api.WriteBadRequest(w, "Both 'id' and 'username' are required")
		return
	}

	if err := h.lootService.Register(r.Context(), req.ID, req.Username); err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// handleGetUser handles GET /users/{id}
func (h *LootHandlers) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := h.lootService.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, record)
}

// handleListUsers handles GET /users
func (h *LootHandlers) handleListUsers(w http.ResponseWriter, r *http.Request) {
	records, err := h.lootService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, records)
}

// handleSetItem handles POST /users/{id}/gear/{slot}
func (h *LootHandlers) handleSetItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req sharedservice.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request payload")
		return
	}
	if req.Item == "" {
		api.WriteBadRequest(w, "'item' is required")
		return
	}

	if err := h.lootService.SetItem(r.Context(), vars["id"], vars["slot"], req.Item); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEditItem handles PUT /users/{id}/gear/{slot}
func (h *LootHandlers) handleEditItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req sharedservice.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request payload")
		return
	}
	if req.Item == "" {
		api.WriteBadRequest(w, "'item' is required")
		return
	}

	if err := h.lootService.EditItem(r.Context(), vars["id"], vars["slot"], req.Item); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignLoot handles POST /users/{id}/gear/{slot}/award
func (h *LootHandlers) handleAssignLoot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req sharedservice.AwardRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.WriteBadRequest(w, "Invalid request payload")
			return
		}
	}

	entry, err := h.lootService.AssignLoot(r.Context(), vars["id"], vars["slot"], req.Source)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sharedservice.EntryResponse{Entry: entry})
}

// handleAssignBonusLoot handles POST /users/{id}/bonusloot
func (h *LootHandlers) handleAssignBonusLoot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req sharedservice.BonusLootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request payload")
		return
	}
	if req.Slot == "" || req.Item == "" {
		api.WriteBadRequest(w, "Both 'slot' and 'item' are required")
		return
	}

	entry, err := h.lootService.AssignBonusLoot(r.Context(), vars["id"], req.Slot, req.Item, req.Source)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sharedservice.EntryResponse{Entry: entry})
}

// handleUnlockSlot handles POST /users/{id}/gear/{slot}/unlock
func (h *LootHandlers) handleUnlockSlot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.lootService.UnlockSlot(r.Context(), vars["id"], vars["slot"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResetGear handles DELETE /users/{id}/gear/{slot}
func (h *LootHandlers) handleResetGear(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.lootService.ResetGear(r.Context(), vars["id"], vars["slot"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveLoot handles DELETE /users/{id}/loot/{slot}
func (h *LootHandlers) handleRemoveLoot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	removed, err := h.lootService.RemoveLootForSlot(r.Context(), vars["id"], vars["slot"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sharedservice.RemovedResponse{Removed: removed})
}

// handleRemoveBonusLoot handles DELETE /users/{id}/bonusloot/{slot}
func (h *LootHandlers) handleRemoveBonusLoot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	removed, err := h.lootService.RemoveBonusLootForSlot(r.Context(), vars["id"], vars["slot"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sharedservice.RemovedResponse{Removed: removed})
}

// handleAddPity handles POST /users/{id}/pity/increment
func (h *LootHandlers) handleAddPity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pity, err := h.lootService.AddPity(r.Context(), vars["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sharedservice.PityResponse{Pity: pity})
}

// handleSetPity handles PUT /users/{id}/pity
func (h *LootHandlers) handleSetPity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req sharedservice.SetPityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request payload")
		return
	}
	if req.Pity < 0 {
		api.WriteBadRequest(w, "'pity' must be non-negative")
		return
	}

	if err := h.lootService.SetPity(r.Context(), vars["id"], req.Pity); err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sharedservice.PityResponse{Pity: req.Pity})
}

// handleRemoveUser handles DELETE /users/{id}
func (h *LootHandlers) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.lootService.RemoveUser(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFindGear handles GET /search/gear?item=
func (h *LootHandlers) handleFindGear(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("item")
	if term == "" {
		api.WriteBadRequest(w, "Query parameter 'item' is required")
		return
	}

	matches, err := h.reportService.FindByItemSubstring(r.Context(), term)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, matches)
}

// handleFindBonusLoot handles GET /search/bonusloot?item=
func (h *LootHandlers) handleFindBonusLoot(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("item")
	if term == "" {
		api.WriteBadRequest(w, "Query parameter 'item' is required")
		return
	}

	matches, err := h.reportService.FindByBonusLootSubstring(r.Context(), term)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, matches)
}

// handleGuildTotals handles GET /reports/guild-totals
func (h *LootHandlers) handleGuildTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.reportService.GuildTotals(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, totals)
}

// handleAdminIDs handles GET /config/admins
func (h *LootHandlers) handleAdminIDs(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, sharedservice.AdminIDsResponse{IDs: h.lootService.AdminIDs()})
}

// handleReloadAdmins handles POST /config/admins/reload
func (h *LootHandlers) handleReloadAdmins(w http.ResponseWriter, r *http.Request) {
	ids, err := h.lootService.ReloadAdmins(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sharedservice.AdminIDsResponse{IDs: ids})
}
