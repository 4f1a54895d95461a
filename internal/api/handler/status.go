package handler

import (
	"net/http"

	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"go.uber.org/zap"
)

// HandleStatus reports the indexing cursor.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	progress, err := h.Store.Progress(r.Context())
	if err != nil {
		h.Logger.Error("failed to read progress", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp := map[string]any{
		"schemaVersion":   models.SchemaVersion,
		"hasCursor":       progress.HasCursor,
		"cursor":          progress.Cursor,
		"lastEventId":     progress.LastEventID,
		"eventsProcessed": progress.EventsProcessed,
		"updatedAt":       progress.UpdatedAt,
	}
	if progress.LastEventID != "" {
		txHash, logIndex, err := ident.ParseEventID(progress.LastEventID)
		if err != nil {
			h.Logger.Error("stored event id unreadable", zap.String("event_id", progress.LastEventID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp["lastTransactionHash"] = txHash
		resp["lastLogIndex"] = logIndex
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleQueue returns stream statistics of the worker.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	if h.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "worker disabled")
		return
	}
	stats, err := h.Queue.QueueStats(r.Context())
	if err != nil {
		h.Logger.Error("failed to read queue stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
