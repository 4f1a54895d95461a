package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/canopy-network/course-indexer/internal/query"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// reserved list parameters; every other parameter is a condition.
var listParams = map[string]bool{
	"first": true, "skip": true, "orderBy": true, "orderDirection": true, "include": true,
}

// HandleQuery evaluates a JSON query body.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var q query.Query
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&q); err != nil {
		h.Logger.Warn("bad json in query request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	for i := range q.Where {
		q.Where[i].Value = normalizeValue(q.Where[i].Value)
	}
	h.runQuery(w, r, q)
}

// HandleList lists a collection. Conditions come from the query string as
// field=value (equality) or field.op=value; in takes a comma separated list.
//
//	GET /api/v1/courses?creator=0xab..&totalRevenue.gt=100&orderBy=totalRevenue&orderDirection=desc&include=sections
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := query.Query{
		Collection:     mux.Vars(r)["collection"],
		OrderBy:        params.Get("orderBy"),
		OrderDirection: params.Get("orderDirection"),
		Include:        splitList(params.Get("include")),
	}

	var err error
	if q.First, err = intParam(params.Get("first")); err != nil {
		writeError(w, http.StatusBadRequest, "first must be an integer")
		return
	}
	if q.Skip, err = intParam(params.Get("skip")); err != nil {
		writeError(w, http.StatusBadRequest, "skip must be an integer")
		return
	}

	for key, values := range params {
		if listParams[key] {
			continue
		}
		field, op, found := strings.Cut(key, ".")
		if !found {
			op = string(query.OpEq)
		}
		for _, v := range values {
			cond := query.Condition{Field: field, Op: query.Op(op), Value: paramValue(v)}
			if cond.Op == query.OpIn {
				var list []any
				for _, item := range splitList(v) {
					list = append(list, paramValue(item))
				}
				cond.Value = list
			}
			q.Where = append(q.Where, cond)
		}
	}

	h.runQuery(w, r, q)
}

// HandleGet returns one entity, with ?include=a,b expanding relations.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	item, err := h.Engine.Get(r.Context(), vars["collection"], normalizeID(vars["id"]), splitList(r.URL.Query().Get("include")))
	switch {
	case errors.Is(err, query.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, query.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.Logger.Error("failed to get entity",
			zap.String("collection", vars["collection"]),
			zap.String("id", vars["id"]),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, item)
	}
}

// HandleSchema describes every collection with its fields and relations.
func (h *Handler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":     models.SchemaVersion,
		"collections": models.Collections(),
	})
}

// HandleAuditGaps lists the administrative parameters without an event trail.
func (h *Handler) HandleAuditGaps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.AuditGaps)
}

func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request, q query.Query) {
	res, err := h.Engine.Run(r.Context(), q)
	if errors.Is(err, query.ErrInvalidQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.Logger.Error("failed to run query", zap.String("collection", q.Collection), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// paramValue turns true/false into booleans and lowercases hex values; the
// query engine compares numeric strings numerically.
func paramValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return normalizeID(s)
}

// normalizeValue lower-cases hex strings in a condition value, including the
// members of an in list, to match the stored addresses and hashes.
func normalizeValue(v any) any {
	switch v := v.(type) {
	case string:
		return normalizeID(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	}
	return v
}

func normalizeID(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strings.ToLower(s)
	}
	return s
}
