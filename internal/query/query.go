// Package query evaluates declarative read queries over the entity store.
package query

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/canopy-network/course-indexer/pkg/db"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidQuery marks a query that does not fit the schema.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound is returned by Get for a missing document.
	ErrNotFound = errors.New("not found")
)

const (
	DefaultFirst = 100
	OrderAsc     = "asc"
	OrderDesc    = "desc"
)

// Op is a comparison operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpIn       Op = "in"
	OpContains Op = "contains"
)

// Condition compares one top-level field with a value.
type Condition struct {
	Field string `json:"field" validate:"required"`
	Op    Op     `json:"op" validate:"required,oneof=eq neq gt gte lt lte in contains"`
	Value any    `json:"value"`
}

// Query selects, orders and pages one collection, optionally expanding relations.
type Query struct {
	Collection     string      `json:"collection" validate:"required"`
	Where          []Condition `json:"where" validate:"dive"`
	OrderBy        string      `json:"orderBy"`
	OrderDirection string      `json:"orderDirection" validate:"omitempty,oneof=asc desc"`
	First          int         `json:"first" validate:"gte=0"`
	Skip           int         `json:"skip" validate:"gte=0"`
	Include        []string    `json:"include"`
}

// Result is one page of a query.
type Result struct {
	Collection    string           `json:"collection"`
	SchemaVersion string           `json:"schemaVersion"`
	Total         int              `json:"total"`
	First         int              `json:"first"`
	Skip          int              `json:"skip"`
	Items         []map[string]any `json:"items"`
}

// Engine runs queries against a store. It only reads committed documents.
type Engine struct {
	store    db.Store
	maxFirst int
	validate *validator.Validate
}

// New creates an Engine. maxFirst caps the page size; 0 means DefaultFirst.
func New(store db.Store, maxFirst int) *Engine {
	if maxFirst <= 0 {
		maxFirst = DefaultFirst
	}
	return &Engine{
		store:    store,
		maxFirst: maxFirst,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Run evaluates q.
func (e *Engine) Run(ctx context.Context, q Query) (*Result, error) {
	def, err := e.check(q)
	if err != nil {
		return nil, err
	}

	raws, err := e.store.List(ctx, def.Name, pushdown(q.Where))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", def.Name, err)
	}

	items := make([]map[string]any, 0, len(raws))
	for _, raw := range raws {
		item, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", def.Name, err)
		}
		if matchAll(item, q.Where) {
			items = append(items, item)
		}
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	desc := q.OrderDirection == OrderDesc
	sort.SliceStable(items, func(i, j int) bool {
		c := compareValues(items[i][orderBy], items[j][orderBy])
		if c == 0 {
			c = compareValues(items[i]["id"], items[j]["id"])
		}
		if desc {
			return c > 0
		}
		return c < 0
	})

	first := q.First
	if first == 0 || first > e.maxFirst {
		first = e.maxFirst
	}
	total := len(items)
	page := paginate(items, q.Skip, first)

	for _, item := range page {
		if err := e.expand(ctx, def, item, q.Include); err != nil {
			return nil, err
		}
	}

	return &Result{
		Collection:    def.Name,
		SchemaVersion: models.SchemaVersion,
		Total:         total,
		First:         first,
		Skip:          q.Skip,
		Items:         page,
	}, nil
}

// Get returns one document by id with the requested relations expanded.
func (e *Engine) Get(ctx context.Context, collection, id string, include []string) (map[string]any, error) {
	def, ok := models.LookupCollection(collection)
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %q", ErrInvalidQuery, collection)
	}
	if err := checkIncludes(def, include); err != nil {
		return nil, err
	}

	raw, err := e.store.Get(ctx, def.Name, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	item, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	if err := e.expand(ctx, def, item, include); err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine) check(q Query) (models.CollectionDef, error) {
	if err := e.validate.Struct(q); err != nil {
		return models.CollectionDef{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	def, ok := models.LookupCollection(q.Collection)
	if !ok {
		return def, fmt.Errorf("%w: unknown collection %q", ErrInvalidQuery, q.Collection)
	}
	for _, c := range q.Where {
		if !def.HasField(c.Field) {
			return def, fmt.Errorf("%w: %s has no field %q", ErrInvalidQuery, def.Name, c.Field)
		}
		if c.Op == OpIn {
			if _, ok := c.Value.([]any); !ok {
				return def, fmt.Errorf("%w: %q needs a list value", ErrInvalidQuery, c.Op)
			}
		}
	}
	if q.OrderBy != "" && !def.HasField(q.OrderBy) {
		return def, fmt.Errorf("%w: %s has no field %q", ErrInvalidQuery, def.Name, q.OrderBy)
	}
	return def, checkIncludes(def, q.Include)
}

func checkIncludes(def models.CollectionDef, include []string) error {
	for _, name := range include {
		if _, ok := def.Relation(name); !ok {
			return fmt.Errorf("%w: %s has no relation %q", ErrInvalidQuery, def.Name, name)
		}
	}
	return nil
}

// expand replaces or adds one field per included relation. Includes are one level deep.
func (e *Engine) expand(ctx context.Context, def models.CollectionDef, item map[string]any, include []string) error {
	for _, name := range include {
		rel, _ := def.Relation(name)
		key, ok := item[rel.LocalField].(string)

		if !rel.Many {
			if !ok || key == "" {
				item[rel.Name] = nil
				continue
			}
			raw, err := e.store.Get(ctx, rel.Target, key)
			if errors.Is(err, db.ErrNotFound) {
				item[rel.Name] = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("include %s: %w", rel.Name, err)
			}
			related, err := decode(raw)
			if err != nil {
				return fmt.Errorf("include %s: %w", rel.Name, err)
			}
			item[rel.Name] = related
			continue
		}

		list := []map[string]any{}
		if ok && key != "" {
			raws, err := e.store.List(ctx, rel.Target, db.Filter{rel.ForeignField: key})
			if err != nil {
				return fmt.Errorf("include %s: %w", rel.Name, err)
			}
			for _, raw := range raws {
				related, err := decode(raw)
				if err != nil {
					return fmt.Errorf("include %s: %w", rel.Name, err)
				}
				list = append(list, related)
			}
		}
		item[rel.Name] = list
	}
	return nil
}

// pushdown hands the store the equality conditions it can evaluate exactly.
// Numbers stay in memory because stored amounts are strings.
func pushdown(where []Condition) db.Filter {
	filter := db.Filter{}
	for _, c := range where {
		if c.Op != OpEq {
			continue
		}
		switch v := c.Value.(type) {
		case bool:
			filter[c.Field] = v
		case string:
			if _, isNum := asNumber(v); !isNum {
				filter[c.Field] = v
			}
		}
	}
	return filter
}

func decode(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var item map[string]any
	if err := dec.Decode(&item); err != nil {
		return nil, err
	}
	return item, nil
}

func paginate(items []map[string]any, skip, first int) []map[string]any {
	if skip >= len(items) {
		return []map[string]any{}
	}
	items = items[skip:]
	if first < len(items) {
		items = items[:first]
	}
	return items
}
