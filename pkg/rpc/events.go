package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	headPath   = "/v1/head"
	eventsPath = "/v1/events"

	// DefaultPerPage is the page size requested from the events endpoint.
	DefaultPerPage = 500
)

// Head is the latest block known to the event source.
type Head struct {
	BlockNumber    uint64 `json:"blockNumber"`
	BlockTimestamp int64  `json:"blockTimestamp"`
}

// EventsRequest selects the events of an inclusive block range.
type EventsRequest struct {
	FromBlock  uint64 `json:"fromBlock"`
	ToBlock    uint64 `json:"toBlock"`
	PageNumber int    `json:"pageNumber,omitempty"`
	PerPage    int    `json:"perPage,omitempty"`
}

// ChainHead returns the latest block of the event source.
func (c *HTTPClient) ChainHead(ctx context.Context) (Head, error) {
	var resp Head
	if err := c.doJSON(ctx, http.MethodGet, headPath, nil, &resp); err != nil {
		return Head{}, err
	}
	return resp, nil
}

// EventsInRange returns the raw event envelopes of blocks [from, to] in source order.
func (c *HTTPClient) EventsInRange(ctx context.Context, from, to uint64) ([]json.RawMessage, error) {
	if to < from {
		return nil, fmt.Errorf("invalid range %d..%d", from, to)
	}
	return listPaged[json.RawMessage](ctx, c, eventsPath, EventsRequest{FromBlock: from, ToBlock: to, PerPage: DefaultPerPage})
}

// pageResp is the response for a paged query.
type pageResp[T any] struct {
	PageNumber int `json:"pageNumber"`
	PerPage    int `json:"perPage"`
	Results    []T `json:"results"`
	Count      int `json:"count"`
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
}

// listPaged lists all pages of a given path. Pages after the first are fetched
// concurrently and reassembled in page order.
func listPaged[T any](ctx context.Context, c *HTTPClient, path string, args EventsRequest) ([]T, error) {
	args.PageNumber = 1
	var first pageResp[T]
	if err := c.doJSON(ctx, http.MethodPost, path, args, &first); err != nil {
		return nil, err
	}
	if first.TotalPages <= 1 {
		return first.Results, nil
	}

	type res struct {
		page  int
		items []T
		err   error
	}
	ch := make(chan res, first.TotalPages-1)
	for p := 2; p <= first.TotalPages; p++ {
		go func(page int) {
			var pr pageResp[T]
			req := args
			req.PageNumber = page
			if err := c.doJSON(ctx, http.MethodPost, path, req, &pr); err != nil {
				ch <- res{page: page, err: err}
				return
			}
			ch <- res{page: page, items: pr.Results}
		}(p)
	}

	pages := make([][]T, first.TotalPages+1)
	pages[1] = first.Results
	var firstErr error
	for i := 0; i < first.TotalPages-1; i++ {
		r := <-ch
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("page %d: %w", r.page, r.err)
		}
		pages[r.page] = r.items
	}
	if firstErr != nil {
		return nil, firstErr
	}

	n := 0
	for _, items := range pages[1:] {
		n += len(items)
	}
	all := make([]T, 0, n)
	for _, items := range pages[1:] {
		all = append(all, items...)
	}
	return all, nil
}
