package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/akarl/annoq/pkg/models"
)

// The methods below are the two write families a review session dispatches on
// submit. The commentID on trace/thread comment updates is what addresses the
// comment; the item ID is accepted for interface symmetry.

func (c *Client) CreateTraceComment(ctx context.Context, traceID, text string) error {
	return c.doJSON(ctx, http.MethodPost, "/traces/"+url.PathEscape(traceID)+"/comments",
		map[string]string{"text": text}, nil)
}

func (c *Client) UpdateTraceComment(ctx context.Context, commentID, traceID, text string) error {
	return c.doJSON(ctx, http.MethodPatch, "/comments/"+url.PathEscape(commentID),
		map[string]string{"text": text}, nil)
}

func (c *Client) DeleteTraceComments(ctx context.Context, traceID string, ids []string) error {
	return c.doJSON(ctx, http.MethodPost, "/traces/"+url.PathEscape(traceID)+"/comments/delete",
		map[string][]string{"ids": ids}, nil)
}

func (c *Client) SetTraceScore(ctx context.Context, traceID string, update models.ScoreUpdate) error {
	return c.doJSON(ctx, http.MethodPut, "/traces/"+url.PathEscape(traceID)+"/scores", update, nil)
}

func (c *Client) DeleteTraceScore(ctx context.Context, traceID, name string) error {
	return c.doJSON(ctx, http.MethodDelete,
		"/traces/"+url.PathEscape(traceID)+"/scores?name="+url.QueryEscape(name), nil, nil)
}

func (c *Client) CreateThreadComment(ctx context.Context, threadID, text string) error {
	return c.doJSON(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/comments",
		map[string]string{"text": text}, nil)
}

func (c *Client) UpdateThreadComment(ctx context.Context, commentID, threadID, text string) error {
	return c.doJSON(ctx, http.MethodPatch, "/comments/"+url.PathEscape(commentID),
		map[string]string{"text": text}, nil)
}

func (c *Client) DeleteThreadComments(ctx context.Context, threadID string, ids []string) error {
	return c.doJSON(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/comments/delete",
		map[string][]string{"ids": ids}, nil)
}

func (c *Client) SetThreadScore(ctx context.Context, threadID string, update models.ScoreUpdate) error {
	return c.doJSON(ctx, http.MethodPut, "/threads/"+url.PathEscape(threadID)+"/scores", update, nil)
}

func (c *Client) DeleteThreadScores(ctx context.Context, threadID string, names []string) error {
	return c.doJSON(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/scores/delete",
		map[string][]string{"names": names}, nil)
}
