package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/skilllink/skilllink/internal/model"
)

// ListOptions returns a question's options ordered by index. When the primary
// endpoint answers 404 or 500 the debug view is tried; a 404 there means the
// question has no options. Every other failure is returned.
func (c *Client) ListOptions(ctx context.Context, questionID int64) ([]model.Option, error) {
	var opts []model.Option
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/opciones/pregunta/%d", questionID), nil, &opts)
	if err == nil {
		return opts, nil
	}
	status := StatusOf(err)
	if status != http.StatusNotFound && status != http.StatusInternalServerError {
		return nil, err
	}
	slog.Debug("primary options endpoint failed, trying debug view", "question", questionID, "status", status)

	var view struct {
		Options []model.Option `json:"opciones"`
	}
	ferr := c.do(ctx, http.MethodGet, fmt.Sprintf("/opciones/debug/pregunta/%d", questionID), nil, &view)
	if StatusOf(ferr) == http.StatusNotFound {
		return []model.Option{}, nil
	}
	if ferr != nil {
		return nil, errors.Join(err, fmt.Errorf("debug options: %w", ferr))
	}
	if view.Options == nil {
		view.Options = []model.Option{}
	}
	return view.Options, nil
}
