package mantadmin

import (
	"context"
	"fmt"
	"time"
)

// Recommend returns records similar to a reference id, vector or text.
func (c *Client) Recommend(ctx context.Context, req RecommendRequest) (_ RecommendResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("recommend", req.Table, start, err) }()

	resp, err := c.recommendSvc.Recommend(ctx, req)
	if err != nil {
		return RecommendResponse{}, fmt.Errorf("recommend %s: %w", req.Table, err)
	}
	return resp, nil
}
