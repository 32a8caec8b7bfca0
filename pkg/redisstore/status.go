package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"sentinel/internals/modules/monitor"
	"sentinel/internals/modules/probe"
)

const statusKeyPrefix = "sentinel:status:"

func statusKey(id uuid.UUID) string {
	return statusKeyPrefix + id.String()
}

// StoreStatus mirrors a monitor's latest runtime status into a hash, so
// dashboards and sibling services can read it without touching the engine.
func (c *Client) StoreStatus(ctx context.Context, id uuid.UUID, st monitor.Status) error {
	return retry(ctx, 3, func() error {
		return c.rdb.HSet(ctx, statusKey(id), map[string]any{
			"state":           string(st.State),
			"last_check":      st.LastCheck.UnixMilli(),
			"last_transition": st.LastTransition.UnixMilli(),
			"latency_ms":      st.LastLatencyMs,
			"reason":          string(st.LastReason),
		}).Err()
	})
}

// GetStatus reads back a mirrored status. Returns ErrKeyNotFound when the
// monitor has never been cached.
func (c *Client) GetStatus(ctx context.Context, id uuid.UUID) (monitor.Status, error) {
	vals, err := c.rdb.HGetAll(ctx, statusKey(id)).Result()
	if err != nil {
		return monitor.Status{}, err
	}
	if len(vals) == 0 {
		return monitor.Status{}, ErrKeyNotFound
	}

	var st monitor.Status
	st.State = monitor.State(vals["state"])
	st.LastReason = probe.Reason(vals["reason"])
	if ms, err := strconv.ParseInt(vals["last_check"], 10, 64); err == nil {
		st.LastCheck = time.UnixMilli(ms)
	}
	if ms, err := strconv.ParseInt(vals["last_transition"], 10, 64); err == nil {
		st.LastTransition = time.UnixMilli(ms)
	}
	if n, err := strconv.ParseInt(vals["latency_ms"], 10, 64); err == nil {
		st.LastLatencyMs = n
	}
	return st, nil
}

func (c *Client) DelStatus(ctx context.Context, id uuid.UUID) error {
	return retry(ctx, 3, func() error {
		return c.rdb.Del(ctx, statusKey(id)).Err()
	})
}
