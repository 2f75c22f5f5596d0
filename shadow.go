package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"i4.energy/across/uwmodem/modem"
)

// RedisShadow stores the modem health in the hash uwmodem:shadow:<id>. The
// hash expires when the daemon stops refreshing it.
type RedisShadow struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisShadow(client *redis.Client, id int, ttl time.Duration) *RedisShadow {
	return &RedisShadow{
		client: client,
		key:    fmt.Sprintf("uwmodem:shadow:%d", id),
		ttl:    ttl,
	}
}

// Store implements ShadowStore
func (r *RedisShadow) Store(ctx context.Context, h modem.Health) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, healthFields(h, time.Now()))
		pipe.Expire(ctx, r.key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store shadow %s: %w", r.key, err)
	}
	return nil
}

func healthFields(h modem.Health, now time.Time) map[string]any {
	return map[string]any{
		"running":            strconv.FormatBool(h.Running),
		"modem_state":        h.ModemState,
		"transmission_state": h.TransmissionState,
		"tx_mode":            h.TxMode,
		"ack_mode":           strconv.FormatBool(h.AckMode),
		"seq":                int(h.Seq),
		"queued":             h.Queued,
		"rx_packets":         h.RxPackets,
		"rx_errored":         h.RxErrored,
		"rx_failed":          h.RxFailed,
		"rx_filtered":        h.RxFiltered,
		"tx_packets":         h.TxPackets,
		"tx_failed":          h.TxFailed,
		"retransmissions":    h.Retransmissions,
		"forced_resets":      h.ForcedResets,
		"discarded_bytes":    h.DiscardedBytes,
		"ts":                 now.Unix(),
	}
}
