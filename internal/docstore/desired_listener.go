package docstore

import (
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/pincache"
)

// ApplyFunc drives a pin to its new desired value, e.g. the
// controller's locked HAL write. The listener has already updated the
// pin's desired and last_remote values before calling it; the
// controller's implementation updates the cached hardware value only
// after a successful HAL write. On error the listener logs and
// continues with the next pin in the snapshot.
type ApplyFunc func(pin int, desired bool) error

// DesiredListener subscribes to the device document and, on every
// snapshot, applies gpioState.*.state changes to the cache and the
// HAL. Schedule-driven writes to hardware_state/last_hardware_read
// never appear here because this listener only reads "state", never
// "hardware_state" — this is the reason last_remote is tracked
// separately from hardware (spec §4.3.1).
type DesiredListener struct {
	client *Client
	cache  *pincache.Cache
	apply  ApplyFunc
	logger *zap.Logger
}

func NewDesiredListener(client *Client, cache *pincache.Cache, apply ApplyFunc, logger *zap.Logger) *DesiredListener {
	return &DesiredListener{client: client, cache: cache, apply: apply, logger: logger}
}

// Start subscribes to the "desired" topic. Safe to call once.
func (l *DesiredListener) Start() error {
	return l.client.Subscribe("desired", l.onSnapshot)
}

func (l *DesiredListener) onSnapshot(payload []byte) {
	if len(payload) == 0 {
		return
	}

	var snapshot map[string]PinDoc
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		l.logger.Warn("desired-state snapshot has malformed schema, skipping delivery", zap.Error(err))
		return
	}

	for key, doc := range snapshot {
		pin, err := strconv.Atoi(key)
		if err != nil {
			l.logger.Warn("desired-state snapshot has non-integer pin key, skipping entry", zap.String("key", key))
			continue
		}

		st, ok := l.cache.Get(pin)
		if !ok {
			continue
		}
		if doc.State == st.LastRemote {
			continue
		}

		l.cache.SetLastRemote(pin, doc.State)
		l.cache.SetDesired(pin, doc.State)

		if err := l.apply(pin, doc.State); err != nil {
			l.logger.Error("failed to apply desired state to hardware",
				zap.Int("pin", pin), zap.Error(err))
		}
	}
}
