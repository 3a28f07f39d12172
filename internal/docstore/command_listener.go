package docstore

import (
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// CommandHandler consumes one claimed command. Implemented by the
// command processor.
type CommandHandler interface {
	HandleCommand(cmd CommandDoc)
}

// CommandListener subscribes to devices/{serial}/commands/+. Every
// message is one command; the command processor's own post-execution
// publish of a zero-length retained payload to the same topic is what
// clears it (spec §4.3.1) — there is no broker-side delete
// notification over MQTT, so REMOVE is not separately observable here.
type CommandListener struct {
	client  *Client
	handler CommandHandler
	logger  *zap.Logger

	dedupMu sync.Mutex
	dedup   *lru.Cache[string, time.Time]
}

// NewCommandListener builds a listener with a bounded (capacity 256)
// de-dup set, per spec §4.4.
func NewCommandListener(client *Client, handler CommandHandler, logger *zap.Logger) *CommandListener {
	cache, _ := lru.New[string, time.Time](256)
	return &CommandListener{client: client, handler: handler, logger: logger, dedup: cache}
}

func (l *CommandListener) Start() error {
	topic := l.client.topic("commands/+")
	token := l.client.client.Subscribe(topic, 1, l.onMessage)
	if !token.WaitTimeout(l.client.rpcTimeout) {
		return nil
	}
	return token.Error()
}

func (l *CommandListener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if len(msg.Payload()) == 0 {
		// Our own clearing publish (zero-length retained payload);
		// ignore, it is not a new command.
		return
	}

	var cmd CommandDoc
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		l.logger.Warn("command document has malformed schema, ignoring", zap.Error(err))
		return
	}
	if cmd.ID == "" {
		l.logger.Warn("command document missing id, ignoring")
		return
	}

	l.dedupMu.Lock()
	_, seen := l.dedup.Get(cmd.ID)
	if !seen {
		l.dedup.Add(cmd.ID, time.Now())
	}
	l.dedupMu.Unlock()

	if seen {
		return
	}

	l.handler.HandleCommand(cmd)
}
