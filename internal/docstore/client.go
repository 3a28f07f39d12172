package docstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lattice-iot/gpio-bridge/internal/bridgeerr"
)

// Client wraps a paho MQTT connection with the document-store
// operations the rest of the bridge depends on: set/update/get/delete
// and snapshot-shaped subscriptions. The broker connection standing in
// for the cloud document store's wire protocol (spec §1's "assume it
// provides set/update/get/delete and on_snapshot").
type Client struct {
	serial string
	opts   *mqtt.ClientOptions
	client mqtt.Client
	logger *zap.Logger

	rpcTimeout time.Duration

	pendingMu sync.Mutex
	pending   map[string]chan []byte
}

// NewClient builds a Client for the given broker URL and device
// identity. The connection is not established until Connect is called.
func NewClient(brokerURL, clientID, hardwareSerial string, rpcTimeout time.Duration, logger *zap.Logger) *Client {
	c := &Client{
		serial:     hardwareSerial,
		logger:     logger,
		rpcTimeout: rpcTimeout,
		pending:    make(map[string]chan []byte),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID + "-" + hardwareSerial).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Second).
		SetMaxReconnectInterval(60 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("connected to document store broker", zap.String("hardware_serial", hardwareSerial))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("document store connection lost", zap.Error(err))
		})

	c.opts = opts
	return c
}

// Connect opens the broker connection. Reconnection after the initial
// connect is handled by paho's AutoReconnect (1s start, doubling, 60s
// cap is approximated by MaxReconnectInterval; paho does not expose a
// configurable growth factor, so this is the closest match to spec
// §4.3's backoff policy available from the library).
func (c *Client) Connect() error {
	c.client = mqtt.NewClient(c.opts)
	token := c.client.Connect()
	if !token.WaitTimeout(c.rpcTimeout) {
		return bridgeerr.TransientRPC("timed out connecting to document store", nil)
	}
	if err := token.Error(); err != nil {
		return bridgeerr.TransientRPC("failed to connect to document store", err)
	}
	return nil
}

// Disconnect closes the broker connection, waiting up to 250ms to
// flush in-flight publishes.
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

func (c *Client) topic(suffix string) string {
	return fmt.Sprintf("devices/%s/%s", c.serial, suffix)
}

// Set publishes a retained document at the given sub-path, matching
// the external "set(path, data, merge=false)" contract: the payload
// becomes the entire retained value for the topic.
func (c *Client) Set(subPath string, doc any) error {
	return c.publish(c.topic(subPath), doc, true)
}

// Update publishes a retained document representing a partial update.
// This repository's MQTT transport has no native partial-merge
// primitive, so callers are expected to read-modify-write: Update is
// semantically identical to Set here and exists to keep the call sites
// matching the external collaborator contract in spec §6.
func (c *Client) Update(subPath string, doc any) error {
	return c.publish(c.topic(subPath), doc, true)
}

// MutateDevice implements the read-modify-write pattern Update's own
// contract requires of its callers: it fetches the current device
// document from "state", lets fn mutate it in place, and republishes
// the result. GPIOState is never nil when fn runs. There is no
// compare-and-swap here, matching spec §5's "last writer wins" note —
// two concurrent MutateDevice calls can still race, same as two
// concurrent Set calls would.
func (c *Client) MutateDevice(fn func(*DeviceDoc)) error {
	var device DeviceDoc
	if err := c.Get("state", &device); err != nil {
		return err
	}
	if device.GPIOState == nil {
		device.GPIOState = map[string]PinDoc{}
	}

	fn(&device)

	return c.Update("state", device)
}

// Delete clears a retained topic by publishing a zero-length retained
// payload, the standard MQTT idiom for "remove this retained message".
func (c *Client) Delete(subPath string) error {
	token := c.client.Publish(c.topic(subPath), 1, true, []byte{})
	if !token.WaitTimeout(c.rpcTimeout) {
		return bridgeerr.TransientRPC("timed out deleting "+subPath, nil)
	}
	return token.Error()
}

func (c *Client) publish(topic string, doc any, retained bool) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return bridgeerr.DocumentSchema("failed to marshal document: " + err.Error())
	}

	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(c.rpcTimeout) {
		return bridgeerr.TransientRPC("timed out publishing to "+topic, nil)
	}
	return token.Error()
}

// Get issues a request/reply call over a correlation-ID response
// topic, modeled on the donor's pending-command map keyed by request
// ID with a channel per in-flight call and a select/time.After
// timeout.
func (c *Client) Get(subPath string, out any) error {
	correlationID := uuid.NewString()
	respTopic := c.topic("rpc/" + correlationID)

	respCh := make(chan []byte, 1)
	c.pendingMu.Lock()
	c.pending[correlationID] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, correlationID)
		c.pendingMu.Unlock()
	}()

	subToken := c.client.Subscribe(respTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		c.pendingMu.Lock()
		ch, ok := c.pending[correlationID]
		c.pendingMu.Unlock()
		if ok {
			select {
			case ch <- msg.Payload():
			default:
			}
		}
	})
	if !subToken.WaitTimeout(c.rpcTimeout) {
		return bridgeerr.TransientRPC("timed out subscribing to rpc response topic", nil)
	}
	defer c.client.Unsubscribe(respTopic)

	req := map[string]string{"path": subPath, "reply_to": respTopic}
	if err := c.publish(c.topic("rpc/request"), req, false); err != nil {
		return err
	}

	select {
	case payload := <-respCh:
		if len(payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return bridgeerr.DocumentSchema("failed to decode get() response: " + err.Error())
		}
		return nil
	case <-time.After(c.rpcTimeout):
		return bridgeerr.TransientRPC(fmt.Sprintf("get(%s) timed out", subPath), nil)
	}
}

// Subscribe registers a handler for retained-snapshot delivery on a
// sub-path. The handler receives the raw payload on every delivery.
// The broker delivers the topic's retained snapshot when the
// subscription is made, which gives on_snapshot its initial full
// snapshot. Subscriptions are not reissued after a reconnect: the
// session is persistent (clean session off), so the broker resumes the
// existing subscription and the retained snapshot is not delivered
// again.
func (c *Client) Subscribe(subPath string, handler func(payload []byte)) error {
	topic := c.topic(subPath)
	token := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(c.rpcTimeout) {
		return bridgeerr.TransientRPC("timed out subscribing to "+topic, nil)
	}
	return token.Error()
}
