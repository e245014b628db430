package mqtt

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	connected   bool
	connects    int
	published   []published
	subscribed  map[string]paho.MessageHandler
	unsubscribe []string
	lock        sync.Mutex
}

func newFakeClient() *fakeClient {
	return &fakeClient{connected: true, subscribed: make(map[string]paho.MessageHandler)}
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Connect() paho.Token {
	c.connects++
	return &paho.DummyToken{}
}

func (c *fakeClient) Disconnect(uint) { c.connected = false }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.published = append(c.published, published{topic: topic, payload: payload.([]byte)})
	return &paho.DummyToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.subscribed[topic] = callback
	return &paho.DummyToken{}
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token {
	for topic := range filters {
		c.Subscribe(topic, 0, callback)
	}
	return &paho.DummyToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) paho.Token {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, topic := range topics {
		delete(c.subscribed, topic)
		c.unsubscribe = append(c.unsubscribe, topic)
	}
	return &paho.DummyToken{}
}

// deliver hands the message to one matching subscription, as a broker does
// for overlapping filters.
func (c *fakeClient) deliver(topic string, payload []byte) {
	c.lock.Lock()
	var handler paho.MessageHandler
	for pattern, h := range c.subscribed {
		if MatchTopic(topic, pattern) {
			handler = h
			break
		}
	}
	c.lock.Unlock()
	if handler != nil {
		handler(nil, &fakeMessage{topic: topic, payload: payload})
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}
