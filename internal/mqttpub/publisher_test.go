package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/muurk/ptzlink/internal/config"
	"github.com/muurk/ptzlink/internal/variables"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []published
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.messages...)
}

// Compile-time check
var _ variables.Publisher = (*Publisher)(nil)

func TestSetDefinitions_Retained(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, "studio/cam1")

	p.SetDefinitions([]variables.Definition{{ID: "tally_mode", Name: "Tally Mode"}})

	msgs := c.sent()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "studio/cam1/definitions" {
		t.Errorf("topic = %s", msgs[0].topic)
	}
	if !msgs[0].retained {
		t.Error("definitions should be retained")
	}

	var got DefinitionsMessage
	if err := json.Unmarshal(msgs[0].payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(got.Definitions) != 1 || got.Definitions[0].ID != "tally_mode" {
		t.Errorf("Definitions = %+v", got.Definitions)
	}
}

func TestSetDefinitions_EmptyIsArray(t *testing.T) {
	c := &fakeClient{}
	newPublisher(c, "cam").SetDefinitions(nil)

	msgs := c.sent()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(msgs[0].payload, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["definitions"]) != "[]" {
		t.Errorf("definitions = %s, want []", raw["definitions"])
	}
}

func TestSetValues(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, "cam")

	p.SetValues(map[string]string{})
	if len(c.sent()) != 0 {
		t.Fatal("empty update should not be published")
	}

	p.SetValues(map[string]string{"img_wdr": "off"})
	msgs := c.sent()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "cam/values" || msgs[0].retained {
		t.Errorf("topic = %s retained = %v", msgs[0].topic, msgs[0].retained)
	}
	var got ValuesMessage
	if err := json.Unmarshal(msgs[0].payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Values["img_wdr"] != "off" {
		t.Errorf("Values = %v", got.Values)
	}
}

func TestPublishErrorIsSwallowed(t *testing.T) {
	c := &fakeClient{err: errors.New("not connected")}
	p := newPublisher(c, "cam")

	p.SetValues(map[string]string{"a": "1"})
	p.SetValues(map[string]string{"a": "2"})

	if len(c.sent()) != 2 {
		t.Errorf("a failed publish should not stop later ones")
	}
}

func TestDefaultTopic(t *testing.T) {
	p := newPublisher(&fakeClient{}, "")
	if p.ValuesTopic() != "ptzlink/camera/values" {
		t.Errorf("ValuesTopic = %s", p.ValuesTopic())
	}
}

func TestClose(t *testing.T) {
	c := &fakeClient{}
	newPublisher(c, "cam").Close()
	if !c.disconnected {
		t.Error("Close did not disconnect")
	}
}

func TestConnect_NoBroker(t *testing.T) {
	_, err := Connect(context.Background(), config.MQTTConfig{})
	if !errors.Is(err, ErrNoBroker) {
		t.Errorf("Connect() error = %v, want ErrNoBroker", err)
	}
}
