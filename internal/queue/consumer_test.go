package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showza/showza-server/internal/model"
	"github.com/showza/showza-server/internal/notify"
)

type recordingMailer struct {
	mu      sync.Mutex
	sent    []notify.Message
	failFor map[string]bool
}

func (m *recordingMailer) Send(msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[msg.To] {
		return errors.New("smtp: recipient rejected")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type staticDirectory struct {
	users []model.User
}

func (d *staticDirectory) ListAll(context.Context) ([]model.User, error) {
	return d.users, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// The merged delivery channel must close once every per-queue stream ends;
// otherwise a broker disconnect (which closes the streams without an error)
// would leave the consume loop blocked forever instead of reconnecting.
func TestMergedDeliveriesCloseWhenStreamsEnd(t *testing.T) {
	streamA := make(chan amqp.Delivery)
	streamB := make(chan amqp.Delivery)
	deliveries := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)

	var wg sync.WaitGroup
	wg.Add(2)
	go forwardDeliveries(streamA, deliveries, done, &wg)
	go forwardDeliveries(streamB, deliveries, done, &wg)
	go func() {
		wg.Wait()
		close(deliveries)
	}()

	go func() {
		streamA <- amqp.Delivery{RoutingKey: ShowAddedQueue}
		close(streamA)
		close(streamB)
	}()

	var received int
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-deliveries:
			if !ok {
				assert.Equal(t, 1, received)
				return
			}
			received++
		case <-deadline:
			t.Fatal("merged channel never closed after streams ended")
		}
	}
}

// A forwarder stuck sending into the merged channel must exit on teardown
// rather than leak.
func TestForwarderExitsOnTeardown(t *testing.T) {
	stream := make(chan amqp.Delivery, 1)
	deliveries := make(chan amqp.Delivery) // nobody reads
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go forwardDeliveries(stream, deliveries, done, &wg)
	stream <- amqp.Delivery{}

	close(done)

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder leaked past teardown")
	}
}

func TestHandleBookingConfirmedSendsTicketEmail(t *testing.T) {
	mailer := &recordingMailer{}
	c := NewConsumer("amqp://unused", mailer, &staticDirectory{}, quietLogger())

	ev := BookingConfirmedEvent{
		BookingID:    "f47ac10b-58cc-4372-a567-0b129d2c4e8a",
		UserName:     "Maya",
		UserEmail:    "maya@example.com",
		MovieTitle:   "Arrival",
		ShowDateTime: time.Date(2026, 3, 16, 19, 30, 0, 0, time.UTC),
		Seats:        []string{"A1", "A2"},
		AmountCents:  2000,
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), amqp.Delivery{
		RoutingKey: BookingConfirmedQueue,
		Body:       body,
	}))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "maya@example.com", msg.To)
	assert.Contains(t, msg.HTML, "SZ-9D2C4E8A")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "qrcode", msg.Attachments[0].ContentID)
}

func TestHandleShowAddedFansOutIndependently(t *testing.T) {
	mailer := &recordingMailer{failFor: map[string]bool{"omar@example.com": true}}
	users := &staticDirectory{users: []model.User{
		{ID: "u1", Name: "Maya", Email: "maya@example.com"},
		{ID: "u2", Name: "Omar", Email: "omar@example.com"},
		{ID: "u3", Name: "Lena", Email: "lena@example.com"},
	}}
	c := NewConsumer("amqp://unused", mailer, users, quietLogger())

	body, err := json.Marshal(ShowAddedEvent{MovieTitle: "Arrival"})
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), amqp.Delivery{
		RoutingKey: ShowAddedQueue,
		Body:       body,
	}))

	// One bad recipient never blocks the rest of the fan-out.
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "maya@example.com", mailer.sent[0].To)
	assert.Equal(t, "lena@example.com", mailer.sent[1].To)
}

func TestHandleRejectsUnknownQueue(t *testing.T) {
	c := NewConsumer("amqp://unused", &recordingMailer{}, &staticDirectory{}, quietLogger())
	err := c.handle(context.Background(), amqp.Delivery{RoutingKey: "mystery"})
	assert.Error(t, err)
}
