package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/model"
	"github.com/showza/showza-server/internal/notify"
)

// UserDirectory lists mirrored users for new-show alert fan-out, satisfied
// by repository.UserRepo.
type UserDirectory interface {
	ListAll(ctx context.Context) ([]model.User, error)
}

// Consumer is the notification worker.  It connects to RabbitMQ, declares
// the durable event queues and turns events into emails.  A mail failure is
// logged and the message is rejected without requeue so one bad recipient
// cannot wedge the queue; booking state is never affected.
type Consumer struct {
	url    string
	mailer notify.Mailer
	users  UserDirectory
	log    *logrus.Logger
}

// NewConsumer constructs the notification worker.
func NewConsumer(url string, mailer notify.Mailer, users UserDirectory, log *logrus.Logger) *Consumer {
	return &Consumer{url: url, mailer: mailer, users: users, log: log}
}

// Run consumes both queues until ctx is cancelled, reconnecting with capped
// exponential backoff after broker failures.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("notification-worker: dial failed, retrying in %s", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(ctx, conn); err != nil {
			_ = conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.WithError(err).Warn("notification-worker: consume loop ended, reconnecting")
			time.Sleep(2 * time.Second)
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.WithError(err).Warn("notification-worker: set QoS failed")
	}

	// A dropped connection closes the per-queue delivery streams without any
	// error surfacing here, so watch the connection itself: NotifyClose turns
	// the drop into a returned error, which sends Run back into its
	// reconnect loop.
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))

	deliveries := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)
	var forwarders sync.WaitGroup
	for _, name := range []string{BookingConfirmedQueue, ShowAddedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		forwarders.Add(1)
		go forwardDeliveries(msgs, deliveries, done, &forwarders)
	}
	go func() {
		forwarders.Wait()
		close(deliveries)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-connClosed:
			if amqpErr != nil {
				return fmt.Errorf("connection lost: %w", amqpErr)
			}
			return errors.New("connection closed")
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery streams ended")
			}
			if err := c.handle(ctx, d); err != nil {
				c.log.WithError(err).Error("notification-worker: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// forwardDeliveries drains one per-queue stream into the merged channel.  It
// exits when the stream closes (broker teardown) or when done closes (loop
// teardown), so no forwarder outlives its consume loop.
func forwardDeliveries(msgs <-chan amqp.Delivery, out chan<- amqp.Delivery, done <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	for d := range msgs {
		select {
		case out <- d:
		case <-done:
			return
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case BookingConfirmedQueue:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return fmt.Errorf("unmarshal booking confirmed: %w", err)
		}
		return c.sendConfirmation(ev)
	case ShowAddedQueue:
		var ev ShowAddedEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			return fmt.Errorf("unmarshal show added: %w", err)
		}
		return c.sendNewShowAlerts(ctx, ev)
	default:
		return fmt.Errorf("unknown queue %q", d.RoutingKey)
	}
}

// sendConfirmation renders the ticket QR and mails the confirmation.
func (c *Consumer) sendConfirmation(ev BookingConfirmedEvent) error {
	code := notify.VerificationCode(ev.BookingID)
	png, err := notify.RenderTicketQR(notify.TicketPayload{
		BookingID:        ev.BookingID,
		MovieTitle:       ev.MovieTitle,
		ShowDate:         ev.ShowDateTime,
		Seats:            ev.Seats,
		UserName:         ev.UserName,
		UserEmail:        ev.UserEmail,
		AmountCents:      ev.AmountCents,
		VerificationCode: code,
	})
	if err != nil {
		return err
	}
	subject, body := notify.ConfirmationEmail(ev.UserName, ev.MovieTitle, code, ev.ShowDateTime, ev.Seats, ev.AmountCents)
	if err := c.mailer.Send(notify.Message{
		To:      ev.UserEmail,
		Subject: subject,
		HTML:    body,
		Attachments: []notify.Attachment{
			{Filename: "ticket-qrcode.png", Content: png, ContentID: "qrcode"},
		},
	}); err != nil {
		return fmt.Errorf("send confirmation to %s: %w", ev.UserEmail, err)
	}
	c.log.WithFields(logrus.Fields{"booking_id": ev.BookingID, "to": ev.UserEmail}).
		Info("notification-worker: confirmation sent")
	return nil
}

// sendNewShowAlerts mails every mirrored user.  Per-recipient failures are
// counted and logged; they never abort the remaining sends, and the message
// is acked regardless so the fan-out is not redelivered to users who
// already got theirs.
func (c *Consumer) sendNewShowAlerts(ctx context.Context, ev ShowAddedEvent) error {
	users, err := c.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	sent, failed := 0, 0
	for _, u := range users {
		subject, body := notify.NewShowEmail(u.Name, ev.MovieTitle)
		if err := c.mailer.Send(notify.Message{To: u.Email, Subject: subject, HTML: body}); err != nil {
			failed++
			c.log.WithError(err).WithField("to", u.Email).Warn("notification-worker: new-show alert failed")
			continue
		}
		sent++
	}
	c.log.WithFields(logrus.Fields{"movie": ev.MovieTitle, "sent": sent, "failed": failed}).
		Info("notification-worker: new-show alerts dispatched")
	return nil
}
