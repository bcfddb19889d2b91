package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"evote/internal/errs"
	"evote/internal/ports"
)

const DefaultSubject = "evote.results.published"

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes one message per voter; a mail or SMS relay subscribed to
// the subject does the actual delivery.
type NATSNotifier struct {
	pub     Publisher
	subject string
}

var _ ports.Notifier = (*NATSNotifier)(nil)

func NewNATSNotifier(pub Publisher, subject string) (*NATSNotifier, error) {
	if pub == nil {
		return nil, errors.New("nats publisher is required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{pub: pub, subject: subject}, nil
}

// Connect dials the NATS server used by NATSNotifier. An unreachable server is
// retried in the background, so commands that never notify still start.
func Connect(url string, clientName string) (*nats.Conn, error) {
	if strings.TrimSpace(url) == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	return conn, nil
}

type resultMessage struct {
	VoterID   string            `json:"voter_id"`
	FullName  string            `json:"full_name"`
	Contact   string            `json:"contact"`
	EventID   string            `json:"event_id"`
	Title     string            `json:"title"`
	ClosedAt  time.Time         `json:"closed_at"`
	Positions []positionMessage `json:"positions"`
}

type positionMessage struct {
	Position string   `json:"position"`
	Winners  []string `json:"winners"`
	Votes    int64    `json:"votes"`
}

func (n *NATSNotifier) Notify(ctx context.Context, voter ports.VoterContact, event ports.EventSummary, result ports.ResultSummary) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	data, err := json.Marshal(newResultMessage(voter, event, result))
	if err != nil {
		return errs.Wrap(err, "encode result message")
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return errs.Wrapf(err, "publish to %s", n.subject)
	}
	return nil
}

func newResultMessage(voter ports.VoterContact, event ports.EventSummary, result ports.ResultSummary) resultMessage {
	msg := resultMessage{
		VoterID:   voter.VoterID,
		FullName:  voter.FullName,
		Contact:   voter.Contact,
		EventID:   event.EventID,
		Title:     event.Title,
		ClosedAt:  event.ClosedAt,
		Positions: make([]positionMessage, 0, len(result.Positions)),
	}
	for _, position := range result.Positions {
		msg.Positions = append(msg.Positions, positionMessage{
			Position: position.Position,
			Winners:  append([]string(nil), position.Winners...),
			Votes:    position.Votes,
		})
	}
	return msg
}
