package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectUserRegistered  = "user.registered"
	SubjectPasswordChanged = "user.password_changed"
)

type UserEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// Publisher emits user lifecycle events. A nil Publisher is valid and drops
// everything, so eventing stays optional.
type Publisher struct {
	nc  *nats.Conn
	log *zap.SugaredLogger
}

func NewPublisher(url string, log *zap.SugaredLogger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, log: log}, nil
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

func (p *Publisher) UserRegistered(userID, username string) {
	p.publish(SubjectUserRegistered, UserEvent{UserID: userID, Username: username})
}

func (p *Publisher) PasswordChanged(userID string) {
	p.publish(SubjectPasswordChanged, UserEvent{UserID: userID})
}

func (p *Publisher) publish(subject string, ev UserEvent) {
	if p == nil || p.nc == nil {
		return
	}
	b, _ := json.Marshal(ev)
	if err := p.nc.Publish(subject, b); err != nil {
		p.log.Warnw("event publish failed", "subject", subject, "error", err)
	}
}
