package events

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessage_KeepsPublishedID(t *testing.T) {
	msg := nats.NewMsg(ReservationCreated)
	msg.Data = []byte(`{"reservation_id":"r1","user_id":"u1","occurred_at":"2026-01-02T03:04:05Z"}`)
	msg.Header.Set(msgIDHeader, "evt-1")

	m := toMessage(msg)

	assert.Equal(t, "evt-1", m.ID)
	assert.Equal(t, ReservationCreated, m.Subject)

	var ev ReservationEvent
	require.NoError(t, m.Decode(&ev))
	assert.Equal(t, "r1", ev.ReservationID)
	assert.Equal(t, "u1", ev.UserID)
}

func TestToMessage_GeneratesMissingID(t *testing.T) {
	m := toMessage(&nats.Msg{Subject: UserRegistered, Data: []byte(`{}`)})
	assert.NotEmpty(t, m.ID)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), UserRegistered, UserRegisteredEvent{UserID: "u"}))
	assert.NoError(t, p.Close())
}
