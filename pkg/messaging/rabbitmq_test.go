package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	key  string
	msgs []amqp.Publishing
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.key = key
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestPublisherPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "sms_events", nil)

	require.NoError(t, p.Publish(context.Background(), "otp.sms", map[string]string{"to": "9876543210"}))
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "sms_events", ch.key)
	assert.Equal(t, "otp.sms", ch.msgs[0].Type)
	assert.Equal(t, amqp.Persistent, ch.msgs[0].DeliveryMode)

	var body map[string]string
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &body))
	assert.Equal(t, "9876543210", body["to"])

	published, failed := p.Stats()
	assert.Equal(t, int64(1), published)
	assert.Zero(t, failed)
}

func TestPublisherPublishFailure(t *testing.T) {
	p := NewPublisher(&fakeChannel{err: errors.New("channel closed")}, "sms_events", nil)
	require.Error(t, p.Publish(context.Background(), "otp.sms", struct{}{}))
	_, failed := p.Stats()
	assert.Equal(t, int64(1), failed)
	require.NoError(t, p.Close())
}
