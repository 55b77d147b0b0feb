package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feetfit/internal/db"
)

type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]MessageHandler
	unsubscribed []string
	disconnected bool
	subErr       error
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, h MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return f.subErr
	}
	if f.handlers == nil {
		f.handlers = map[string]MessageHandler{}
	}
	f.handlers[topic] = h
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func (f *fakeSubscriber) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeSubscriber) handler(topic string) MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

type recorder struct {
	mu   sync.Mutex
	rows []db.SensorSample
	err  error
}

func (r *recorder) store(_ context.Context, rows []db.SensorSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, rows...)
	return nil
}

func TestDeviceFromTopic(t *testing.T) {
	dev, err := deviceFromTopic("gait/left-01/samples")
	require.NoError(t, err)
	assert.Equal(t, "left-01", dev)

	_, err = deviceFromTopic("gait/samples")
	assert.Error(t, err)
	_, err = deviceFromTopic("gait//samples")
	assert.Error(t, err)
}

func TestHandleMessageStoresBatch(t *testing.T) {
	rec := &recorder{}
	c := NewConsumer(&fakeSubscriber{}, "gait/+/samples", rec.store, 24*time.Hour, zap.NewNop())
	now := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	payload := []byte(`{"samples":[
		{"timestamp":"2025-06-05T11:59:59.990Z","accel_z":1,"angle_x":-12,"gyro_x":0,"accel_x":0,"accel_y":0,"gyro_y":0,"gyro_z":0,"angle_y":0,"angle_z":0},
		{"timestamp":"2025-06-05T11:59:59.995Z","device_mac":"AA:BB","gyro_x":2,"accel_z":1,"angle_x":0,"accel_x":0,"accel_y":0,"gyro_y":0,"gyro_z":0,"angle_y":0,"angle_z":0},
		{"accel_z":1},
		{"timestamp":"2025-06-05T11:59:59.999Z","accel_z":1}
	]}`)
	require.NoError(t, c.handleMessage("gait/left-01/samples", payload))

	require.Len(t, rec.rows, 2)
	assert.Equal(t, "left-01", rec.rows[0].DeviceMAC)
	assert.Equal(t, -12.0, rec.rows[0].AngleX)
	assert.Equal(t, "AA:BB", rec.rows[1].DeviceMAC)
	require.NotNil(t, rec.rows[0].ExpiresAt)
	assert.Equal(t, now.Add(24*time.Hour), *rec.rows[0].ExpiresAt)
}

func TestHandleMessageErrors(t *testing.T) {
	rec := &recorder{}
	c := NewConsumer(&fakeSubscriber{}, "gait/+/samples", rec.store, 0, zap.NewNop())

	assert.Error(t, c.handleMessage("bad-topic", []byte(`{}`)))
	assert.Error(t, c.handleMessage("gait/x/samples", []byte(`not json`)))

	rec.err = errors.New("db down")
	err := c.handleMessage("gait/x/samples", []byte(`{"samples":[{"timestamp":"2025-06-05T12:00:00Z","accel_z":1,"gyro_x":0,"angle_x":0,"accel_x":0,"accel_y":0,"gyro_y":0,"gyro_z":0,"angle_y":0,"angle_z":0}]}`))
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, rec.rows)
}

func TestConsumerLifecycle(t *testing.T) {
	sub := &fakeSubscriber{}
	rec := &recorder{}
	c := NewConsumer(sub, "gait/+/samples", rec.store, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return sub.handler("gait/+/samples") != nil }, time.Second, 5*time.Millisecond)
	h := sub.handler("gait/+/samples")
	require.NoError(t, h("gait/right-02/samples", []byte(`{"samples":[{"timestamp":"2025-06-05T12:00:00Z","accel_z":1,"gyro_x":0,"angle_x":0,"accel_x":0,"accel_y":0,"gyro_y":0,"gyro_z":0,"angle_y":0,"angle_z":0}]}`)))

	cancel()
	require.NoError(t, <-done)
	c.Stop()

	assert.Equal(t, []string{"gait/+/samples"}, sub.unsubscribed)
	assert.True(t, sub.disconnected)
	require.Len(t, rec.rows, 1)
	assert.Nil(t, rec.rows[0].ExpiresAt)
}

func TestStartSubscribeFailure(t *testing.T) {
	sub := &fakeSubscriber{subErr: errors.New("refused")}
	c := NewConsumer(sub, "gait/+/samples", (&recorder{}).store, 0, zap.NewNop())
	assert.ErrorContains(t, c.Start(context.Background()), "refused")
}
