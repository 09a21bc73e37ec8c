package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryDispatcher(t *testing.T) {
	var failures []error
	d := NewInMemoryDispatcher(func(_ Event, err error) {
		failures = append(failures, err)
	})

	var seen []string
	d.Subscribe(EventUserDeleted, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.UserID)
		return errors.New("audit sink down")
	})
	d.Subscribe(EventUserDeleted, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventUserCreated, func(context.Context, Event) error {
		t.Fatal("unexpected handler")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserDeleted, UserID: "u1"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first:u1", "second:u1"}, seen)
	assert.Len(t, failures, 1)

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventUserUpdated}))
}
