package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebSocketClient_ReplyAfterCloseIsDropped(t *testing.T) {
	c := NewWebSocketClient(NewManagerService(nil, nil, nil), nil, nil)
	c.Close()
	c.Close()

	assert.NotPanics(t, func() {
		c.reply(ack{Type: "subscription", Topic: "broadcast", Status: "subscribed"})
	})
	_, open := <-c.Send
	assert.False(t, open)
}

func TestWebSocketClient_ReplyRacesClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := NewWebSocketClient(NewManagerService(nil, nil, nil), nil, nil)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.reply(ack{Type: "subscription", Topic: "broadcast", Status: "subscribed"})
			}
		}()
		go func() {
			defer wg.Done()
			c.Close()
		}()
		wg.Wait()

		for range c.Send {
		}
	}
}
