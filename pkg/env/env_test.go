package env

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sh2bridge/pkg/hostlink"
	"github.com/robotalks/sh2bridge/pkg/hostlink/mqtt"
	"github.com/robotalks/sh2bridge/pkg/hostlink/websocket"
	"github.com/robotalks/sh2bridge/pkg/sh2/hal"
	"github.com/robotalks/sh2bridge/pkg/sim"
)

func TestNewConfig(t *testing.T) {
	c := NewConfig()
	require.True(t, Default() != c)
	require.NotEmpty(t, c.DeviceID)
	require.Equal(t, uint(hal.DefaultAddr), c.Addr)

	c.Addr = 0x4B
	c.StampAtSignal = true
	conf := c.HALConfig()
	require.Equal(t, uint16(0x4B), conf.Addr)
	require.True(t, conf.StampAtSignal)
	require.Equal(t, hal.DefaultConfig.ResetDelay, conf.ResetDelay)
}

func TestNewAdapterSim(t *testing.T) {
	c := NewConfig()
	c.Backend = BackendSim
	adapter, runnables, err := c.NewAdapter()
	require.NoError(t, err)
	require.NotNil(t, adapter)
	require.Len(t, runnables, 1)
	require.IsType(t, &sim.Hub{}, runnables[0])

	c.Backend = "spi"
	_, _, err = c.NewAdapter()
	require.Error(t, err)
}

func TestNewLink(t *testing.T) {
	f, err := ioutil.TempFile("", "link")
	require.NoError(t, err)
	f.Close()
	defer os.Remove(f.Name())

	testCases := []struct {
		url      string
		link     interface{}
		runnable bool
	}{
		{"stdio:", &hostlink.Stream{}, false},
		{"file://" + f.Name(), &hostlink.Stream{}, false},
		{"mqtt://localhost:1883/sh2/", &mqtt.Link{}, true},
		{"ws://127.0.0.1:0/frames", &websocket.Server{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			c := NewConfig()
			c.LinkURL = tc.url
			link, runnable, err := c.NewLink()
			require.NoError(t, err)
			require.IsType(t, tc.link, link)
			require.Equal(t, tc.runnable, runnable != nil)
		})
	}

	c := NewConfig()
	c.LinkURL = "carrier-pigeon://home"
	_, _, err = c.NewLink()
	require.Error(t, err)
}

func TestNewEnv(t *testing.T) {
	c := NewConfig()
	c.Backend = BackendSim
	c.LinkURL = "ws://127.0.0.1:0/frames"
	env, err := c.NewEnv()
	require.NoError(t, err)
	require.Len(t, env.Runnables, 2)
	require.True(t, env.Forwarder.HAL == hal.HAL(env.Adapter))
	require.Equal(t, env.Link, env.Forwarder.Link)
}
