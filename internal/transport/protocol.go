package transport

import (
	"fmt"
	"net"
	"strconv"
)

const (
	DefaultName = "Paddles Train"
	DefaultHost = "localhost"
	DefaultPort = 9543

	// readLimit bounds one frame; state vectors are a few hundred bytes.
	readLimit = 1 << 20
)

const (
	typeHello    = "hello"
	typeGetState = "get_state"
	typeState    = "state"
	typeJoints   = "joints"
	typeError    = "error"
)

type message struct {
	Type   string    `json:"type"`
	Name   string    `json:"name,omitempty"`
	State  []float64 `json:"state,omitempty"`
	Joints []float64 `json:"joints,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// URL is the websocket endpoint of a simulation server.
func URL(host string, port int) string {
	return fmt.Sprintf("ws://%s/", net.JoinHostPort(host, strconv.Itoa(port)))
}
