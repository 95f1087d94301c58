package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"paddlerl/internal/arm"
	"paddlerl/internal/state"
)

// Client drives a remote simulator over one websocket connection. It is not
// safe for concurrent use; the training pipeline owns it from one goroutine.
type Client struct {
	conn *websocket.Conn
	name string
	log  logrus.FieldLogger
}

// Dial connects to url and introduces the client by name.
func Dial(ctx context.Context, url, name string, log logrus.FieldLogger) (*Client, error) {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial simulator %s: %w", url, err)
	}
	conn.SetReadLimit(readLimit)

	c := &Client{conn: conn, name: name, log: log.WithField("simulator", url)}
	if err := wsjson.Write(ctx, conn, message{Type: typeHello, Name: name}); err != nil {
		conn.Close(websocket.StatusInternalError, "hello failed")
		return nil, fmt.Errorf("hello: %w", err)
	}
	c.log.WithField("name", name).Info("connected to simulator")
	return c, nil
}

func (c *Client) Name() string { return c.name }

// State requests and returns the current observation.
func (c *Client) State(ctx context.Context) (state.Vector, error) {
	if err := wsjson.Write(ctx, c.conn, message{Type: typeGetState}); err != nil {
		return state.Vector{}, fmt.Errorf("request state: %w", err)
	}
	var msg message
	if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
		return state.Vector{}, fmt.Errorf("read state: %w", err)
	}
	switch msg.Type {
	case typeState:
		return state.New(msg.State)
	case typeError:
		return state.Vector{}, fmt.Errorf("simulator error: %s", msg.Error)
	default:
		return state.Vector{}, fmt.Errorf("unexpected %q message while waiting for state", msg.Type)
	}
}

func (c *Client) SendJoints(ctx context.Context, joints arm.Joints) error {
	if err := wsjson.Write(ctx, c.conn, message{Type: typeJoints, Joints: joints.Slice()}); err != nil {
		return fmt.Errorf("send joints: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
