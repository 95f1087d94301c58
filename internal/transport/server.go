package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"paddlerl/internal/arm"
	"paddlerl/internal/scape"
)

// Handler exposes a scape.Simulator over the client protocol, one connection
// at a time. It is used to replay recorded or scripted matches.
type Handler struct {
	sim scape.Simulator
	log logrus.FieldLogger
}

func NewHandler(sim scape.Simulator, log logrus.FieldLogger) *Handler {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Handler{sim: sim, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}
	conn.SetReadLimit(readLimit)

	err = h.serve(r.Context(), conn)
	switch {
	case err == nil:
		conn.Close(websocket.StatusNormalClosure, "")
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure, errors.Is(err, context.Canceled):
		h.log.Debug("client disconnected")
	default:
		h.log.WithError(err).Warn("simulator session ended")
		conn.Close(websocket.StatusInternalError, "session failed")
	}
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn) error {
	var hello message
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		return err
	}
	if hello.Type != typeHello {
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}
	log := h.log.WithField("client", hello.Name)
	log.Info("client connected")

	for {
		var msg message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		switch msg.Type {
		case typeGetState:
			s, err := h.sim.State(ctx)
			if err != nil {
				if werr := wsjson.Write(ctx, conn, message{Type: typeError, Error: err.Error()}); werr != nil {
					return werr
				}
				continue
			}
			if err := wsjson.Write(ctx, conn, message{Type: typeState, State: s.Raw()}); err != nil {
				return err
			}
		case typeJoints:
			if len(msg.Joints) != arm.NumJoints {
				return fmt.Errorf("joint command has %d values, want %d", len(msg.Joints), arm.NumJoints)
			}
			var j arm.Joints
			copy(j[:], msg.Joints)
			if err := h.sim.SendJoints(ctx, j); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown message type %q", msg.Type)
		}
	}
}
