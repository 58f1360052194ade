package webui

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
	"github.com/tobert/trace-flamegraph/internal/view"
)

// Message types sent to the browser.
const (
	msgRender        = "render"
	msgRemoveTooltip = "remove-tooltip"
	msgError         = "error"
	msgParseError    = "parse-error"
	msgNoData        = "no-data"
	msgLoading       = "loading"
)

// wsNavigate is the client-sent message: show the flame graph for Params.
type wsNavigate struct {
	Params view.Params `json:"params"`
}

// wsMessage is a server-sent message on the WebSocket.
type wsMessage struct {
	Type    string           `json:"type"`
	TraceID string           `json:"trace_id,omitempty"`
	Title   string           `json:"title,omitempty"`
	NavItem string           `json:"nav_item,omitempty"`
	Tree    *flamegraph.Tree `json:"tree,omitempty"`
	Size    *view.Size       `json:"size,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// session is one WebSocket connection. It shows at most one view at a time;
// navigating destroys the current view before entering the next.
type session struct {
	srv    *Server
	ctx    context.Context
	outbox chan wsMessage
	cur    *view.View
}

// send queues msg for the writer. It gives up once the connection is gone.
func (ss *session) send(msg wsMessage) {
	select {
	case ss.outbox <- msg:
	case <-ss.ctx.Done():
	}
}

func (ss *session) navigate(p view.Params) {
	if ss.cur != nil {
		ss.cur.Destroy()
		ss.cur = nil
	}

	v, err := ss.srv.newView(p,
		view.RendererFunc(func(tree flamegraph.Tree, size view.Size) view.Overlay {
			ss.send(wsMessage{Type: msgRender, TraceID: p.TraceID, Tree: &tree, Size: &size})
			return view.OverlayFunc(func() {
				ss.send(wsMessage{Type: msgRemoveTooltip, TraceID: p.TraceID})
			})
		}),
		view.ReporterFunc(func(err error) {
			ss.send(wsMessage{Type: msgError, TraceID: p.TraceID, Error: err.Error()})
		}),
	)
	if err != nil {
		ss.send(wsMessage{Type: msgError, Error: err.Error()})
		return
	}
	ss.cur = v

	ss.send(wsMessage{Type: msgLoading, TraceID: p.TraceID, Title: v.Title, NavItem: v.NavItem})
	started := time.Now()
	v.Enter(ss.ctx)

	// Render and error messages come from the view's callbacks; the outcomes
	// that have none are reported once the view settles.
	go func() {
		<-v.Done()
		switch v.State() {
		case view.StateLoadedNoData:
			ss.send(wsMessage{Type: msgNoData, TraceID: p.TraceID})
		case view.StateLoadedParseError:
			ss.send(wsMessage{Type: msgParseError, TraceID: p.TraceID, Error: v.ParseError().Error()})
		}
		if v.Loaded() {
			ss.srv.opts.History.Record(v, started)
		}
	}()
}

// handleWebSocket upgrades to WebSocket and runs a view session until the
// client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for localhost dev
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ss := &session{srv: s, ctx: ctx, outbox: make(chan wsMessage, 16)}
	defer func() {
		if ss.cur != nil {
			ss.cur.Destroy()
		}
	}()

	// Read navigation messages from client in a goroutine
	navCh := make(chan view.Params, 4)
	go func() {
		defer close(navCh)
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var nav wsNavigate
			if err := json.Unmarshal(data, &nav); err != nil {
				ss.send(wsMessage{Type: msgError, Error: "invalid message: " + err.Error()})
				continue
			}
			select {
			case navCh <- nav.Params:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Single writer; view callbacks and the loop below only queue messages.
	go func() {
		for {
			select {
			case msg := <-ss.outbox:
				if err := writeMessage(ctx, conn, msg); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return

		case p, ok := <-navCh:
			if !ok {
				// Client disconnected
				return
			}
			ss.navigate(p)
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg wsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("webui: failed to marshal message: %v", err)
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
