// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/lsmpool/lsmpool/api/restutil"
	"github.com/lsmpool/lsmpool/log"
	"github.com/lsmpool/lsmpool/logdb"
	"github.com/lsmpool/lsmpool/metrics"
	"github.com/lsmpool/lsmpool/runtime"
)

const (
	subBuffer  = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 7) / 10
)

var (
	logger                = log.WithContext("pkg", "subscriptions")
	metricActiveWebsocket = metrics.LazyLoad(func() metrics.GaugeMeter { return metrics.Gauge("api_active_websocket_gauge") })
)

// Subscriptions streams committed events to websocket clients.
type Subscriptions struct {
	upgrader *websocket.Upgrader
	lock     sync.Mutex
	subs     map[*eventSub]struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

type eventSub struct {
	filter *EventFilter
	ch     chan *logdb.Event
}

// New creates the subscription hub. Origins are compared case-insensitively, "*" allows any.
func New(allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				origin = strings.ToLower(origin)
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		subs: make(map[*eventSub]struct{}),
		done: make(chan struct{}),
	}
}

// Publish fans out the events of a committed receipt. Subscribers whose buffer is
// full are dropped.
func (s *Subscriptions) Publish(r *runtime.Receipt) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i, ev := range r.Events {
		msg := &logdb.Event{
			Height:     r.Height,
			EventIndex: uint32(i),
			Sender:     r.Sender,
			Contract:   ev.Contract,
			Type:       ev.Type,
			Attributes: ev.Attributes,
		}
		for sub := range s.subs {
			if !sub.filter.match(msg) {
				continue
			}
			select {
			case sub.ch <- msg:
			default:
				delete(s.subs, sub)
				close(sub.ch)
				logger.Debug("dropped slow subscriber", "height", r.Height)
			}
		}
	}
}

func (s *Subscriptions) subscribe(filter *EventFilter) (*eventSub, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	select {
	case <-s.done:
		return nil, false
	default:
	}
	sub := &eventSub{filter: filter, ch: make(chan *logdb.Event, subBuffer)}
	s.subs[sub] = struct{}{}
	s.wg.Add(1)
	metricActiveWebsocket().Add(1)
	return sub, true
}

func (s *Subscriptions) unsubscribe(sub *eventSub) {
	s.lock.Lock()
	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.ch)
	}
	s.lock.Unlock()
	metricActiveWebsocket().Add(-1)
	s.wg.Done()
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	filter, err := parseEventFilter(req.URL.Query())
	if err != nil {
		return restutil.BadRequest(err)
	}

	// subscribe before the handshake completes so no event committed after it is missed
	sub, ok := s.subscribe(filter)
	if !ok {
		return restutil.HTTPError(errors.New("shutting down"), http.StatusServiceUnavailable)
	}
	defer s.unsubscribe(sub)

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has already replied
		logger.Debug("upgrade failed", "err", err)
		return nil
	}
	defer conn.Close()

	s.pipe(conn, sub)
	return nil
}

// pipe writes events to conn until the client leaves, the hub closes or the
// subscriber is dropped.
func (s *Subscriptions) pipe(conn *websocket.Conn, sub *eventSub) {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			closeConn(conn, websocket.CloseGoingAway, "shutting down")
			return
		case <-closed:
			return
		case ev, ok := <-sub.ch:
			if !ok {
				closeConn(conn, websocket.ClosePolicyViolation, "subscriber too slow")
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("write event failed", "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func closeConn(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		logger.Debug("close connection failed", "err", err)
	}
}

// Close disconnects every subscriber and waits for their handlers to return.
func (s *Subscriptions) Close() {
	s.lock.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.lock.Unlock()
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("WS /subscriptions/events").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSubscribeEvents))
}
