package server

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"exchange-sim/src/config"
	"exchange-sim/src/interfaces"
	"exchange-sim/src/logger"
	"exchange-sim/src/models"
	"exchange-sim/src/protocol"
	"exchange-sim/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Engine Structure
// -----------------------------------------------------------------------------

type inboundMessage struct {
	client *Client
	data   []byte
}

var _ interfaces.IExchangeServer = (*Engine)(nil)

// Engine owns every piece of mutable simulation state: the client registry,
// the accept flag, the scenario document and the protocol runtime. All of it
// is touched exclusively from the run loop; the pumps and the scheduler hand
// work in through channels.
type Engine struct {
	Config *models.MConfig
	Logger *logger.Logger

	settings  *config.SettingsStore
	seeds     *config.SeedStore
	templates interfaces.ITemplateStore
	runtime   *protocol.Runtime

	acceptUserClients bool
	clients           map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
	tasks      chan func()
	done       chan struct{}

	scheduler *utils.TaskScheduler
	rng       *rand.Rand
	wire      *wireLog

	router *gin.Engine
	srv    *http.Server
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewEngine(cfg *models.MConfig, log *logger.Logger) *Engine {
	e := &Engine{
		Config: cfg,
		Logger: log,
		settings: &config.SettingsStore{
			File:   cfg.SettingsFile(),
			Logger: log,
		},
		seeds: &config.SeedStore{
			ScenarioDir: cfg.ScenarioOrderbookDir(),
			DefaultFile: cfg.OrderbookDefaultFile(),
			UpdFile:     cfg.OrderbookUpdFile(),
			Logger:      log,
		},
		templates: &protocol.Store{
			ServerProtocolFile: cfg.ServerProtocolFile(),
			ClientProtocolFile: cfg.ClientProtocolFile(),
			Logger:             log,
		},
		acceptUserClients: true,
		clients:           make(map[*Client]struct{}),
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		inbound:           make(chan inboundMessage, 64),
		tasks:             make(chan func(), 64),
		done:              make(chan struct{}),
		scheduler:         utils.NewTaskScheduler(),
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	return e
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// initialize loads the external documents and builds the HTTP router.
func (e *Engine) initialize() error {
	if err := e.settings.Load(); err != nil {
		return err
	}
	rt, err := e.buildRuntime()
	if err != nil {
		return err
	}
	e.runtime = rt
	e.wire = openWireLog(e.Config, e.Logger)

	if strings.ToUpper(e.Config.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	e.router = gin.Default()
	e.router.GET("/api/health", e.handleHealth)
	e.router.GET("/api/status", e.handleStatus)
	// Everything else is the websocket endpoint, whatever path the wrapper
	// documents advertise.
	e.router.NoRoute(e.handleWebSocket)
	return nil
}

// Start loads the scenario document and protocol wrappers, then serves HTTP
// until Stop or a listener error. Blocks.
func (e *Engine) Start() error {
	if err := e.initialize(); err != nil {
		return err
	}
	go e.run()

	port := e.settings.Port()
	if e.Config.PortOverride > 0 {
		port = e.Config.PortOverride
	}
	addr := fmt.Sprintf("%s:%d", e.Config.Host, port)
	e.srv = &http.Server{Addr: addr, Handler: e.router}
	e.Logger.Info("listening on %s (url: %s, control: %s)", addr, e.runtime.URL, e.runtime.ControlURL)

	err := e.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the listener, ends the run loop and terminates every connection.
func (e *Engine) Stop() error {
	var err error
	if e.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err = e.srv.Shutdown(ctx)
	}
	close(e.done)
	e.scheduler.Shutdown()
	e.wire.Close()
	return err
}

// -----------------------------------------------------------------------------
// Run loop - single goroutine owns all state
// -----------------------------------------------------------------------------

func (e *Engine) run() {
	for {
		select {
		case c := <-e.register:
			e.onRegister(c)
		case c := <-e.unregister:
			e.onUnregister(c)
		case in := <-e.inbound:
			e.wire.Incoming(in.data)
			e.dispatch(in.client, in.data)
		case fn := <-e.tasks:
			fn()
		case <-e.done:
			for c := range e.clients {
				c.terminate()
			}
			return
		}
	}
}

// post hands fn to the run loop; used by the scheduler and the REST handlers.
func (e *Engine) post(fn func()) {
	select {
	case e.tasks <- fn:
	case <-e.done:
	}
}

// schedulePosted runs fn on the run loop after d.
func (e *Engine) schedulePosted(d time.Duration, fn func()) {
	e.scheduler.Schedule(d, func() { e.post(fn) })
}

// -----------------------------------------------------------------------------
// Registration
// -----------------------------------------------------------------------------

func (e *Engine) onRegister(c *Client) {
	if !c.isControl && !e.acceptUserClients {
		e.Logger.Info("refusing user connection %s, accept disabled", c.id)
		c.sendClose(websocket.ClosePolicyViolation, "accept_disabled")
		e.scheduler.Schedule(closeGrace, c.terminate)
		return
	}

	e.clients[c] = struct{}{}
	interval, timeout := e.settings.Heartbeat()
	go c.writePump(interval, timeout)
	go c.readPump()

	e.Logger.Info("%s connected: %s (total %d)", c.roleLabel(), c.id, len(e.clients))
	e.broadcastStatusToControls()
}

func (e *Engine) onUnregister(c *Client) {
	if _, ok := e.clients[c]; !ok {
		return
	}
	delete(e.clients, c)
	close(c.send)
	c.active = false
	c.bookState = nil
	c.aggState = nil
	e.Logger.Info("%s disconnected: %s (total %d)", c.roleLabel(), c.id, len(e.clients))
	e.broadcastStatusToControls()
}

// -----------------------------------------------------------------------------
// Registry queries
// -----------------------------------------------------------------------------

func (e *Engine) countUsersActive() int {
	n := 0
	for c := range e.clients {
		if !c.isControl && c.active {
			n++
		}
	}
	return n
}

func (e *Engine) activeSessionIDs() []string {
	ids := make([]string, 0)
	for c := range e.clients {
		if !c.isControl && c.active && c.sessionID != "" {
			ids = append(ids, c.sessionID)
		}
	}
	return ids
}

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

// trySend marshals and queues a payload for one client. Ask-side zero volumes
// come out as -0 on the wire. A full send buffer drops the message.
func (e *Engine) trySend(c *Client, payload interface{}) {
	if _, ok := e.clients[c]; !ok {
		return
	}
	data, err := protocol.MarshalWithMinusZero(payload)
	if err != nil {
		e.Logger.Error("marshal failed for %s: %v", c.id, err)
		return
	}
	select {
	case c.send <- data:
		e.wire.Outgoing(data)
	default:
		e.Logger.Warning("send buffer full, dropping message for %s", c.id)
	}
}

// timestampID is the id used on server-initiated notifications.
func timestampID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func (e *Engine) statusPayload(id string) models.MStatus {
	return models.MStatus{
		ID:            id,
		T:             "Status",
		Scenario:      e.settings.CurrentScenario(),
		ClientsActive: e.countUsersActive(),
		Accept:        e.acceptUserClients,
	}
}

func (e *Engine) broadcastStatusToControls() {
	st := e.statusPayload(timestampID())
	for c := range e.clients {
		if c.isControl {
			e.trySend(c, st)
		}
	}
}

func (e *Engine) logToControls(message string) {
	e.Logger.Info("%s", message)
	msg := models.MLogMsg{ID: timestampID(), T: "Log", Message: message}
	for c := range e.clients {
		if c.isControl {
			e.trySend(c, msg)
		}
	}
}

func (e *Engine) notifyClientsClosed(sessionIDs []string) {
	msg := models.MClientsClosed{ID: timestampID(), T: "ClientsClosed", Clients: sessionIDs}
	for c := range e.clients {
		if c.isControl {
			e.trySend(c, msg)
		}
	}
}

// -----------------------------------------------------------------------------
// HTTP handlers
// -----------------------------------------------------------------------------

func (e *Engine) handleWebSocket(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		e.Logger.Warning("upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		engine:    e,
		conn:      conn,
		send:      make(chan []byte, 256),
		isControl: c.Query("control") == "1",
	}
	select {
	case e.register <- client:
	case <-e.done:
		conn.Close()
	}
}

func (e *Engine) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (e *Engine) handleStatus(c *gin.Context) {
	reply := make(chan models.MStatus, 1)
	e.post(func() { reply <- e.statusPayload(timestampID()) })
	select {
	case st := <-reply:
		c.JSON(http.StatusOK, gin.H{
			"scenario":       st.Scenario,
			"clients_active": st.ClientsActive,
			"accept":         st.Accept,
		})
	case <-time.After(time.Second):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine busy"})
	}
}
