package lobby

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/session"
	"github.com/DoyleJ11/auction-backend/internal/store"
	"github.com/DoyleJ11/auction-backend/pkg/types"
)

var ErrNotOperator = errors.New("only the operator can control the auction")

type Msg interface{ isLobbyMsg() }

// Connect registers a connection. It gets a full update right away and
// holds no role until it sends a Claim.
type Connect struct {
	ClientID string
	Outbox   chan types.ServerMessage
}

func (Connect) isLobbyMsg() {}

type Disconnect struct{ ClientID string }

func (Disconnect) isLobbyMsg() {}

type Claim struct {
	ClientID string
	Role     session.Role
}

func (Claim) isLobbyMsg() {}

// Act is an auction command from a connection. Only the operator may act.
type Act struct {
	ClientID string
	Cmd      engine.Command
}

func (Act) isLobbyMsg() {}

// GetView asks for the view a connection with Role would get.
type GetView struct {
	Role  session.Role
	Reply chan View
}

func (GetView) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type View struct {
	Version   int
	Clients   int
	UndoDepth int
	State     types.State
}

// Exporter writes the final results once the auction completes. Undoing the
// last sale and selling again exports the same run again, so Export must
// replace what it wrote for the current run. NewRun follows a reset.
type Exporter interface {
	Export(s engine.State) error
	NewRun()
}

type exportJob struct {
	state  engine.State
	newRun bool
}

type Option func(*Lobby)

func WithLogger(log *zap.Logger) Option {
	return func(l *Lobby) { l.log = log }
}

func WithExporter(e Exporter) Option {
	return func(l *Lobby) { l.exporter = e }
}

func WithSaveTimeout(d time.Duration) Option {
	return func(l *Lobby) { l.saveTimeout = d }
}

type Lobby struct {
	inbox       chan Msg
	auction     *engine.Auction
	registry    *session.Registry
	clients     map[string]chan types.ServerMessage
	version     int
	statusDirty bool

	store       store.Store
	persist     chan engine.State
	saveTimeout time.Duration
	exporter    Exporter
	exports     chan exportJob
	log         *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	stopped chan struct{}
	done    chan struct{}
}

func NewLobby(parent context.Context, a *engine.Auction, st store.Store, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:       make(chan Msg, 64),
		auction:     a,
		registry:    session.NewRegistry(a.Rules().TeamCount),
		clients:     make(map[string]chan types.ServerMessage),
		store:       st,
		persist:     make(chan engine.State, 1),
		saveTimeout: 5 * time.Second,
		exports:     make(chan exportJob, 16),
		log:         zap.NewNop(),
		ctx:         ctx,
		cancel:      cancel,
		stopped:     make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.workers.Add(2)
	go l.persistLoop()
	go l.exportLoop()
	go func() {
		<-l.stopped
		l.workers.Wait()
		close(l.done)
	}()
	go l.loop()
	return l
}

// Inbox is how the transport talks to the lobby.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send delivers msg unless ctx ends or the lobby has already stopped.
func (l *Lobby) Send(ctx context.Context, msg Msg) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.inbox <- msg:
		return true
	case <-ctx.Done():
		return false
	case <-l.stopped:
		return false
	}
}

// Done is closed once the lobby has stopped and the last state and export
// have been written.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) loop() {
	defer close(l.stopped)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Connect:
				l.clients[msg.ClientID] = msg.Outbox
				l.registry.Add(msg.ClientID)
				l.sendUpdate(msg.ClientID)
				l.log.Debug("client connected", zap.String("client", msg.ClientID))

			case Disconnect:
				delete(l.clients, msg.ClientID)
				if role, ok := l.registry.Remove(msg.ClientID); ok && role != nil {
					l.statusDirty = true
				}
				l.log.Debug("client disconnected", zap.String("client", msg.ClientID))

			case Claim:
				l.claim(msg)

			case Act:
				l.act(msg)

			case GetView:
				msg.Reply <- View{
					Version:   l.version,
					Clients:   len(l.clients),
					UndoDepth: l.auction.UndoDepth(),
					State:     personalize(l.shared(), msg.Role),
				}

			case Shutdown:
				l.shutdown()
				return
			}

			for l.statusDirty {
				l.statusDirty = false
				l.broadcast(types.ServerMessage{Type: types.EvtConnectionStatus, Payload: l.connections()})
			}
		}
	}
}

func (l *Lobby) claim(msg Claim) {
	if _, ok := l.clients[msg.ClientID]; !ok {
		return
	}
	displaced, err := l.registry.Claim(msg.ClientID, msg.Role)
	switch {
	case errors.Is(err, session.ErrOperatorTaken):
		l.log.Info("rejected second operator", zap.String("client", msg.ClientID))
		l.forceDisconnect(msg.ClientID, "operator role already taken")
		return
	case err != nil:
		l.send(msg.ClientID, errorMessage(errorCode(err), err))
		return
	}

	if displaced != "" {
		l.log.Info("seat taken over",
			zap.String("role", session.Name(msg.Role)),
			zap.String("displaced", displaced),
			zap.String("client", msg.ClientID))
		l.forceDisconnect(displaced, "seat claimed by another device")
	}
	l.send(msg.ClientID, types.ServerMessage{Type: types.EvtJoined, Payload: joined(msg.Role)})
	l.sendUpdate(msg.ClientID)
	l.statusDirty = true
}

func (l *Lobby) act(msg Act) {
	if !l.registry.IsOperator(msg.ClientID) {
		l.send(msg.ClientID, errorMessage(types.CodeUnauthorized, ErrNotOperator))
		return
	}

	events, err := l.auction.Do(msg.Cmd)
	if err != nil {
		l.log.Debug("command rejected", zap.String("command", string(msg.Cmd.Type)), zap.Error(err))
		l.send(msg.ClientID, errorMessage(errorCode(err), err))
		return
	}

	l.version++
	s := l.auction.State()
	rules := l.auction.Rules()
	for _, ev := range events {
		l.broadcast(eventMessage(ev, s, rules))
	}
	l.broadcastUpdate()
	l.schedulePersist(s)

	switch {
	case engine.ContainsEvent(events, engine.EvtAuctionCompleted):
		l.log.Info("auction complete", zap.Int("version", l.version))
		l.scheduleExport(exportJob{state: s})
	case engine.ContainsEvent(events, engine.EvtAuctionReset):
		l.scheduleExport(exportJob{newRun: true})
	}
}

func (l *Lobby) shared() types.State {
	s := l.auction.State()
	return sharedView(s, l.auction.Rules(), l.version, l.auction.UndoDepth() > 0, l.connections())
}

func (l *Lobby) connections() types.Connections {
	return types.Connections{
		Operator:  l.registry.HasOperator(),
		Teams:     l.registry.Online(),
		Observers: l.registry.Observers(),
	}
}

func (l *Lobby) sendUpdate(id string) {
	v := personalize(l.shared(), l.registry.Role(id))
	l.send(id, types.ServerMessage{Type: types.EvtUpdate, Payload: v})
}

func (l *Lobby) broadcastUpdate() {
	shared := l.shared()
	for id := range l.clients {
		v := personalize(shared, l.registry.Role(id))
		l.send(id, types.ServerMessage{Type: types.EvtUpdate, Payload: v})
	}
}

func (l *Lobby) broadcast(msg types.ServerMessage) {
	for id := range l.clients {
		l.send(id, msg)
	}
}

// send never blocks. A client whose outbox is full is dropped; it will get
// a fresh update when it reconnects.
func (l *Lobby) send(id string, msg types.ServerMessage) {
	ch, ok := l.clients[id]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		l.log.Warn("dropping slow client", zap.String("client", id))
		l.drop(id)
	}
}

func (l *Lobby) forceDisconnect(id, reason string) {
	l.send(id, types.ServerMessage{Type: types.EvtForceDisconnect, Payload: types.ForceDisconnect{Reason: reason}})
	l.drop(id)
}

func (l *Lobby) drop(id string) {
	ch, ok := l.clients[id]
	if !ok {
		return
	}
	close(ch)
	delete(l.clients, id)
	if role, ok := l.registry.Remove(id); ok && role != nil {
		l.statusDirty = true
	}
}

// schedulePersist replaces any state still waiting to be saved, so the store
// only ever sees the latest one.
func (l *Lobby) schedulePersist(s engine.State) {
	select {
	case l.persist <- s:
		return
	default:
	}
	select {
	case <-l.persist:
	default:
	}
	l.persist <- s
}

// persistLoop runs until loop closes l.persist on shutdown, so the last
// mutation is always saved.
func (l *Lobby) persistLoop() {
	defer l.workers.Done()
	for s := range l.persist {
		l.save(s)
	}
}

func (l *Lobby) scheduleExport(job exportJob) {
	if l.exporter == nil {
		return
	}
	select {
	case l.exports <- job:
	default:
		l.log.Warn("export queue full, results not written")
	}
}

func (l *Lobby) exportLoop() {
	defer l.workers.Done()
	for job := range l.exports {
		if job.newRun {
			l.exporter.NewRun()
			continue
		}
		if err := l.exporter.Export(job.state); err != nil {
			l.log.Warn("export results", zap.Error(err))
		}
	}
}

func (l *Lobby) save(s engine.State) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.saveTimeout)
	defer cancel()
	if err := l.store.Save(ctx, s); err != nil {
		l.log.Warn("persist auction state", zap.Error(err), zap.String("phase", string(s.Phase)))
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch)
		delete(l.clients, id)
	}
	close(l.persist)
	close(l.exports)
	l.cancel()
}
