package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/voxcall/voxcall/internal/config"
	"github.com/voxcall/voxcall/internal/media"
	"github.com/voxcall/voxcall/internal/rooms"
	"github.com/voxcall/voxcall/internal/rtc"
	"github.com/voxcall/voxcall/internal/signaling"
)

// Status is a read-only projection of the session for the UI.
type Status struct {
	RoomID          string
	RoomName        string
	ActiveUsers     int
	SignalingState  SignalingState
	ConnectionState string
	IsInitiator     bool
	PeerDevice      string
	Warning         string
}

const connStateInitial = "disconnected"

type eventKind int

const (
	evConnState eventKind = iota
	evPeerInfo
)

// event carries asynchronous continuations (connectivity callbacks,
// control channel traffic) into the session loop. The generation tag
// makes continuations of a discarded negotiation context no-ops.
type event struct {
	kind      eventKind
	gen       int
	connState webrtc.PeerConnectionState
	peerInfo  rtc.DeviceInfoPayload
}

// JoinPayload is the outbound join request body.
type JoinPayload struct {
	RoomID string `json:"room_id"`
}

// Session composes the transport channel, membership tracker and
// negotiation state machine into connect/disconnect operations. All
// state transitions happen on a single event-loop goroutine; Connect
// and Disconnect only assemble and tear down around it.
type Session struct {
	cfg       *config.Config
	directory *rooms.Client

	// acquire obtains the local audio source; swapped in tests.
	acquire func() (*media.Source, error)

	lifecycleMu sync.Mutex
	active      bool

	channel     *signaling.Client
	source      *media.Source
	neg         *Negotiation
	membership  Membership
	meter       *media.Meter
	meterCancel context.CancelFunc

	gen      int
	events   chan event
	done     chan struct{}
	loopDone chan struct{}

	statusMu sync.Mutex
	status   Status
}

// New creates an idle session.
func New(cfg *config.Config) *Session {
	return &Session{
		cfg:       cfg,
		directory: rooms.NewClient(cfg.APIURL),
		acquire:   media.Acquire,
		status:    Status{SignalingState: StateNew, ConnectionState: connStateInitial},
	}
}

// Connect joins the given room and starts the session loop. Any prior
// session is torn down first. Only media acquisition and transport
// failures abort the attempt; a room directory failure is advisory.
func (s *Session) Connect(ctx context.Context, roomID string) error {
	s.Disconnect()

	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	roomID = rooms.NormalizeID(roomID)
	if !rooms.ValidID(roomID) {
		return WrapError("join room", ErrRoomUnavailable, "invalid room code")
	}

	var warning string
	if err := s.directory.Ensure(ctx, roomID, roomID); err != nil {
		slog.Warn("room directory create failed", "room", roomID, "err", err)
		warning = "room directory unavailable"
	}

	source, err := s.acquire()
	if err != nil {
		return WrapError("acquire audio", ErrMediaUnavailable, err.Error())
	}

	s.gen++
	s.events = make(chan event, 16)
	s.done = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.source = source
	s.channel = signaling.NewClient(s.cfg.RoomSocketURL(roomID))

	s.statusMu.Lock()
	s.status = Status{
		RoomID:          roomID,
		SignalingState:  StateNew,
		ConnectionState: "new",
		Warning:         warning,
	}
	s.statusMu.Unlock()

	if !s.ensureNegotiation() {
		s.source = nil
		s.channel = nil
		source.Stop()
		return NewError("create negotiation context", ErrNotConnected)
	}

	if err := s.channel.Connect(); err != nil {
		s.neg.Close()
		s.neg = nil
		s.source = nil
		s.channel = nil
		source.Stop()
		return NewError("connect to server", err)
	}

	join, err := signaling.NewMessage(signaling.TypeJoin, JoinPayload{RoomID: roomID})
	if err == nil {
		s.channel.Send(join)
	}

	s.meter = media.NewMeter()
	meterCtx, cancel := context.WithCancel(context.Background())
	s.meterCancel = cancel
	go s.meter.Run(meterCtx, source.Frames())

	s.active = true
	go s.run(s.channel, s.done, s.loopDone)

	return nil
}

// Disconnect tears the session down: transport channel, negotiation
// context, then media tracks. Idempotent; a no-op when no session exists.
func (s *Session) Disconnect() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.active {
		return
	}
	s.active = false

	close(s.done)
	<-s.loopDone

	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
	if s.neg != nil {
		s.neg.Close()
		s.neg = nil
	}
	if s.meterCancel != nil {
		s.meterCancel()
		s.meterCancel = nil
	}
	if s.source != nil {
		s.source.Stop()
		s.source = nil
	}
	s.membership.Reset()

	s.statusMu.Lock()
	s.status = Status{SignalingState: StateNew, ConnectionState: connStateInitial}
	s.statusMu.Unlock()
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

// Meter returns the mic level meter for the active session, or nil.
func (s *Session) Meter() *media.Meter {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	return s.meter
}

// run is the session event loop: the only goroutine that mutates
// negotiation and membership state. It ends on Disconnect or when the
// transport channel closes.
func (s *Session) run(channel *signaling.Client, done, loopDone chan struct{}) {
	defer close(loopDone)

	for {
		select {
		case msg, ok := <-channel.Incoming():
			if !ok {
				slog.Warn("signaling channel closed")
				s.reset()
				return
			}
			s.dispatch(msg)

		case ev := <-s.events:
			s.handleEvent(ev)

		case <-done:
			return
		}
	}
}

func (s *Session) dispatch(msg *signaling.Message) {
	switch msg.Type {

	case signaling.TypeRoomInfo:
		var info signaling.RoomInfoPayload
		if err := msg.DecodePayload(&info); err != nil {
			slog.Warn("bad room_info payload", "err", err)
			return
		}
		s.membership.ApplySnapshot(info)
		s.syncMembership()

	case signaling.TypeUserJoined:
		var p signaling.PresencePayload
		if err := msg.DecodePayload(&p); err != nil {
			slog.Warn("bad user_joined payload", "err", err)
			return
		}
		s.membership.ApplyTotal(p.TotalUsers)
		s.syncMembership()
		if s.ensureNegotiation() {
			s.neg.HandlePeerJoined(p.TotalUsers)
			s.syncNegotiation()
		}

	case signaling.TypeUserLeft:
		var p signaling.PresencePayload
		if err := msg.DecodePayload(&p); err != nil {
			slog.Warn("bad user_left payload", "err", err)
			return
		}
		s.membership.ApplyTotal(p.TotalUsers)
		s.syncMembership()

	case signaling.TypeOffer:
		var p signaling.OfferPayload
		if err := msg.DecodePayload(&p); err != nil {
			slog.Warn("bad offer payload", "err", err)
			return
		}
		if s.ensureNegotiation() {
			s.neg.HandleOffer(p.Offer)
			s.syncNegotiation()
		}

	case signaling.TypeAnswer:
		if s.neg == nil {
			slog.Debug("discarding answer, no negotiation context")
			return
		}
		var p signaling.AnswerPayload
		if err := msg.DecodePayload(&p); err != nil {
			slog.Warn("bad answer payload", "err", err)
			return
		}
		s.neg.HandleAnswer(p.Answer)
		s.syncNegotiation()

	case signaling.TypeICECandidate:
		if s.neg == nil {
			slog.Debug("discarding ICE candidate, no negotiation context")
			return
		}
		var p signaling.CandidatePayload
		if err := msg.DecodePayload(&p); err != nil {
			slog.Warn("bad ice-candidate payload", "err", err)
			return
		}
		s.neg.HandleCandidate(p.Candidate)

	case signaling.TypeError:
		var p signaling.ErrorPayload
		if err := msg.DecodePayload(&p); err == nil {
			slog.Warn("server error", "error", p.Error)
		}

	default:
		slog.Debug("unknown message type", "type", msg.Type)
	}
}

func (s *Session) handleEvent(ev event) {
	if ev.gen != s.gen {
		// Continuation of a discarded negotiation context.
		return
	}

	switch ev.kind {
	case evConnState:
		s.statusMu.Lock()
		s.status.ConnectionState = ev.connState.String()
		s.statusMu.Unlock()

		if ev.connState == webrtc.PeerConnectionStateDisconnected ||
			ev.connState == webrtc.PeerConnectionStateFailed {
			slog.Warn("connectivity lost", "state", ev.connState)
			s.reset()
		}

	case evPeerInfo:
		s.statusMu.Lock()
		s.status.PeerDevice = ev.peerInfo.DeviceName
		s.statusMu.Unlock()
	}
}

// reset discards the negotiation context and returns the signaling
// state to new, leaving transport and media alone so a later join or
// offer can renegotiate without re-acquiring the microphone.
func (s *Session) reset() {
	if s.neg != nil {
		s.neg.Close()
		s.neg = nil
	}
	s.gen++

	s.statusMu.Lock()
	s.status.SignalingState = StateNew
	s.status.ConnectionState = connStateInitial
	s.status.IsInitiator = false
	s.statusMu.Unlock()
}

// ensureNegotiation lazily builds a fresh negotiation context. A reset
// always discards the old one; it is never reopened.
func (s *Session) ensureNegotiation() bool {
	if s.neg != nil {
		return true
	}

	gen := s.gen
	events, done := s.events, s.done
	post := func(ev event) {
		ev.gen = gen
		select {
		case events <- ev:
		case <-done:
		}
	}

	neg, err := NewNegotiation(s.cfg, s.source, s.channel.Send,
		func(state webrtc.PeerConnectionState) {
			post(event{kind: evConnState, connState: state})
		},
		func(info rtc.DeviceInfoPayload) {
			post(event{kind: evPeerInfo, peerInfo: info})
		},
	)
	if err != nil {
		slog.Warn("create negotiation context failed", "err", err)
		return false
	}

	s.neg = neg
	return true
}

func (s *Session) syncMembership() {
	s.statusMu.Lock()
	s.status.ActiveUsers = s.membership.ActiveUsers()
	s.status.RoomName = s.membership.RoomName()
	s.statusMu.Unlock()
}

func (s *Session) syncNegotiation() {
	if s.neg == nil {
		return
	}
	s.statusMu.Lock()
	s.status.SignalingState = s.neg.State()
	s.status.IsInitiator = s.neg.IsInitiator()
	s.statusMu.Unlock()
}
