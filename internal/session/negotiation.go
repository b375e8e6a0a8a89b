package session

import (
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/voxcall/voxcall/internal/config"
	"github.com/voxcall/voxcall/internal/media"
	"github.com/voxcall/voxcall/internal/rtc"
	"github.com/voxcall/voxcall/internal/signaling"
)

// SignalingState is the negotiation sub-state, distinct from transport
// connectivity.
type SignalingState string

const (
	StateNew             SignalingState = "new"
	StateHaveLocalOffer  SignalingState = "have-local-offer"
	StateHaveRemoteOffer SignalingState = "have-remote-offer"
	StateStable          SignalingState = "stable"
	StateClosed          SignalingState = "closed"
)

// Negotiation owns one peer connection's offer/answer lifecycle. It is
// created fresh for every negotiation round; a closed Negotiation is
// discarded, never reopened. All Handle methods must be called from the
// session's event loop, which serializes every transition.
type Negotiation struct {
	pc   *webrtc.PeerConnection
	send func(*signaling.Message)

	onPeerInfo func(rtc.DeviceInfoPayload)

	state                SignalingState
	isInitiator          bool
	remoteDescriptionSet bool
}

// NewNegotiation builds a peer connection bound to the local audio
// source and wires its callbacks. Locally gathered ICE candidates go
// out through send immediately, whatever the negotiation state.
func NewNegotiation(
	cfg *config.Config,
	source *media.Source,
	send func(*signaling.Message),
	onConnState func(webrtc.PeerConnectionState),
	onPeerInfo func(rtc.DeviceInfoPayload),
) (*Negotiation, error) {
	var iceServers []webrtc.ICEServer
	if stunServers := cfg.GetSTUNServers(); stunServers != nil {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: stunServers})
	}

	if turnServers := cfg.GetTURNServers(); turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}

	if _, err := pc.AddTrack(source.Track()); err != nil {
		pc.Close()
		return nil, NewError("add audio track", err)
	}

	n := &Negotiation{
		pc:         pc,
		send:       send,
		onPeerInfo: onPeerInfo,
		state:      StateNew,
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		n.sendMessage(signaling.TypeICECandidate, signaling.CandidatePayload{Candidate: c.ToJSON()})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if onConnState != nil {
			onConnState(state)
		}
	})

	// The responder side receives the control channel the initiator created.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == rtc.ControlChannelLabel {
			rtc.Attach(dc, onPeerInfo)
		}
	})

	// Rendering is the player's concern; the packets must still be read
	// so the receiver keeps feeding.
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		slog.Debug("remote track", "codec", track.Codec().MimeType)
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := track.Read(buf); err != nil {
					return
				}
			}
		}()
	})

	return n, nil
}

// HandlePeerJoined runs initiator election: the peer that was already
// in the room when the membership hits two, and is still in its initial
// state, offers. A peer past StateNew must not re-offer.
func (n *Negotiation) HandlePeerJoined(total int) {
	if total != 2 || n.state != StateNew {
		return
	}

	n.isInitiator = true

	if dc, err := n.pc.CreateDataChannel(rtc.ControlChannelLabel, nil); err != nil {
		slog.Warn("create control channel failed", "err", err)
	} else {
		rtc.Attach(dc, n.onPeerInfo)
	}

	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		slog.Warn("create offer failed", "err", err)
		return
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		slog.Warn("set local offer failed", "err", err)
		return
	}

	n.state = StateHaveLocalOffer
	// Trickle ICE: send right away, candidates follow separately.
	n.sendMessage(signaling.TypeOffer, signaling.OfferPayload{Offer: *n.pc.LocalDescription()})
}

// HandleOffer applies a remote offer and answers it.
func (n *Negotiation) HandleOffer(offer webrtc.SessionDescription) {
	if n.state == StateClosed {
		return
	}

	if err := n.pc.SetRemoteDescription(offer); err != nil {
		slog.Warn("set remote offer failed", "err", err)
		return
	}
	n.remoteDescriptionSet = true
	n.state = StateHaveRemoteOffer

	answer, err := n.pc.CreateAnswer(nil)
	if err != nil {
		slog.Warn("create answer failed", "err", err)
		return
	}
	if err := n.pc.SetLocalDescription(answer); err != nil {
		slog.Warn("set local answer failed", "err", err)
		return
	}

	n.state = StateStable
	n.sendMessage(signaling.TypeAnswer, signaling.AnswerPayload{Answer: *n.pc.LocalDescription()})
}

// HandleAnswer applies a remote answer. Valid only while a local offer
// is outstanding; anything else is a stale or duplicate message and is
// discarded so it cannot corrupt an already-stable session.
func (n *Negotiation) HandleAnswer(answer webrtc.SessionDescription) {
	if n.state != StateHaveLocalOffer {
		slog.Debug("discarding answer", "state", n.state)
		return
	}

	if err := n.pc.SetRemoteDescription(answer); err != nil {
		slog.Warn("set remote answer failed", "err", err)
		return
	}

	n.remoteDescriptionSet = true
	n.state = StateStable
}

// HandleCandidate admits a remote ICE candidate. Candidates arriving
// before any remote description is set are discarded.
func (n *Negotiation) HandleCandidate(candidate webrtc.ICECandidateInit) {
	if n.state == StateClosed {
		return
	}
	if !n.remoteDescriptionSet {
		slog.Debug("discarding ICE candidate, no remote description yet")
		return
	}

	if err := n.pc.AddICECandidate(candidate); err != nil {
		slog.Warn("add ICE candidate failed", "err", err)
	}
}

// Close tears the peer connection down. Idempotent.
func (n *Negotiation) Close() {
	if n.state == StateClosed {
		return
	}
	n.state = StateClosed
	if err := n.pc.Close(); err != nil {
		slog.Debug("peer connection close", "err", err)
	}
}

// State returns the current signaling state.
func (n *Negotiation) State() SignalingState {
	return n.state
}

// IsInitiator reports whether this side offered.
func (n *Negotiation) IsInitiator() bool {
	return n.isInitiator
}

// RemoteDescriptionSet reports whether candidate admission is unblocked.
func (n *Negotiation) RemoteDescriptionSet() bool {
	return n.remoteDescriptionSet
}

// ConnectionState returns the underlying connectivity state.
func (n *Negotiation) ConnectionState() webrtc.PeerConnectionState {
	return n.pc.ConnectionState()
}

func (n *Negotiation) sendMessage(t string, payload any) {
	msg, err := signaling.NewMessage(t, payload)
	if err != nil {
		slog.Warn("encode signaling message failed", "type", t, "err", err)
		return
	}
	n.send(msg)
}
