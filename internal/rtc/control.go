// Package rtc carries the in-call control protocol that rides a WebRTC
// data channel next to the audio track.
package rtc

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/voxcall/voxcall/internal/version"
)

// ControlChannelLabel names the data channel used for control traffic.
const ControlChannelLabel = "voxcall-ctl"

// Message represents all control channel messages.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

const (
	MessageTypeDeviceInfo = "device-info"
)

// DeviceInfoPayload is exchanged once when the control channel opens.
type DeviceInfoPayload struct {
	DeviceName    string `msgpack:"deviceName"`
	DeviceVersion string `msgpack:"deviceVersion"`
}

// NewMessage creates a new Message with the given type and payload.
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

// DecodePayload decodes the message payload into the provided struct.
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// LocalDeviceInfo describes this client to the remote peer.
func LocalDeviceInfo() DeviceInfoPayload {
	host, _ := os.Hostname()
	if host == "" {
		host = runtime.GOOS
	}
	return DeviceInfoPayload{
		DeviceName:    host,
		DeviceVersion: version.Version,
	}
}

// Attach wires the control protocol onto a data channel: our device
// info goes out on open, and onPeerInfo fires when the remote's info
// arrives. Control traffic is best effort; a broken channel never
// fails the call.
func Attach(dc *webrtc.DataChannel, onPeerInfo func(DeviceInfoPayload)) {
	dc.OnOpen(func() {
		msg, err := NewMessage(MessageTypeDeviceInfo, LocalDeviceInfo())
		if err != nil {
			return
		}
		data, err := msgpack.Marshal(msg)
		if err != nil {
			return
		}
		if err := dc.Send(data); err != nil {
			slog.Debug("control channel send failed", "err", err)
		}
	})

	dc.OnMessage(func(raw webrtc.DataChannelMessage) {
		var msg Message
		if err := msgpack.Unmarshal(raw.Data, &msg); err != nil {
			slog.Debug("control channel message unreadable", "err", err)
			return
		}

		switch msg.Type {
		case MessageTypeDeviceInfo:
			var info DeviceInfoPayload
			if err := msg.DecodePayload(&info); err != nil {
				return
			}
			if onPeerInfo != nil {
				onPeerInfo(info)
			}
		}
	})
}
