package ws

import (
	"bytes"
	"encoding/base64"
	"io"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/novarelay/tunrelay/utils"
)

// Server terminates inbound WebSocket handshakes for a single listener
// path.
type Server struct {
	UseEarlyData bool
	Thepath      string
}

// NewServer builds a Server matching requests to path, which must
// start with "/"; this is not checked.
func NewServer(path string, useEarlyData bool) *Server {
	return &Server{Thepath: path, UseEarlyData: useEarlyData}
}

// Handshake completes the WebSocket upgrade on underlay, optionally
// replaying bytes already buffered ahead of it (optionalFirstBuffer),
// and returns a net.Conn that reads/writes binary frames.
func (s *Server) Handshake(optionalFirstBuffer *bytes.Buffer, underlay net.Conn) (net.Conn, error) {
	var thePotentialEarlyData []byte

	upgrader := &ws.Upgrader{
		// OnRequest filters the path here instead of handing the raw
		// request to net/http, since the Listener already owns the
		// connection before any HTTP framing is assumed.
		OnRequest: func(uri []byte) error {
			if string(uri) != s.Thepath {
				if ce := utils.CanLogWarn("ws path not match"); ce != nil {
					ce.Write(zap.String("got", string(uri)), zap.String("want", s.Thepath))
				}
				return ws.RejectConnectionError(ws.RejectionStatus(http.StatusNotFound))
			}
			return nil
		},
	}

	if s.UseEarlyData {
		// Early data rides in Sec-WebSocket-Protocol as base64, the
		// same convention xray/v2ray use since the WebSocket standard
		// has no native 0-RTT.
		upgrader.ProtocolCustom = func(b []byte) (string, bool) {
			if len(b) > MaxEarlyDataLen_Base64 {
				return "", true
			}
			bs, err := base64.RawURLEncoding.DecodeString(string(b))
			if err != nil {
				return "", false
			}
			thePotentialEarlyData = bs
			return "", true
		}
	}

	var reader io.Reader = underlay
	if optionalFirstBuffer != nil {
		reader = io.MultiReader(optionalFirstBuffer, underlay)
	}

	rw := utils.RW{Reader: reader, Writer: underlay}
	if _, err := upgrader.Upgrade(rw); err != nil {
		return nil, err
	}

	conn := &Conn{
		Conn:  underlay,
		state: ws.StateServerSide,
		r:     wsutil.NewServerSideReader(underlay),
	}
	conn.r.OnIntermediate = wsutil.ControlFrameHandler(underlay, ws.StateServerSide)

	if len(thePotentialEarlyData) > 0 {
		conn.serverEndGotEarlyData = thePotentialEarlyData
	}
	conn.StartPing()

	return conn, nil
}
