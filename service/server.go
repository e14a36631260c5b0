// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/edgeo-scada/bacnetd/bacnet"
	"github.com/edgeo-scada/bacnetd/device"
	"github.com/edgeo-scada/bacnetd/internal/transport"
	"github.com/edgeo-scada/bacnetd/object"
)

// Server answers BACnet/IP requests against one device database. All
// requests are handled on the Serve goroutine, which keeps the
// database single-threaded.
type Server struct {
	dev    *device.Device
	tr     *transport.UDPTransport
	logger *slog.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithServerLogger sets the structured logger
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a server for a device on a transport
func NewServer(dev *device.Device, tr *transport.UDPTransport, opts ...ServerOption) *Server {
	s := &Server{
		dev:    dev,
		tr:     tr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve opens the transport and answers requests until the context is
// canceled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.tr.Open(ctx); err != nil {
		return err
	}
	defer s.tr.Close()

	go func() {
		<-ctx.Done()
		s.tr.Close()
	}()

	s.logger.Info("serving", "addr", s.tr.LocalAddr().String(),
		"device", s.dev.Instance())

	if err := s.announce(ctx); err != nil {
		s.logger.Warn("startup I-Am failed", "error", err)
	}

	for {
		frame, peer, err := s.tr.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || s.tr.IsClosed() {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}
		s.handleFrame(ctx, peer, frame)
	}
}

// announce broadcasts an unsolicited I-Am at startup
func (s *Server) announce(ctx context.Context) error {
	payload, err := EncodeIAm(s.dev.Instance(), bacnet.MaxAPDULength, bacnet.SegmentationNone, s.dev.VendorID())
	if err != nil {
		return err
	}
	apdu := EncodeUnconfirmedRequest(ServiceUnconfirmedIAm, payload)
	return s.tr.Broadcast(ctx, transport.DefaultPort, s.frame(BVLCOriginalBroadcastNPDU, apdu))
}

// frame wraps an APDU in NPDU and BVLC headers
func (s *Server) frame(function BVLCFunction, apdu []byte) []byte {
	npdu := EncodeNPDU(false)
	out := make([]byte, 0, 4+len(npdu)+len(apdu))
	out = append(out, EncodeBVLC(function, len(npdu)+len(apdu))...)
	out = append(out, npdu...)
	out = append(out, apdu...)
	return out
}

func (s *Server) handleFrame(ctx context.Context, peer *net.UDPAddr, frame []byte) {
	bvlc, err := DecodeBVLC(frame)
	if err != nil {
		s.logger.Debug("dropping frame", "peer", peer.String(), "error", err)
		return
	}
	switch bvlc.Function {
	case BVLCOriginalUnicastNPDU, BVLCOriginalBroadcastNPDU:
	default:
		s.logger.Debug("ignoring BVLC function", "function", uint8(bvlc.Function))
		return
	}

	npdu, err := DecodeNPDU(frame[4:])
	if err != nil {
		s.logger.Debug("dropping NPDU", "peer", peer.String(), "error", err)
		return
	}

	apdu, err := DecodeAPDU(npdu.Data)
	if err != nil {
		s.logger.Debug("dropping APDU", "peer", peer.String(), "error", err)
		return
	}

	switch apdu.Type {
	case PDUTypeConfirmedRequest:
		s.handleConfirmed(ctx, peer, apdu)
	case PDUTypeUnconfirmedRequest:
		s.handleUnconfirmed(ctx, peer, apdu)
	}
}

func (s *Server) reply(ctx context.Context, peer *net.UDPAddr, apdu []byte) {
	if err := s.tr.Send(ctx, peer, s.frame(BVLCOriginalUnicastNPDU, apdu)); err != nil {
		s.logger.Warn("send failed", "peer", peer.String(), "error", err)
	}
}

func (s *Server) handleConfirmed(ctx context.Context, peer *net.UDPAddr, apdu *APDU) {
	service := ConfirmedServiceChoice(apdu.Service)

	if apdu.Segmented {
		s.reply(ctx, peer, EncodeAbort(apdu.InvokeID, bacnet.AbortReasonSegmentationNotSupported))
		return
	}

	var out []byte
	var err error
	switch service {
	case ServiceConfirmedReadProperty:
		out, err = s.readProperty(apdu.Data)
	case ServiceConfirmedWriteProperty:
		err = s.writeProperty(apdu.Data)
	case ServiceConfirmedCreateObject:
		out, err = s.createObject(apdu.Data)
	case ServiceConfirmedDeleteObject:
		err = s.deleteObject(apdu.Data)
	default:
		s.reply(ctx, peer, EncodeReject(apdu.InvokeID, bacnet.RejectReasonUnrecognizedService))
		return
	}

	if err != nil {
		var pair *bacnet.Error
		if errors.As(err, &pair) {
			s.logger.Debug("request failed", "service", service.String(),
				"class", pair.Class.String(), "code", pair.Code.String())
			s.reply(ctx, peer, EncodeError(apdu.InvokeID, service, pair))
		} else {
			s.logger.Debug("malformed request", "service", service.String(), "error", err)
			s.reply(ctx, peer, EncodeReject(apdu.InvokeID, bacnet.RejectReasonInvalidTag))
		}
		return
	}

	if out != nil {
		s.reply(ctx, peer, EncodeComplexAck(apdu.InvokeID, service, out))
	} else {
		s.reply(ctx, peer, EncodeSimpleAck(apdu.InvokeID, service))
	}
}

func (s *Server) handleUnconfirmed(ctx context.Context, peer *net.UDPAddr, apdu *APDU) {
	switch UnconfirmedServiceChoice(apdu.Service) {
	case ServiceUnconfirmedWhoIs:
		req, err := DecodeWhoIsRequest(apdu.Data)
		if err != nil {
			s.logger.Debug("malformed Who-Is", "peer", peer.String(), "error", err)
			return
		}
		if !req.Matches(s.dev.Instance()) {
			return
		}
		payload, err := EncodeIAm(s.dev.Instance(), bacnet.MaxAPDULength, bacnet.SegmentationNone, s.dev.VendorID())
		if err != nil {
			return
		}
		s.reply(ctx, peer, EncodeUnconfirmedRequest(ServiceUnconfirmedIAm, payload))
	}
}

func (s *Server) readProperty(data []byte) ([]byte, error) {
	req, err := DecodeReadPropertyRequest(data)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, bacnet.MaxAPDULength)
	n, err := s.dev.ReadProperty(&object.ReadRequest{
		ObjectType: req.ObjectID.Type,
		Instance:   req.ObjectID.Instance,
		Property:   req.Property,
		ArrayIndex: req.ArrayIndex,
	}, buf)
	if err != nil {
		return nil, err
	}
	return EncodeReadPropertyAck(req, buf[:n])
}

func (s *Server) writeProperty(data []byte) error {
	req, err := DecodeWritePropertyRequest(data)
	if err != nil {
		return err
	}
	return s.dev.WriteProperty(&object.WriteRequest{
		ObjectType: req.ObjectID.Type,
		Instance:   req.ObjectID.Instance,
		Property:   req.Property,
		ArrayIndex: req.ArrayIndex,
		Priority:   req.Priority,
		Data:       req.Value,
	})
}

func (s *Server) createObject(data []byte) ([]byte, error) {
	req, err := DecodeCreateObjectRequest(data)
	if err != nil {
		return nil, err
	}
	instance, err := s.dev.CreateObject(req.ObjectID.Type, req.ObjectID.Instance)
	if err != nil {
		return nil, err
	}
	return EncodeCreateObjectAck(bacnet.NewObjectIdentifier(req.ObjectID.Type, instance))
}

func (s *Server) deleteObject(data []byte) error {
	id, err := DecodeDeleteObjectRequest(data)
	if err != nil {
		return err
	}
	return s.dev.DeleteObject(id.Type, id.Instance)
}
