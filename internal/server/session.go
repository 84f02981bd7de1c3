package server

import (
	"encoding/binary"
	"net"

	"github.com/lmaotrigine/klip/internal/errs"
	"github.com/lmaotrigine/klip/internal/netio"
	"github.com/lmaotrigine/klip/internal/proto"
	"github.com/lmaotrigine/klip/internal/store"
)

// serveConn runs one full connection lifetime: the four-message handshake
// followed by exactly one G/M/S command. The connection is closed by the
// caller.
func (s *Server) serveConn(conn net.Conn, ip net.IP) error {
	st := netio.New(conn)

	if err := st.SetTimeout(s.cfg.Timeout); err != nil {
		return err
	}

	h1, err := s.handshake(st)
	if err != nil {
		return err
	}

	if err := st.SetTimeout(s.cfg.Timeout); err != nil {
		return err
	}
	var opBuf [1]byte
	if err := st.ReadExact(opBuf[:]); err != nil {
		return err
	}
	op := proto.Opcode(opBuf[0])
	if !op.Valid() {
		return errs.Newf(errs.KindUnknownOp, "opcode %#x", opBuf[0])
	}

	// Only a peer who has completed the handshake reaches here, so it is
	// now safe to start trusting this address for admission purposes.
	s.trusted.add(ip)

	switch op {
	case proto.OpGet:
		return s.getOrMove(st, h1, op, false)
	case proto.OpMove:
		return s.getOrMove(st, h1, op, true)
	case proto.OpStore:
		return s.storeOp(st, h1)
	default:
		return errs.Newf(errs.KindUnknownOp, "opcode %#x", byte(op))
	}
}

// handshake performs the four-message exchange (client_version‖r‖h0,
// server_version‖r2‖h1) and returns h1, which is bound into every
// subsequent transcript tag this session computes.
func (s *Server) handshake(st *netio.Stream) ([proto.TagSize]byte, error) {
	var h1 [proto.TagSize]byte

	var hello [proto.ClientHelloSize]byte
	if err := st.ReadExact(hello[:]); err != nil {
		return h1, err
	}
	clientVersion := hello[0]
	var r [proto.RSize]byte
	copy(r[:], hello[1:1+proto.RSize])
	var h0 [proto.TagSize]byte
	copy(h0[:], hello[1+proto.RSize:])

	if clientVersion != proto.Version {
		return h1, errs.Newf(errs.KindProtocolMismatch, "client sent version %d, server speaks %d", clientVersion, proto.Version)
	}

	wantH0 := proto.H0(s.suite, s.cfg.PSK, clientVersion, r)
	if !s.suite.ConstantTimeEqual(wantH0[:], h0[:]) {
		return h1, errs.New(errs.KindAuth, "")
	}

	var r2 [proto.RSize]byte
	if err := s.suite.Random(r2[:]); err != nil {
		return h1, err
	}
	h1 = proto.H1(s.suite, s.cfg.PSK, clientVersion, h0, r2)

	var resp [proto.ServerHelloSize]byte
	resp[0] = proto.Version
	copy(resp[1:1+proto.RSize], r2[:])
	copy(resp[1+proto.RSize:], h1[:])
	if err := st.WriteAll(resp[:]); err != nil {
		return h1, err
	}
	return h1, st.Flush()
}

// getOrMove serves a get or move request: it reads and checks h2, switches
// to the bulk-transfer deadline unconditionally (mirroring the reference
// implementation, which never returns to the short timeout once it commits
// to a response), and writes the framed response. move additionally clears
// the slot.
func (s *Server) getOrMove(st *netio.Stream, h1 [proto.TagSize]byte, op proto.Opcode, take bool) error {
	var h2 [proto.TagSize]byte
	if err := st.ReadExact(h2[:]); err != nil {
		return err
	}
	wantH2 := proto.H2Get(s.suite, s.cfg.PSK, h1, op)
	if !s.suite.ConstantTimeEqual(wantH2[:], h2[:]) {
		return errs.New(errs.KindAuth, "")
	}

	var clip store.Clip
	if take {
		clip = s.clips.Take()
	} else {
		clip = s.clips.Snapshot()
	}

	if err := st.SetTimeout(s.cfg.DataTimeout); err != nil {
		return err
	}

	if clip.Empty() {
		h3 := proto.H3Get(s.suite, s.cfg.PSK, h2, 0, nil)
		var resp [proto.GetResponseHeaderSize]byte
		copy(resp[:proto.TagSize], h3[:])
		// payload_len stays zero.
		if err := st.WriteAll(resp[:]); err != nil {
			return err
		}
		return st.Flush()
	}

	h3 := proto.H3Get(s.suite, s.cfg.PSK, h2, clip.Timestamp, clip.Signature[:])

	header := make([]byte, proto.GetResponseHeaderSize+proto.GetResponseBodyHeaderSize)
	copy(header[:proto.TagSize], h3[:])
	binary.LittleEndian.PutUint64(header[proto.TagSize:proto.GetResponseHeaderSize], uint64(len(clip.Payload)))
	off := proto.GetResponseHeaderSize
	binary.LittleEndian.PutUint64(header[off:off+8], clip.Timestamp)
	copy(header[off+8:], clip.Signature[:])

	if err := st.WriteAll(header); err != nil {
		return err
	}
	if err := st.WriteAll(clip.Payload); err != nil {
		return err
	}
	return st.Flush()
}

// storeOp serves a store request: it reads the fixed-size request header in
// one call under the short timeout, validates h2, switches to the
// bulk-transfer deadline before reading the payload body, verifies the
// client's signature over the whole framed payload (the server never holds
// the decryption key, so this is the only integrity check it can perform),
// and installs the clip.
func (s *Server) storeOp(st *netio.Stream, h1 [proto.TagSize]byte) error {
	var hdr [proto.StoreRequestHeaderSize]byte
	if err := st.ReadExact(hdr[:]); err != nil {
		return err
	}

	var h2 [proto.TagSize]byte
	copy(h2[:], hdr[:proto.TagSize])
	payloadLen := binary.LittleEndian.Uint64(hdr[proto.TagSize : proto.TagSize+8])
	ts := binary.LittleEndian.Uint64(hdr[proto.TagSize+8 : proto.TagSize+16])
	var sig [proto.SignatureSize]byte
	copy(sig[:], hdr[proto.TagSize+16:])

	wantH2 := proto.H2Store(s.suite, s.cfg.PSK, h1, ts, sig)
	if !s.suite.ConstantTimeEqual(wantH2[:], h2[:]) {
		return errs.New(errs.KindAuth, "")
	}

	if payloadLen < proto.MinPayloadLen {
		return errs.Newf(errs.KindShort, "store payload %d bytes, need at least %d", payloadLen, proto.MinPayloadLen)
	}
	if s.cfg.MaxPayloadLen > 0 && payloadLen > s.cfg.MaxPayloadLen {
		return errs.Newf(errs.KindOversize, "store payload %d bytes exceeds limit %d", payloadLen, s.cfg.MaxPayloadLen)
	}

	if err := st.SetTimeout(s.cfg.DataTimeout); err != nil {
		return err
	}

	payload := make([]byte, payloadLen)
	if err := st.ReadExact(payload); err != nil {
		return err
	}

	if !s.suite.Verify(s.cfg.SignPK, payload, sig[:]) {
		return errs.New(errs.KindAuth, "")
	}

	s.clips.Replace(store.Clip{
		Timestamp: ts,
		Signature: sig,
		Payload:   payload,
	})

	h3 := proto.H3Store(s.suite, s.cfg.PSK, h2)
	if err := st.WriteAll(h3[:]); err != nil {
		return err
	}
	return st.Flush()
}
