package dcc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

// SendState is a DCC SEND transfer's lifecycle state.
type SendState int

const (
	SendOffered SendState = iota
	SendListening
	SendConnecting
	SendTransferring
	SendComplete
	SendFailed
)

// SendObserver receives SEND transfer events.
type SendObserver interface {
	SendStateChanged(s *Send, state SendState)
	SendProgress(s *Send, transferred int64)
	SendError(s *Send, err error)
}

// Send implements DCC SEND, in either the Upload (we offer,
// peer connects to us) or Download (we accept an offer, we connect to peer)
// role. File access is the caller's responsibility: Upload reads from an
// already-open io.ReaderAt, Download writes to an already-open io.WriterAt,
// so an access-denied error at open time is surfaced by the caller before a
// Send value is ever constructed, per "Access-denied on open
// surfaces to the UI which may retry."
type Send struct {
	ID ID
	Role Role
	FileName string
	Size int64
	FastSend bool

	mu sync.Mutex
	state SendState
	conn net.Conn
	listener net.Listener
	transferred int64
	startOffset int64
	timer *time.Timer

	source io.ReaderAt // set for Upload
	dest io.WriterAt // set for Download

	sampler *SpeedSampler
	obs SendObserver
}

// NewUpload constructs a Send in the Upload role, reading file content from
// source starting at offset 0 unless a resume request changes it.
func NewUpload(fileName string, size int64, fastSend bool, source io.ReaderAt, obs SendObserver) *Send {
	return &Send{
		ID: NewID(),
		Role: RoleOffer,
		FileName: fileName,
		Size: size,
		FastSend: fastSend,
		source: source,
		sampler: NewSpeedSampler(),
		obs: obs,
	}
}

// NewDownload constructs a Send in the Download role, writing received
// packets into dest.
func NewDownload(fileName string, size int64, dest io.WriterAt, obs SendObserver) *Send {
	return &Send{
		ID: NewID(),
		Role: RoleAccept,
		FileName: fileName,
		Size: size,
		dest: dest,
		sampler: NewSpeedSampler(),
		obs: obs,
	}
}

func (s *Send) State() SendState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Send) Transferred() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferred
}

func (s *Send) Sampler() *SpeedSampler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampler
}

func (s *Send) setState(st SendState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.obs.SendStateChanged(s, st)
}

// HandleResumeRequest processes a peer's DCC RESUME request against an
// Upload in progress, clamping offset to [0, Size] and recording it as the
// point transfer will begin from once the peer connects. The caller is
// responsible for sending the corresponding DCCAcceptReply with the
// returned offset.
func (s *Send) HandleResumeRequest(offset int64) int64 {
	if offset < 0 {
		offset = 0
	}
	if offset > s.Size {
		offset = s.Size
	}
	s.mu.Lock()
	s.startOffset = offset
	s.mu.Unlock()
	return offset
}

// PrepareResume records offset as the point a Download's Connect should
// begin writing at, after the caller has sent a DCC RESUME request and
// received back a matching DCC ACCEPT.
func (s *Send) PrepareResume(offset int64) {
	s.mu.Lock()
	s.startOffset = offset
	s.transferred = offset
	s.mu.Unlock()
}

// Listen opens a listener in r for the Upload role and begins transferring
// once the peer connects, : "open listener, advertise
// address/port/size. Peer connects -> we fragment the file into packets."
func (s *Send) Listen(r PortRange, proxyProtocol bool) (addr string, port int, err error) {
	l, p, err := Listen(r, proxyProtocol)
	if err != nil {
		return "", 0, err
	}
	s.mu.Lock()
	s.listener = l
	s.state = SendListening
	s.mu.Unlock()

	go s.acceptAndUpload()

	host, _, _ := net.SplitHostPort(l.Addr().String())
	return host, p, nil
}

func (s *Send) acceptAndUpload() {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	conn, err := l.Accept()
	l.Close()
	if err != nil {
		s.fail(fmt.Errorf("dcc send: accept: %w", err))
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.transferred = s.startOffset
	s.mu.Unlock()
	s.setState(SendTransferring)
	s.sampler.Start(s.Transferred)
	defer s.sampler.Stop()
	if err := s.uploadLoop(); err != nil {
		s.fail(err)
		return
	}
	s.setState(SendComplete)
}

func (s *Send) uploadLoop() error {
	s.mu.Lock()
	conn := s.conn
	offset := s.startOffset
	fastSend := s.FastSend
	s.mu.Unlock()

	buf := make([]byte, PacketSize)
	pos := offset

	if fastSend {
		for pos < s.Size {
			n, rerr := s.source.ReadAt(buf, pos)
			if n > 0 {
				if _, werr := conn.Write(buf[:n]); werr != nil {
					return fmt.Errorf("dcc send: write: %w", werr)
				}
				pos += int64(n)
				s.setTransferred(pos)
			}
			if rerr != nil && rerr != io.EOF {
				return fmt.Errorf("dcc send: read file: %w", rerr)
			}
			if rerr == io.EOF {
				break
			}
		}
		return s.awaitFinalAck(conn)
	}

	for pos < s.Size {
		n, rerr := s.source.ReadAt(buf, pos)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return fmt.Errorf("dcc send: write: %w", werr)
			}
			pos += int64(n)
			s.setTransferred(pos)
			if err := s.waitAck(conn, pos); err != nil {
				return err
			}
		}
		if rerr != nil && rerr != io.EOF {
			return fmt.Errorf("dcc send: read file: %w", rerr)
		}
		if rerr == io.EOF {
			break
		}
	}
	return nil
}

func (s *Send) waitAck(conn net.Conn, expect int64) error {
	var ackBuf [4]byte
	if _, err := io.ReadFull(conn, ackBuf[:]); err != nil {
		return fmt.Errorf("dcc send: read ack: %w", err)
	}
	got := int64(binary.BigEndian.Uint32(ackBuf[:]))
	if got != expect {
		return fmt.Errorf("dcc send: ack mismatch: got %d, want %d", got, expect)
	}
	return nil
}

func (s *Send) awaitFinalAck(conn net.Conn) error {
	return s.waitAck(conn, s.Size)
}

func (s *Send) setTransferred(n int64) {
	s.mu.Lock()
	s.transferred = n
	s.mu.Unlock()
	s.obs.SendProgress(s, n)
	s.resetInactivityTimer()
}

func (s *Send) resetInactivityTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(InactivityTimeout, func() {
		s.fail(fmt.Errorf("dcc send: inactivity timeout"))
		s.Close()
	})
}

func (s *Send) fail(err error) {
	s.setState(SendFailed)
	s.obs.SendError(s, err)
}

// Connect dials a peer's advertised address/port for the Download role and
// begins receiving, : "connect to remote, open file, receive
// packets, write, send ACK... after each write."
func (s *Send) Connect(addr string, port int) error {
	s.setState(SendConnecting)
	conn, err := net.Dial("tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		s.setState(SendFailed)
		return fmt.Errorf("dcc send: connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(SendTransferring)
	s.sampler.Start(s.Transferred)
	go func() {
		defer s.sampler.Stop()
		if err := s.downloadLoop(); err != nil {
			s.fail(err)
			return
		}
		s.setState(SendComplete)
	}()
	return nil
}

func (s *Send) downloadLoop() error {
	s.mu.Lock()
	conn := s.conn
	pos := s.startOffset
	s.mu.Unlock()
	s.setTransferred(pos)

	buf := make([]byte, PacketSize)
	for s.Size == 0 || pos < s.Size {
		n, rerr := conn.Read(buf)
		if n > 0 {
			if _, werr := s.dest.WriteAt(buf[:n], pos); werr != nil {
				return fmt.Errorf("dcc send: write file: %w", werr)
			}
			pos += int64(n)
			s.setTransferred(pos)

			var ackBuf [4]byte
			binary.BigEndian.PutUint32(ackBuf[:], uint32(pos))
			if _, werr := conn.Write(ackBuf[:]); werr != nil {
				return fmt.Errorf("dcc send: write ack: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("dcc send: read: %w", rerr)
		}
	}
	return nil
}

// Close() terminates the transfer, closing any listener or connection.
func (s *Send) Close() error {
	s.mu.Lock()
	l, conn := s.listener, s.conn
	s.listener, s.conn = nil, nil
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	if l != nil {
		l.Close()
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	return err
}
