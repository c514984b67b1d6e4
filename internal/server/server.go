package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"stratum/internal/engine"
)

// Server accepts TCP connections and dispatches each line to the engine
// through a Controller, which serializes concurrent access.
type Server struct {
	controller *engine.Controller
	addr       string
	listener   net.Listener
	wg         sync.WaitGroup
	stopCh     chan struct{}
}

// NewServer wraps controller with a TCP listener bound to addr (not yet
// listening — call Start).
func NewServer(addr string, controller *engine.Controller) *Server {
	return &Server{controller: controller, addr: addr, stopCh: make(chan struct{})}
}

// Start binds the listener and begins accepting connections in the
// background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	log.Info().Str("addr", s.addr).Msg("server listening")

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.Warn().Err(err).Msg("accept error")
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connID := uuid.NewString()
	log.Info().Str("conn", connID).Str("remote", conn.RemoteAddr().String()).Msg("connection opened")
	defer log.Info().Str("conn", connID).Msg("connection closed")

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		line, err := reader.ReadString('\r')
		if err != nil {
			if err != io.EOF {
				log.Warn().Str("conn", connID).Err(err).Msg("read error")
			}
			return
		}

		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			s.writeResponse(writer, "error: "+err.Error())
			continue
		}

		s.writeResponse(writer, s.execute(cmd))
	}
}

func (s *Server) execute(cmd *Command) string {
	switch cmd.Type {
	case CmdGet:
		v, found, err := s.controller.Get(cmd.Key)
		if err != nil {
			return "error: " + err.Error()
		}
		if !found {
			return "none"
		}
		return formatValue(v)

	case CmdSet:
		if err := s.controller.Set(cmd.Key, cmd.Value); err != nil {
			return "error: " + err.Error()
		}
		return "ok"

	case CmdDelete:
		if err := s.controller.Delete(cmd.Key); err != nil {
			return "error: " + err.Error()
		}
		return "ok"

	case CmdFlush:
		if err := s.controller.Flush(); err != nil {
			return "error: " + err.Error()
		}
		return "ok"

	case CmdCompact:
		if err := s.controller.Compact(); err != nil {
			return "error: " + err.Error()
		}
		return "ok"

	case CmdStatus:
		st := s.controller.Stats()
		return fmt.Sprintf("memtable_size=%s sstables=%d", humanize.Bytes(uint64(st.MemtableSize)), st.TableCount)

	default:
		return "error: unknown command"
	}
}

func (s *Server) writeResponse(w *bufio.Writer, response string) {
	w.WriteString(response)
	w.WriteString("\r")
	w.Flush()
}

// Stop closes the listener, waits for in-flight connections to finish, then
// shuts the controller down (flushing any remaining writes).
func (s *Server) Stop() error {
	close(s.stopCh)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return s.controller.Shutdown()
}
