package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/Jon-Bright/mmcmectl/mmcme"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var port int

// Server accepts line-based commands over TCP and runs them against one
// clock. The clock serializes the calls; the server only has to track the
// parent rate, which clients may change to follow a reconfigured parent.
type Server struct {
	clk *mmcme.Clock
	l   net.Listener

	mu     sync.Mutex
	parent uint64
}

func newServer(clk *mmcme.Clock, parent uint64) *Server {
	return &Server{clk: clk, parent: parent}
}

func NewServer(port int, clk *mmcme.Clock, parent uint64) (*Server, error) {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	s := newServer(clk, parent)
	s.l = l
	glog.Infof("Listening on port %d", port)
	return s, nil
}

func (s *Server) Parent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parent
}

func (s *Server) setParent(p uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parent = p
}

func reply(w *bufio.Writer, r string) error {
	w.WriteString(r + "\n")
	return w.Flush()
}

// handleCommand runs one command and writes its reply.
func (s *Server) handleCommand(cmd, parms string, w *bufio.Writer) error {
	switch cmd {
	case "SET":
		target, err := parseHz(parms)
		if err != nil {
			return fmt.Errorf("error parsing rate: %v", err)
		}
		rate, err := s.clk.SetRate(target, s.Parent())
		if err != nil {
			return err
		}
		return reply(w, fmt.Sprintf("OK %d", rate))
	case "ROUND":
		target, err := parseHz(parms)
		if err != nil {
			return fmt.Errorf("error parsing rate: %v", err)
		}
		rate, err := s.clk.RoundRate(target, s.Parent())
		if err != nil {
			return err
		}
		return reply(w, fmt.Sprint(rate))
	case "RECALC":
		rate, err := s.clk.RecalcRate(s.Parent())
		if err != nil {
			return err
		}
		return reply(w, fmt.Sprint(rate))
	case "PARENT":
		if parms == "" {
			return reply(w, fmt.Sprint(s.Parent()))
		}
		p, err := parseHz(parms)
		if err != nil {
			return fmt.Errorf("error parsing rate: %v", err)
		}
		glog.Infof("Parent %s now %d Hz", s.clk.ParentName(), p)
		s.setParent(p)
		return reply(w, "OK")
	case "CONFIG":
		c, ok := s.clk.Config()
		if !ok {
			return mmcme.ErrNotConfigured
		}
		return reply(w, fmt.Sprintf("MUL %d PREDIV %d POSTDIV %d", c.Mul, c.PreDiv, c.PostDiv))
	}
	return fmt.Errorf("unknown command: %s", cmd)
}

func (s *Server) handleConnection(c net.Conn) {
	glog.Infof("Handling connection from %v", c.RemoteAddr())
	defer c.Close()
	r := bufio.NewReader(c)
	w := bufio.NewWriter(c)
	for {
		l, err := r.ReadString('\n')
		if err == io.EOF {
			glog.Infof("EOF for connection %v", c.RemoteAddr())
			return
		}
		if err != nil {
			glog.Warningf("Error reading string for connection %v: %v", c.RemoteAddr(), err)
			return
		}
		l = strings.TrimSpace(l)
		glog.V(1).Infof("Got line '%s'", l)
		t := strings.SplitN(l, " ", 2)
		cmd := strings.ToUpper(t[0])
		parms := ""
		if len(t) > 1 {
			parms = strings.TrimSpace(t[1])
		}
		if cmd == "QUIT" {
			return
		}
		err = s.handleCommand(cmd, parms, w)
		if err != nil {
			es := fmt.Sprintf("Error running %s: %v", cmd, err)
			glog.Warning(es)
			if err := reply(w, "ERR: "+es); err != nil {
				glog.Warningf("error writing error reply: %v", err)
			}
			return
		}
	}
}

func (s *Server) handleConnections() error {
	for {
		conn, err := s.l.Accept()
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		if err != nil {
			glog.Warningf("Error accepting connection: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) Close() error {
	return s.l.Close()
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve clock requests over TCP",
		Long: `Listen for line-based commands and run them against the clock:

  SET <rate>       program the clock, reply "OK <achieved rate>"
  ROUND <rate>     reply with the rate SET would achieve
  RECALC           reply with the current output rate
  PARENT [<rate>]  show or change the parent rate
  CONFIG           reply "MUL <m> PREDIV <d> POSTDIV <o>"
  QUIT             close the connection

Errors are answered with "ERR: <message>" and close the connection.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().IntVar(&port, "port", 24601, "The port that the server should listen to")
	return cmd
}

func runServe(_ *cobra.Command, _ []string) error {
	p, err := parent()
	if err != nil {
		return err
	}
	clk, closer, err := openClock()
	if err != nil {
		return err
	}
	defer closer()
	if !simulate {
		// Pick up whatever the hardware is already running, if it's usable.
		if c, err := clk.Sync(p); err != nil {
			glog.Warningf("Not adopting hardware state: %v", err)
		} else {
			glog.Infof("Running at %d Hz", c.Rate)
		}
	}
	s, err := NewServer(port, clk, p)
	if err != nil {
		return fmt.Errorf("couldn't create server: %v", err)
	}
	return s.handleConnections()
}
