package main

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/Jon-Bright/mmcmectl/mmcme"
	"github.com/Jon-Bright/mmcmectl/regs"
)

type testConn struct {
	t *testing.T
	c net.Conn
	r *bufio.Reader
}

func startTestServer(t *testing.T) (*Server, *regs.Mem, *testConn) {
	m := regs.NewMem(0x200)
	s := newServer(mmcme.New("", "periph_clock", m), 100*mmcme.MHz)
	sc, cc := net.Pipe()
	go s.handleConnection(sc)
	t.Cleanup(func() { cc.Close() })
	return s, m, &testConn{t, cc, bufio.NewReader(cc)}
}

func (tc *testConn) roundTrip(line string) string {
	tc.t.Helper()
	if _, err := io.WriteString(tc.c, line+"\n"); err != nil {
		tc.t.Fatalf("couldn't send %q: %v", line, err)
	}
	r, err := tc.r.ReadString('\n')
	if err != nil {
		tc.t.Fatalf("couldn't read reply to %q: %v", line, err)
	}
	return strings.TrimSpace(r)
}

func TestServerSession(t *testing.T) {
	s, m, tc := startTestServer(t)
	tests := []struct {
		line string
		want string
	}{
		{"round 148.5M", "147619041"},
		{"PARENT", "100000000"},
		{"SET 100M", "OK 100000000"},
		{"RECALC", "100000000"},
		{"CONFIG", "MUL 12 PREDIV 2 POSTDIV 6"},
		{"PARENT 50M", "OK"},
		{"RECALC", "50000000"},
		{"SET 74.25M", "OK 73750000"},
		{"CONFIG", "MUL 59 PREDIV 4 POSTDIV 10"},
	}
	for _, test := range tests {
		if got := tc.roundTrip(test.line); got != test.want {
			t.Errorf("%q got: %q, want: %q", test.line, got, test.want)
		}
	}
	if p := s.Parent(); p != 50*mmcme.MHz {
		t.Errorf("Parent got: %d, want: %d", p, 50*mmcme.MHz)
	}
	if n := len(m.Writes()); n != 10 {
		t.Errorf("got %d register writes, want 10", n)
	}
}

func TestServerErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"SET 1", "no solution found"},
		{"SET fast", "error parsing rate"},
		{"RECALC", "clock not configured"},
		{"CONFIG", "clock not configured"},
		{"PARENT 0", "error parsing rate"},
		{"DANCE", "unknown command: DANCE"},
	}
	for _, test := range tests {
		_, _, tc := startTestServer(t)
		got := tc.roundTrip(test.line)
		if !strings.HasPrefix(got, "ERR: ") || !strings.Contains(got, test.want) {
			t.Errorf("%q got: %q, want ERR containing %q", test.line, got, test.want)
		}
		// The server hangs up after an error.
		if _, err := tc.r.ReadString('\n'); err != io.EOF {
			t.Errorf("%q: after error got %v, want EOF", test.line, err)
		}
	}
}

func TestServerQuit(t *testing.T) {
	_, _, tc := startTestServer(t)
	if _, err := io.WriteString(tc.c, "QUIT\n"); err != nil {
		t.Fatalf("couldn't send QUIT: %v", err)
	}
	if _, err := tc.r.ReadString('\n'); err != io.EOF {
		t.Errorf("after QUIT got %v, want EOF", err)
	}
}

func TestServerListen(t *testing.T) {
	s, err := NewServer(0, mmcme.New("", "", regs.NewMem(0x200)), 100*mmcme.MHz)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	done := make(chan error)
	go func() { done <- s.handleConnections() }()

	c, err := net.Dial("tcp", s.l.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	tc := &testConn{t, c, bufio.NewReader(c)}
	if got := tc.roundTrip("SET 100M"); got != "OK 100000000" {
		t.Errorf("SET got: %q", got)
	}
	c.Close()

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("handleConnections returned %v", err)
	}
}
