package transport

import (
	"net"
	"testing"
)

func TestTCPDialerConnects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		close(accepted)
	}()

	conn, err := TCP(ln.Addr().String())()
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
	<-accepted
}
