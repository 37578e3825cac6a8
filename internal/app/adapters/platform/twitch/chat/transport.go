package chat

import (
	"bufio"
	"crypto/tls"
	"net"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/miwidot/twitchmod/internal/app/infrastructure/config"
)

// Transport is a line-oriented streaming connection to the chat
// endpoint. ReadLine is called from one goroutine only; WriteLine is
// serialized by the session's write mutex.
type Transport interface {
	Dial() error
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
}

func newTransport(cfg *config.Config) Transport {
	if cfg.IRC.Transport == "websocket" {
		return &wsTransport{url: cfg.IRC.WebsocketURL}
	}
	return &tcpTransport{addr: cfg.IRC.Address}
}

type tcpTransport struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
}

func (t *tcpTransport) Dial() error {
	conn, err := tls.Dial("tcp", t.addr, &tls.Config{MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}

	t.conn = conn
	t.reader = bufio.NewReader(conn)
	return nil
}

func (t *tcpTransport) ReadLine() (string, error) {
	return t.reader.ReadString('\n')
}

func (t *tcpTransport) WriteLine(line string) error {
	_, err := t.conn.Write([]byte(line + "\r\n"))
	return err
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// wsTransport speaks the same line protocol over a websocket; one frame
// may carry several lines, buffered in pending.
type wsTransport struct {
	url     string
	conn    *websocket.Conn
	pending []string
}

func (t *wsTransport) Dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
	if err != nil {
		return err
	}

	t.conn = conn
	return nil
}

func (t *wsTransport) ReadLine() (string, error) {
	for len(t.pending) == 0 {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}

		for _, line := range strings.Split(string(data), "\r\n") {
			if line != "" {
				t.pending = append(t.pending, line)
			}
		}
	}

	line := t.pending[0]
	t.pending = t.pending[1:]
	return line, nil
}

func (t *wsTransport) WriteLine(line string) error {
	return t.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
