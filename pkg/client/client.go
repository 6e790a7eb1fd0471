// Package client talks to a running idlehook daemon over its control socket.
package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/Veraticus/idlehook/pkg/protocol"
)

// Client is a connection to the daemon. Requests are answered in order.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to the socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Send writes msg and waits for its reply.
func (c *Client) Send(msg protocol.Message) (protocol.Reply, error) {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return protocol.Reply{}, err
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return protocol.Reply{}, fmt.Errorf("failed to send request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("failed to read reply: %w", err)
	}

	var reply protocol.Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		return protocol.Reply{}, fmt.Errorf("invalid reply: %w", err)
	}
	return reply, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
