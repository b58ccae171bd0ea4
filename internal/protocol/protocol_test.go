package protocol

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwm2mgo/lwm2m/internal/endpoint"
	"github.com/lwm2mgo/lwm2m/internal/registration"
	"github.com/lwm2mgo/lwm2m/internal/transport"
)

// pipeServer answers every request line it reads with response, once.
func pipeServer(t *testing.T, conn net.Conn, response string) {
	t.Helper()
	go func() {
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := conn.Write([]byte(response + "\n")); err != nil {
				return
			}
		}
	}()
}

func boundServer(t *testing.T, response string) (*Client, *registration.ActiveServer) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })
	pipeServer(t, serverConn, response)

	c := New(Config{EndpointName: "dev1", LifetimeS: 3600, Binding: "U"}, endpoint.Endpoint{Host: "example.com", Port: "5683"}, transport.Config{})
	server := registration.NewActiveServer(7, false)
	server.Transport = clientConn

	require.NoError(t, c.Bind(context.Background(), server))
	t.Cleanup(c.Release)
	return c, server
}

func TestRegister_ParsesGrantedLifetime(t *testing.T) {
	c, server := boundServer(t, "REGISTERED 1200")

	err := c.Register(context.Background(), server)

	require.NoError(t, err)
	assert.Equal(t, int64(1200), server.Info().LifetimeS)
}

func TestRegister_UnexpectedResponseIsError(t *testing.T) {
	c, server := boundServer(t, "GARBAGE")

	err := c.Register(context.Background(), server)

	assert.Error(t, err)
}

func TestUpdate_RejectedResponse(t *testing.T) {
	c, server := boundServer(t, "REJECTED")

	result, err := c.Update(context.Background(), server)

	require.NoError(t, err)
	assert.Equal(t, registration.UpdateRejected, result)
}

func TestUpdate_AcceptedRefreshesDeadline(t *testing.T) {
	c, server := boundServer(t, "REGISTERED 600")

	result, err := c.Update(context.Background(), server)

	require.NoError(t, err)
	assert.Equal(t, registration.UpdateOK, result)
	assert.Equal(t, int64(600), server.Info().LifetimeS)
}

func TestDeregister_Succeeds(t *testing.T) {
	c, server := boundServer(t, "OK")

	err := c.Deregister(context.Background(), server)

	assert.NoError(t, err)
}

func TestBind_FailsWithoutConnection(t *testing.T) {
	c := New(Config{}, endpoint.Endpoint{Host: "example.com", Port: "5683"}, transport.Config{})
	server := registration.NewActiveServer(7, false)

	err := c.Bind(context.Background(), server)

	assert.Error(t, err)
}

func TestIsOnline_FalseWithoutConnection(t *testing.T) {
	c := New(Config{}, endpoint.Endpoint{Host: "example.com", Port: "5683"}, transport.Config{})
	server := registration.NewActiveServer(7, false)

	assert.False(t, c.IsOnline(server))
}

func TestSuspend_ClosesConnectionAndResetsConnType(t *testing.T) {
	c := New(Config{}, endpoint.Endpoint{Host: "example.com", Port: "5683"}, transport.Config{})
	server := registration.NewActiveServer(7, false)
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	server.Transport = clientConn
	server.SetInfo(registration.RegistrationInfo{ConnType: registration.ConnTypeUDP})

	c.Suspend(server)

	assert.False(t, c.IsOnline(server))
	assert.Equal(t, registration.ConnTypeWildcard, server.Info().ConnType)
}
