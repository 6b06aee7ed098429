// Copyright 2025 The plainhttp Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/router"
)

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, string) {
	cfg := DefaultConfig()
	cfg.TimeoutIdleConnection = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := New(cfg)
	assert.NoError(t, err)
	registerTestRoutes(t, s)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	go s.Serve(ln)
	t.Cleanup(func() { s.Stop() })

	return s, ln.Addr().String()
}

func registerTestRoutes(t *testing.T, s *Server) {
	echo := router.MustNewRoute("/")
	echo.Handle("POST", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		body, err := req.BufferedBody(s.Config().MaxRequestBodyBufferSize)
		if err != nil {
			return nil, err
		}
		return httpmsg.Text(200, string(body)), nil
	})
	echo.Handle("GET", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		return httpmsg.Text(200, "root"), nil
	})
	assert.NoError(t, s.Routes().Add(echo))

	greet := router.MustNewRoute("/greet/:name")
	greet.Handle("GET", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		return httpmsg.Text(200, "hello "+req.Params["name"]), nil
	})
	assert.NoError(t, s.Routes().Add(greet))

	boom := router.MustNewRoute("/boom")
	boom.Handle("GET", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		panic("boom")
	})
	assert.NoError(t, s.Routes().Add(boom))
}

type testResponse struct {
	status  int
	headers map[string][]string
	body    string
}

func (r testResponse) header(name string) string {
	vs := r.headers[strings.ToLower(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func readResponse(t *testing.T, br *bufio.Reader) testResponse {
	line, err := br.ReadString('\n')
	assert.NoError(t, err)

	fields := strings.Fields(strings.TrimSpace(line))
	assert.GreaterOrEqual(t, len(fields), 2, "status line %q", line)
	status, err := strconv.Atoi(fields[1])
	assert.NoError(t, err)

	resp := testResponse{status: status, headers: make(map[string][]string)}
	for {
		line, err := br.ReadString('\n')
		assert.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, _ := strings.Cut(line, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		resp.headers[name] = append(resp.headers[name], strings.TrimSpace(value))
	}

	if cl := resp.header("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		assert.NoError(t, err)
		body := make([]byte, n)
		_, err = io.ReadFull(br, body)
		assert.NoError(t, err)
		resp.body = string(body)
	}
	return resp
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	nc, err := net.Dial("tcp", addr)
	assert.NoError(t, err)
	t.Cleanup(func() { nc.Close() })
	return nc, bufio.NewReader(nc)
}

func TestRequestBodyEcho(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte(
		"POST / HTTP/1.1\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Length: 4\r\n\r\nJohn"))
	assert.NoError(t, err)

	resp := readResponse(t, br)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, "text/plain; charset=utf-8", resp.header("Content-Type"))
	assert.Equal(t, "4", resp.header("Content-Length"))
	assert.Equal(t, "John", resp.body)
}

func TestExpect100Continue(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte(
		"POST / HTTP/1.1\r\nContent-Type: text/plain;charset=utf-8\r\nContent-Length: 3\r\nExpect: 100-continue\r\n\r\n"))
	assert.NoError(t, err)

	// 首次 body 访问触发 100
	interim := readResponse(t, br)
	assert.Equal(t, 100, interim.status)

	_, err = nc.Write([]byte("Hi!"))
	assert.NoError(t, err)

	resp := readResponse(t, br)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, "3", resp.header("Content-Length"))
	assert.Equal(t, "Hi!", resp.body)
}

func TestPersistentConnection(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	for i := 0; i < 3; i++ {
		_, err := nc.Write([]byte("GET /greet/world HTTP/1.1\r\nHost: x\r\n\r\n"))
		assert.NoError(t, err)

		resp := readResponse(t, br)
		assert.Equal(t, 200, resp.status)
		assert.Equal(t, "hello world", resp.body)
		assert.Empty(t, resp.header("Connection"))
	}
}

func TestChunkedRequestBody(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte(
		"POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nABCDE\r\n0\r\n\r\n"))
	assert.NoError(t, err)

	resp := readResponse(t, br)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, "ABCDE", resp.body)
}

func TestNoRouteFound(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("GET /missing HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 404, readResponse(t, br).status)
}

func TestMethodNotAllowed(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("DELETE /greet/x HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)

	resp := readResponse(t, br)
	assert.Equal(t, 405, resp.status)
	assert.Equal(t, "GET", resp.header("Allow"))
}

func TestOptionsFallback(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("OPTIONS / HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)

	resp := readResponse(t, br)
	assert.Equal(t, 204, resp.status)
	assert.Equal(t, "GET, POST", resp.header("Allow"))
}

func TestOptionsFallbackDisabled(t *testing.T) {
	_, addr := newTestServer(t, func(c *Config) {
		c.ImplementMissingOptions = false
	})
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("OPTIONS / HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 405, readResponse(t, br).status)
}

func TestHeadFallsBackToGet(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("HEAD / HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)

	line, err := br.ReadString('\n')
	assert.NoError(t, err)
	assert.Contains(t, line, "200")

	// head 之后直到空行均为 header 不应出现 body
	sawLength := false
	for {
		line, err := br.ReadString('\n')
		assert.NoError(t, err)
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length") {
			sawLength = true
		}
	}
	assert.True(t, sawLength)

	// 连接仍可复用 且上一响应没有写出 body
	_, err = nc.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)
	resp := readResponse(t, br)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, "root", resp.body)
}

func TestHTTP10Closes(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	assert.NoError(t, err)

	resp := readResponse(t, br)
	assert.Equal(t, 200, resp.status)
	assert.Equal(t, "close", resp.header("Connection"))

	_, err = br.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestVersionTooOld(t *testing.T) {
	_, addr := newTestServer(t, func(c *Config) {
		c.MinHTTPVersion = "HTTP/1.1"
	})
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	assert.NoError(t, err)

	resp := readResponse(t, br)
	assert.Equal(t, 426, resp.status)
	assert.Equal(t, "HTTP/1.1", resp.header("Upgrade"))
}

func TestVersionTooNew(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("GET / HTTP/2.0\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 505, readResponse(t, br).status)
}

func TestTraceWithBodyRejected(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("TRACE / HTTP/1.1\r\nContent-Length: 2\r\n\r\nxx"))
	assert.NoError(t, err)
	assert.Equal(t, 400, readResponse(t, br).status)
}

func TestConflictingFraming(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte(
		"POST / HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 400, readResponse(t, br).status)
}

func TestUnsupportedTransferCoding(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked, gzip\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 501, readResponse(t, br).status)
}

func TestErrorStreakClosesConnection(t *testing.T) {
	_, addr := newTestServer(t, func(c *Config) {
		c.MaxErrorResponses = 2
	})
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("GET /missing HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)
	first := readResponse(t, br)
	assert.Equal(t, 404, first.status)
	assert.Empty(t, first.header("Connection"))

	_, err = nc.Write([]byte("GET /missing HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)
	second := readResponse(t, br)
	assert.Equal(t, 404, second.status)
	assert.Equal(t, "close", second.header("Connection"))

	_, err = br.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestErrorStreakResets(t *testing.T) {
	_, addr := newTestServer(t, func(c *Config) {
		c.MaxErrorResponses = 2
	})
	nc, br := dial(t, addr)

	for i := 0; i < 3; i++ {
		_, err := nc.Write([]byte("GET /missing HTTP/1.1\r\n\r\n"))
		assert.NoError(t, err)
		assert.Equal(t, 404, readResponse(t, br).status)

		_, err = nc.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
		assert.NoError(t, err)
		resp := readResponse(t, br)
		assert.Equal(t, 200, resp.status)
		assert.Empty(t, resp.header("Connection"))
	}
}

func TestHandlerPanicMapsTo500(t *testing.T) {
	_, addr := newTestServer(t, nil)
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte("GET /boom HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 500, readResponse(t, br).status)
}

func TestHeadSizeLimit(t *testing.T) {
	_, addr := newTestServer(t, func(c *Config) {
		c.MaxRequestHeadSize = 64
	})
	nc, br := dial(t, addr)

	_, err := nc.Write([]byte(
		"GET / HTTP/1.1\r\nPadding: " + strings.Repeat("x", 128) + "\r\n\r\n"))
	assert.NoError(t, err)

	resp := readResponse(t, br)
	assert.Equal(t, 413, resp.status)
	assert.Equal(t, "close", resp.header("Connection"))
}

func TestIdleTimeout(t *testing.T) {
	_, addr := newTestServer(t, func(c *Config) {
		c.TimeoutIdleConnection = 100 * time.Millisecond
	})
	nc, br := dial(t, addr)

	// 不发送任何字节 连接应当在超时后被静默关闭
	nc.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := br.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGracefulStop(t *testing.T) {
	s, addr := newTestServer(t, nil)

	nc, br := dial(t, addr)
	_, err := nc.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, 200, readResponse(t, br).status)

	assert.NoError(t, s.Stop())

	// 停机后拒绝新连接
	if nc2, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
		nc2.SetReadDeadline(time.Now().Add(time.Second))
		_, rerr := nc2.Read(make([]byte, 1))
		assert.Error(t, rerr)
		nc2.Close()
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "NegativeIdleTimeout", mutate: func(c *Config) { c.TimeoutIdleConnection = -time.Second }},
		{name: "NegativeFileLockTimeout", mutate: func(c *Config) { c.TimeoutFileLock = -time.Second }},
		{name: "ZeroHeadSize", mutate: func(c *Config) { c.MaxRequestHeadSize = 0 }},
		{name: "BadMinVersion", mutate: func(c *Config) { c.MinHTTPVersion = "SPDY/3" }},
		{name: "ZeroErrorResponses", mutate: func(c *Config) { c.MaxErrorResponses = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}
