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
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/plainhttp/plainhttp/common"
	"github.com/plainhttp/plainhttp/httperr"
	"github.com/plainhttp/plainhttp/internal/byteseq"
	"github.com/plainhttp/plainhttp/logger"
)

// conn 一条对端连接的全部状态
//
// buffer 读游标与空闲计时均为连接 goroutine 独占
// busy 标记当前是否有在途 exchange 供优雅停机判断
type conn struct {
	srv *Server
	nc  net.Conn
	id  string

	cur       *byteseq.Cursor
	errStreak int

	busy      atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newConn(s *Server, nc net.Conn) *conn {
	c := &conn{
		srv: s,
		nc:  nc,
		id:  uuid.New().String(),
	}
	c.cur = byteseq.NewCursor(byteseq.FromReader(&deadlineReader{c: c}, common.ReadWriteBlockSize))
	return c
}

// serve 连接主循环 依次驱动 exchange 直至关闭条件出现
func (c *conn) serve() {
	defer c.close()

	logger.Debugf("conn %s accepted from %s", c.id, c.nc.RemoteAddr())
	for {
		if c.srv.Stopped() {
			return
		}

		ex := newExchange(c)
		keepAlive := ex.run()
		if !keepAlive {
			return
		}
	}
}

// close 幂等关闭底层连接
func (c *conn) close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.nc.Close()
		logger.Debugf("conn %s closed", c.id)
	})
	return c.closeErr
}

// idleTimeout 统一的超时错误
func idleTimeout(op string) error {
	idleTimeouts.Inc()
	return httperr.New(httperr.KindIdleTimeout, "idle-connection-timeout during %s", op)
}

// isTimeout 返回网络错误是否为超时
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// deadlineReader 每次读取前武装空闲计时
//
// 计时只覆盖真实的 I/O 操作 handler 执行期间不会触发
type deadlineReader struct {
	c *conn
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	c := r.c
	if d := c.srv.config.TimeoutIdleConnection; d > 0 {
		if err := c.nc.SetReadDeadline(time.Now().Add(d)); err != nil {
			return 0, err
		}
	}
	n, err := c.nc.Read(p)
	if n > 0 {
		readBytes.Add(float64(n))
	}
	if err != nil && isTimeout(err) {
		return n, idleTimeout("read")
	}
	return n, err
}

// write 每次写出前武装空闲计时
func (c *conn) write(p []byte) error {
	if d := c.srv.config.TimeoutIdleConnection; d > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(d)); err != nil {
			return err
		}
	}
	n, err := c.nc.Write(p)
	if n > 0 {
		writtenBytes.Add(float64(n))
	}
	if err != nil {
		if isTimeout(err) {
			return idleTimeout("write")
		}
		return errors.Wrap(err, "server: write")
	}
	return nil
}
