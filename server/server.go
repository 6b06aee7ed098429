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

// Package server 实现 HTTP/1.0 与 HTTP/1.1 的连接循环与 exchange 状态机
//
// 每条连接一个 goroutine 连接内解析 分发与写出严格串行
// 不做任何隐式缓冲与隐式重试 所有行为由配置显式决定
package server

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/net/netutil"

	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/internal/rescue"
	"github.com/plainhttp/plainhttp/logger"
	"github.com/plainhttp/plainhttp/router"
)

func newError(format string, args ...any) error {
	format = "server: " + format
	return errors.Errorf(format, args...)
}

// ErrServerStopped Serve 因 Stop 退出
var ErrServerStopped = newError("server stopped")

// ErrorHandler 应用层的错误拦截器
//
// 返回的 handled 为 true 时使用返回的响应 否则交还中央错误映射
type ErrorHandler func(err error, req *httpmsg.Request) (resp *httpmsg.Response, handled bool)

// Server HTTP 服务端
type Server struct {
	config Config
	routes *router.Registry

	errHandler ErrorHandler

	mu      sync.Mutex
	ln      net.Listener
	conns   map[*conn]struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// New 创建并返回 Server 实例
func New(config Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		config: config,
		routes: router.New(),
		conns:  make(map[*conn]struct{}),
	}, nil
}

// Routes 返回路由注册表 运行期可安全增删路由
func (s *Server) Routes() *router.Registry {
	return s.routes
}

// Config 返回服务端配置副本
func (s *Server) Config() Config {
	return s.config
}

// SetErrorHandler 设置应用层错误拦截器 必须在 Serve 之前调用
func (s *Server) SetErrorHandler(h ErrorHandler) {
	s.errHandler = h
}

// ListenAndServe 监听配置地址并开始服务
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在给定 listener 上服务 直到 Stop 或不可恢复的 accept 错误
func (s *Server) Serve(ln net.Listener) error {
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}

	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		return ErrServerStopped
	}
	s.ln = ln
	s.mu.Unlock()

	logger.Infof("server listening on %s", ln.Addr())

	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.stopped.Load() {
				return ErrServerStopped
			}
			return err
		}

		c := newConn(s, nc)
		s.mu.Lock()
		if s.stopped.Load() {
			s.mu.Unlock()
			nc.Close()
			continue
		}
		s.conns[c] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		acceptedConns.Inc()
		activeConns.Inc()

		go func() {
			defer rescue.HandleCrash()
			defer func() {
				s.removeConn(c)
				activeConns.Dec()
				s.wg.Done()
			}()
			c.serve()
		}()
	}
}

func (s *Server) removeConn(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Stopped 返回 Stop 是否已经被调用
func (s *Server) Stopped() bool {
	return s.stopped.Load()
}

// Stop 优雅停机
//
// acceptor 立刻拒绝新连接 进行中的 exchange 允许完成当次请求响应
// 空闲连接直接关闭 所有连接退出后返回 关闭过程中的错误聚合返回
func (s *Server) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	var result *multierror.Error

	s.mu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	// 空闲连接无在途 exchange 直接关闭 忙碌连接完成当次后自行退出
	for c := range s.conns {
		if !c.busy.Load() {
			if err := c.close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
	logger.Infof("server stopped, all connections drained")
	return result.ErrorOrNil()
}
