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
	"time"

	"github.com/plainhttp/plainhttp/confengine"
	"github.com/plainhttp/plainhttp/httpmsg"
)

// Config 服务端全部可配置项
type Config struct {
	// Address 监听地址
	Address string `config:"address"`

	// MaxConnections 并发连接数上限 0 代表不限
	MaxConnections int `config:"maxConnections"`

	// MaxRequestHeadSize 请求头字节上限 超限响应 413
	MaxRequestHeadSize int `config:"maxRequestHeadSize"`

	// MaxRequestBodyBufferSize 缓冲式 body 读取的字节上限 超限响应 413
	MaxRequestBodyBufferSize int `config:"maxRequestBodyBufferSize"`

	// MaxRequestTrailersSize trailer section 字节上限 超限响应 413
	MaxRequestTrailersSize int `config:"maxRequestTrailersSize"`

	// MaxErrorResponses 连续 4xx/5xx 的次数阈值 达到后关闭连接
	MaxErrorResponses int `config:"maxErrorResponses"`

	// MinHTTPVersion 可接受的最低协议版本 更老的响应 426
	MinHTTPVersion string `config:"minHTTPVersion"`

	// DiscardRejectedInformational 对 HTTP/1.0 对端丢弃 1xx 而非报错
	DiscardRejectedInformational bool `config:"discardRejectedInformational"`

	// ImmediatelyContinueExpect100 dispatch 解析完成后立刻写出 100
	// 默认在首次访问 body 时才写出
	ImmediatelyContinueExpect100 bool `config:"immediatelyContinueExpect100"`

	// ImplementMissingOptions 未注册 OPTIONS 时以 204 + Allow 兜底
	ImplementMissingOptions bool `config:"implementMissingOptions"`

	// TimeoutIdleConnection 每次通道读写的空闲超时
	TimeoutIdleConnection time.Duration `config:"timeoutIdleConnection"`

	// TimeoutFileLock 文件型 body 的锁获取超时
	TimeoutFileLock time.Duration `config:"timeoutFileLock"`
}

// DefaultConfig 返回各项的出厂默认值
func DefaultConfig() Config {
	return Config{
		Address:                      "localhost:8080",
		MaxRequestHeadSize:           401216,
		MaxRequestBodyBufferSize:     20 << 20,
		MaxRequestTrailersSize:       8000,
		MaxErrorResponses:            3,
		MinHTTPVersion:               "HTTP/1.0",
		DiscardRejectedInformational: true,
		ImmediatelyContinueExpect100: false,
		ImplementMissingOptions:      true,
		TimeoutIdleConnection:        3 * time.Minute,
		TimeoutFileLock:              3 * time.Second,
	}
}

// LoadConfig 在默认值之上套用配置文件的 server 段
func LoadConfig(conf *confengine.Config) (Config, error) {
	config := DefaultConfig()
	if err := conf.UnpackChildAllowMissing("server", &config); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate 校验配置
//
// 负的 Duration 在此直接拒绝 不进入运行期
func (c *Config) Validate() error {
	if c.TimeoutIdleConnection < 0 {
		return newError("negative timeoutIdleConnection %s", c.TimeoutIdleConnection)
	}
	if c.TimeoutFileLock < 0 {
		return newError("negative timeoutFileLock %s", c.TimeoutFileLock)
	}
	if c.MaxRequestHeadSize <= 0 {
		return newError("non-positive maxRequestHeadSize %d", c.MaxRequestHeadSize)
	}
	if c.MaxRequestTrailersSize <= 0 {
		return newError("non-positive maxRequestTrailersSize %d", c.MaxRequestTrailersSize)
	}
	if c.MaxRequestBodyBufferSize <= 0 {
		return newError("non-positive maxRequestBodyBufferSize %d", c.MaxRequestBodyBufferSize)
	}
	if c.MaxErrorResponses <= 0 {
		return newError("non-positive maxErrorResponses %d", c.MaxErrorResponses)
	}
	if _, err := httpmsg.ParseVersion(c.MinHTTPVersion); err != nil {
		return newError("bad minHTTPVersion %q", c.MinHTTPVersion)
	}
	return nil
}

// minVersion 返回解析后的最低版本 Validate 之后一定成功
func (c *Config) minVersion() httpmsg.Version {
	v, _ := httpmsg.ParseVersion(c.MinHTTPVersion)
	return v
}
