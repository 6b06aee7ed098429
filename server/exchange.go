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

	"github.com/pkg/errors"

	"github.com/plainhttp/plainhttp/chunkio"
	"github.com/plainhttp/plainhttp/common"
	"github.com/plainhttp/plainhttp/headparse"
	"github.com/plainhttp/plainhttp/httperr"
	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/internal/byteseq"
	"github.com/plainhttp/plainhttp/internal/rescue"
	"github.com/plainhttp/plainhttp/logger"
	"github.com/plainhttp/plainhttp/mediatype"
	"github.com/plainhttp/plainhttp/router"
)

// exchange 一次请求响应的完整生命周期
//
// 状态推进 AWAIT_REQUEST -> PARSING_HEAD -> DISPATCHING -> AWAIT_BODY -> WRITING_RESPONSE
// run 返回连接是否可以继续承载下一次 exchange
type exchange struct {
	c   *conn
	srv *Server

	w      *channelWriter
	req    *httpmsg.Request
	expect *expectBody
}

func newExchange(c *conn) *exchange {
	return &exchange{c: c, srv: c.srv}
}

func (ex *exchange) run() (keepAlive bool) {
	cfg := &ex.srv.config

	// AWAIT_REQUEST / PARSING_HEAD
	parser := headparse.NewParser(ex.c.cur, cfg.MaxRequestHeadSize)
	rl, err := parser.RequestLine()
	if err != nil {
		if errors.Is(err, byteseq.ErrEndOfStream) {
			// 对端在请求之间正常断开
			return false
		}
		if errors.Is(err, net.ErrClosed) {
			// 停机时本端主动关闭了空闲连接
			return false
		}
		ex.w = newChannelWriter(ex.c, httpmsg.HTTP11, rl.Method)
		return ex.respondError(err)
	}

	ex.c.busy.Store(true)
	defer ex.c.busy.Store(false)

	headers, err := parser.Headers()
	if err != nil {
		ex.w = newChannelWriter(ex.c, httpmsg.HTTP11, rl.Method)
		return ex.respondError(err)
	}

	// 版本检查
	version, verr := httpmsg.ParseVersion(rl.Version)
	writerVersion := version
	if verr != nil {
		writerVersion = httpmsg.HTTP11
	}
	ex.w = newChannelWriter(ex.c, writerVersion, rl.Method)

	if verr != nil {
		return ex.respondError(httperr.Wrap(httperr.KindBadRequest, verr, "unparseable HTTP version"))
	}
	if version.Major >= 2 {
		return ex.respondError(httperr.New(httperr.KindVersionTooNew,
			"HTTP version %s not supported", version))
	}
	if version.Less(cfg.minVersion()) {
		return ex.respondError(httperr.New(httperr.KindVersionTooOld,
			"HTTP version %s below configured minimum %s", version, cfg.MinHTTPVersion))
	}

	// header 语义检查与 body 装配
	body, err := ex.assembleBody(rl, headers)
	if err != nil {
		return ex.respondError(err)
	}

	req := &httpmsg.Request{
		Method:     rl.Method,
		Target:     rl.Target,
		Version:    version,
		Headers:    headers,
		Body:       body,
		Attributes: httpmsg.NewAttributes(),
	}
	req.Attributes.Set("connection.id", ex.c.id)
	req.Attributes.Set("connection.remote", ex.c.nc.RemoteAddr().String())
	ex.req = req

	// DISPATCHING
	handler, resolved := ex.dispatch(req)
	if !resolved {
		// dispatch 内部已经完成写出或失败处理
		return ex.finish()
	}

	if ex.expect != nil && cfg.ImmediatelyContinueExpect100 {
		if err := ex.expect.send(); err != nil {
			return false
		}
	}

	// handler 执行与 WRITING_RESPONSE
	if err := ex.invoke(handler); err != nil {
		return ex.respondError(err)
	}
	if !ex.w.wroteFinal {
		return ex.respondError(newError("handler completed without a final response"))
	}
	return ex.finish()
}

// assembleBody 校验消息框架并构造 body 迭代器
func (ex *exchange) assembleBody(rl headparse.RequestLine, headers *httpmsg.Headers) (byteseq.Iterator, error) {
	cfg := &ex.srv.config

	te := headers.TransferEncoding()
	cl, clPresent, clErr := headers.ContentLength()
	if clErr != nil {
		return nil, httperr.Wrap(httperr.KindBadHeader, clErr, "bad Content-Length")
	}
	if len(te) > 0 && clPresent {
		return nil, httperr.New(httperr.KindBadRequest,
			"Content-Length and Transfer-Encoding are mutually exclusive")
	}
	if len(te) > 0 && !headers.IsChunked() {
		return nil, httperr.New(httperr.KindUnsupportedTransferCoding,
			"final transfer coding must be chunked, got %v", te)
	}

	hasBody := headers.IsChunked() || cl > 0
	if rl.Method == "TRACE" && hasBody {
		return nil, httperr.New(httperr.KindIllegalBody, "TRACE request must not carry a body")
	}

	var body byteseq.Iterator
	switch {
	case headers.IsChunked():
		body = chunkio.NewDecoder(ex.c.cur, cfg.MaxRequestTrailersSize)
	case cl > 0:
		body = byteseq.NewFixedLength(ex.c.cur, cl, common.ReadWriteBlockSize)
	default:
		body = byteseq.Empty()
	}

	// Expect: 100-continue 在首次 body 访问时写出 100
	if hasBody && headers.Expects100Continue() && ex.w.reqVersion.AtLeast(httpmsg.HTTP11) {
		ex.expect = &expectBody{inner: body, w: ex.w}
		body = ex.expect
	}
	return body, nil
}

// dispatch 路由查找与 handler 解析
//
// resolved 为 false 时响应已经写出或连接需要关闭
func (ex *exchange) dispatch(req *httpmsg.Request) (*router.Handler, bool) {
	cfg := &ex.srv.config

	match, err := ex.srv.routes.Lookup(req.Path())
	if err != nil {
		ex.respondError(err)
		return nil, false
	}
	req.Params = match.Params
	req.RawParams = match.RawParams

	var ct *mediatype.MediaType
	if v, ok := req.Headers.Get("Content-Type"); ok {
		mt, err := mediatype.Parse(v)
		if err != nil {
			ex.respondError(httperr.Wrap(httperr.KindBadHeader, err, "bad Content-Type"))
			return nil, false
		}
		ct = &mt
	}
	accepts := mediatype.ParseAccept(req.Headers.Values("Accept"))

	handler, err := match.Route.Resolve(req.Method, ct, accepts)
	if err == nil {
		return handler, true
	}

	if httperr.KindOf(err) == httperr.KindMethodNotAllowed {
		// OPTIONS 兜底 204 + Allow
		if req.Method == "OPTIONS" && cfg.ImplementMissingOptions {
			resp := httpmsg.Of(204).With().
				SetHeader("Allow", allowValue(match.Route)).
				MustBuild()
			if werr := ex.w.Write(resp); werr != nil {
				logger.Debugf("conn %s: write options fallback: %v", ex.c.id, werr)
			}
			return nil, false
		}
		// HEAD 退化为 GET handler body 由 writer 裁剪
		if req.Method == "HEAD" {
			if h, herr := match.Route.Resolve("GET", ct, accepts); herr == nil {
				return h, true
			}
		}
	}

	ex.respondError(err)
	return nil, false
}

// invoke 执行 handler panic 被换成 500 错误
func (ex *exchange) invoke(h *router.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			for _, fn := range rescue.PanicHandlers {
				fn(r)
			}
			err = newError("handler panic: %v", r)
		}
	}()

	if h.RawFn != nil {
		return h.RawFn(ex.req, ex.w)
	}
	resp, err := h.Fn(ex.req)
	if err != nil {
		return err
	}
	if resp == nil {
		return newError("handler returned a nil response")
	}
	return ex.w.Write(resp)
}

// respondError 中央错误出口
//
// 先交应用层拦截器 再走默认映射 空闲超时与半截写出直接关闭
func (ex *exchange) respondError(err error) bool {
	err = ex.normalizeError(err)

	if httperr.KindOf(err) == httperr.KindIdleTimeout {
		logger.Debugf("conn %s: %v", ex.c.id, err)
		return false
	}
	if ex.w.wroteBytes && !ex.w.wroteFinal {
		// 最终响应写到一半 无法再挽回语义 只能关闭
		logger.Warnf("conn %s: error after partial write: %v", ex.c.id, err)
		return false
	}
	if ex.w.wroteFinal {
		// handler 已成功写出响应之后才失败 连接不再可信
		logger.Warnf("conn %s: error after final response: %v", ex.c.id, err)
		return false
	}

	var resp *httpmsg.Response
	handled := false
	if ex.srv.errHandler != nil {
		resp, handled = ex.srv.errHandler(err, ex.req)
	}
	if !handled {
		resp = httperr.Respond(err)
	}
	if resp == nil {
		return false
	}

	logger.Debugf("conn %s: responding %d for error: %v", ex.c.id, resp.StatusCode(), err)
	if werr := ex.w.Write(resp); werr != nil {
		logger.Debugf("conn %s: write error response: %v", ex.c.id, werr)
		return false
	}
	return ex.finish()
}

// normalizeError 将底层 sentinel 错误翻译为错误分类
func (ex *exchange) normalizeError(err error) error {
	switch {
	case errors.Is(err, byteseq.ErrLimitExceeded):
		return httperr.NewSize(httperr.KindBodySizeExceeded, ex.srv.config.MaxRequestBodyBufferSize)
	case errors.Is(err, byteseq.ErrPrematureEnd):
		return httperr.Wrap(httperr.KindBadRequest, err, "request body ended prematurely")
	}
	return err
}

// finish 排空残余 body 并给出 keep-alive 结论
func (ex *exchange) finish() bool {
	if ex.req != nil {
		// 声明了 100-continue 但从未触发时 对端还在等待 100
		// 此时排空会一直阻塞 唯一安全的出路是关闭连接
		if ex.expect != nil && !ex.expect.sent {
			return false
		}
		if err := byteseq.Drain(ex.req.Body); err != nil {
			logger.Debugf("conn %s: drain request body: %v", ex.c.id, err)
			return false
		}
	}
	if !ex.w.wroteFinal {
		return false
	}
	return !ex.w.closeAfter && !ex.srv.Stopped()
}

// allowValue 405/204 响应的 Allow 头
func allowValue(rt *router.Route) string {
	ms := rt.Methods()
	out := ""
	for i, m := range ms {
		if i > 0 {
			out += ", "
		}
		out += m
	}
	return out
}
