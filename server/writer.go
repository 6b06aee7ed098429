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
	"fmt"
	"strconv"
	"time"

	"github.com/plainhttp/plainhttp/chunkio"
	"github.com/plainhttp/plainhttp/httperr"
	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/internal/bufpool"
	"github.com/plainhttp/plainhttp/internal/byteseq"
)

const httpTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// channelWriter 单次 exchange 的响应写出器
//
// 接受 0 或多个 1xx 临时响应 随后恰好一个最终响应
// 同一连接上响应按 exchange 开始的顺序写出 不会交错
type channelWriter struct {
	c          *conn
	reqVersion httpmsg.Version
	reqMethod  string

	wroteInterim bool
	wroteFinal   bool
	wroteBytes   bool
	closeAfter   bool
	status       int
}

var _ httpmsg.ChannelWriter = (*channelWriter)(nil)

func newChannelWriter(c *conn, version httpmsg.Version, method string) *channelWriter {
	return &channelWriter{
		c:          c,
		reqVersion: version,
		reqMethod:  method,
	}
}

// WriteInterim 写出 1xx 临时响应
//
// HTTP/1.0 对端按配置丢弃或报错
func (w *channelWriter) WriteInterim(r *httpmsg.Response) error {
	if w.wroteFinal {
		return newError("final response already written")
	}
	if r == nil || !r.Interim() {
		return newError("response is not interim")
	}
	if w.reqVersion.Less(httpmsg.HTTP11) {
		if w.c.srv.config.DiscardRejectedInformational {
			return nil
		}
		return newError("interim response rejected for %s peer", w.reqVersion)
	}

	if err := w.writeHead(r, r.Headers()); err != nil {
		return err
	}
	w.wroteInterim = true
	return nil
}

// Write 写出最终响应并收尾当次 exchange
func (w *channelWriter) Write(r *httpmsg.Response) error {
	if w.wroteFinal {
		return newError("final response already written")
	}
	if r == nil {
		return newError("nil response")
	}
	if r.Interim() {
		return newError("interim response passed to final write")
	}

	status := r.StatusCode()
	headless := httpmsg.BodyForbidden(status) || w.reqMethod == "HEAD"
	if httpmsg.BodyForbidden(status) && r.HasBody() {
		return httperr.Wrap(httperr.KindIllegalResponseBody,
			httpmsg.ErrIllegalResponseBody, "status forbids a body")
	}

	// 关闭条件 响应自身要求 / HTTP1.0 对端 / 停机中 / 错误响应连击达到阈值
	close := r.MustClose() || w.reqVersion.Less(httpmsg.HTTP11) || w.c.srv.Stopped()
	if status >= 400 && w.c.errStreak+1 >= w.c.srv.config.MaxErrorResponses {
		close = true
	}

	bodyLen := r.BodyLen()
	chunked := false
	if !headless {
		switch {
		case bodyLen >= 0:
		case w.reqVersion.AtLeast(httpmsg.HTTP11):
			chunked = true
		default:
			// HTTP/1.0 长度未知只能以关闭定界
			close = true
		}
	}

	headers := r.Headers().Clone()
	if !headers.Has("Date") {
		headers.Set("Date", time.Now().UTC().Format(httpTimeFormat))
	}
	switch {
	case chunked:
		headers.Set("Transfer-Encoding", "chunked")
	case !headless && bodyLen >= 0:
		headers.Set("Content-Length", strconv.FormatInt(bodyLen, 10))
	case w.reqMethod == "HEAD" && bodyLen >= 0 && !httpmsg.BodyForbidden(status):
		// HEAD 保留长度语义但不写 body
		headers.Set("Content-Length", strconv.FormatInt(bodyLen, 10))
	}
	if close && !headers.ConnectionHas("close") {
		headers.Add("Connection", "close")
	}

	// 此刻起最终响应开始上网 半途失败将不再可能补救
	w.wroteBytes = true
	if err := w.writeHead(r, headers); err != nil {
		return err
	}

	if headless {
		// 流式 body 即使不写出也要释放
		byteseq.Drain(r.Body())
	} else {
		body := r.Body()
		if chunked {
			body = chunkio.NewEncoder(body)
		}
		err := byteseq.ForEachRemaining(body, func(p []byte) error {
			return w.c.write(p)
		})
		if err != nil {
			return err
		}
		if chunked {
			// chunked section 以空行终止
			if err := w.c.write([]byte("\r\n")); err != nil {
				return err
			}
		}
	}

	w.wroteFinal = true
	w.closeAfter = close
	w.status = status

	if status >= 400 {
		w.c.errStreak++
		errorResponses.Inc()
	} else {
		w.c.errStreak = 0
	}
	handledExchanges.WithLabelValues(w.reqMethod, strconv.Itoa(status)).Inc()
	return nil
}

// writeHead 序列化状态行与 header 一次性写出
func (w *channelWriter) writeHead(r *httpmsg.Response, headers *httpmsg.Headers) error {
	buf := bufpool.Acquire()
	defer bufpool.Release(buf)

	fmt.Fprintf(buf, "HTTP/1.1 %d %s\r\n", r.StatusCode(), r.Reason())
	for _, f := range headers.Fields() {
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	return w.c.write(buf.B)
}
