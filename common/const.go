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

package common

import "time"

const (
	// App 应用程序名称
	App = "plainhttp"

	// Version 应用程序版本
	Version = "v0.1.0"

	// ReadWriteBlockSize 默认的读写块大小
	//
	// 连接读取与 body 迭代均以 block 为单位进行
	// 过大的 block 会增加单连接的内存开销 过小则增加 syscall 次数
	ReadWriteBlockSize = 4096
)

var started int64

func init() {
	started = time.Now().Unix()
}

// Started 返回进程启动时间戳
func Started() int64 {
	return started
}
