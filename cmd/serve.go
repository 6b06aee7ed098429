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

package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/plainhttp/plainhttp/confengine"
	"github.com/plainhttp/plainhttp/httpmsg"
	"github.com/plainhttp/plainhttp/internal/sigs"
	"github.com/plainhttp/plainhttp/logger"
	"github.com/plainhttp/plainhttp/opsserver"
	"github.com/plainhttp/plainhttp/router"
	"github.com/plainhttp/plainhttp/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		if err := setupLogger(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to setup logger: %v\n", err)
			os.Exit(1)
		}

		serverConfig, err := server.LoadConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load server config: %v\n", err)
			os.Exit(1)
		}
		srv, err := server.New(serverConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
			os.Exit(1)
		}
		registerDemoRoutes(srv)

		ops, err := opsserver.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create ops server: %v\n", err)
			os.Exit(1)
		}
		if ops != nil {
			go func() {
				if err := ops.ListenAndServe(); err != nil {
					logger.Errorf("ops server exited: %v", err)
				}
			}()
			defer ops.Close()
		}

		go func() {
			err := srv.ListenAndServe()
			if !errors.Is(err, server.ErrServerStopped) {
				logger.Errorf("server exited: %v", err)
			}
		}()

		for {
			select {
			case <-sigs.Terminate():
				if err := srv.Stop(); err != nil {
					logger.Errorf("failed to stop server cleanly: %v", err)
				}
				return

			case <-sigs.Reload():
				// 重载仅作用于日志级别 运行期路由和监听不受影响
				cfg, err := loadConfig(configPath)
				if err != nil {
					logger.Errorf("failed to reload config: %v", err)
					continue
				}
				var opts logger.Options
				if err := cfg.UnpackChildAllowMissing("logger", &opts); err != nil {
					logger.Errorf("failed to reload logger options: %v", err)
					continue
				}
				logger.SetLoggerLevel(opts.Level)
			}
		}
	},
	Example: "# plainhttp serve --config plainhttp.yaml",
}

var configPath string

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "plainhttp.yaml", "Configuration file path")
	rootCmd.AddCommand(serveCmd)
}

// loadConfig 加载配置 文件缺失时以空配置回退
func loadConfig(path string) (*confengine.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return confengine.LoadContent([]byte("{}"))
	}
	return confengine.LoadConfigPath(path)
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChildAllowMissing("logger", &opts); err != nil {
		return err
	}
	if opts.Filename == "" {
		opts.Stdout = true
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}
	logger.SetOptions(opts)
	return nil
}

// registerDemoRoutes 注册演示路由 覆盖常规 参数 余路径与 JSON 几种形态
func registerDemoRoutes(srv *server.Server) {
	routes := srv.Routes()

	root := router.MustNewRoute("/")
	root.Handle("GET", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		return httpmsg.NegotiatedText(200, req, "Hello from plainhttp\n"), nil
	})

	echo := router.MustNewRoute("/echo")
	echo.Handle("POST", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		body, err := req.BufferedBody(srv.Config().MaxRequestBodyBufferSize)
		if err != nil {
			return nil, err
		}
		ct, ok := req.Headers.Get("Content-Type")
		if !ok {
			ct = "application/octet-stream"
		}
		return httpmsg.NewResponse(200).
			SetHeader("Content-Type", ct).
			Body(body).
			Build()
	})

	greet := router.MustNewRoute("/greet/:name")
	greet.Handle("GET", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		return httpmsg.Text(200, fmt.Sprintf("Hello %s\n", req.Params["name"])), nil
	})

	files := router.MustNewRoute("/files/*path")
	files.Handle("GET", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		return httpmsg.Text(200, fmt.Sprintf("requested path %s\n", req.Params["path"])), nil
	})

	info := router.MustNewRoute("/info")
	info.Handle("GET", func(req *httpmsg.Request) (*httpmsg.Response, error) {
		return httpmsg.JSON(200, map[string]any{
			"app":    "plainhttp",
			"routes": len(srv.Routes().Routes()),
		})
	})

	for _, rt := range []*router.Route{root, echo, greet, files, info} {
		if err := routes.Add(rt); err != nil {
			logger.Errorf("failed to register route %s: %v", rt.Pattern(), err)
		}
	}
}
