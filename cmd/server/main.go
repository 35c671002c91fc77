// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"enstp-advisor-go/internal/app"
	"enstp-advisor-go/internal/config"
	"enstp-advisor-go/internal/handler"
	"enstp-advisor-go/pkg/log"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. 初始化配置
	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Conf

	// 2. 初始化日志记录器
	if err := log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	gin.SetMode(cfg.Server.Mode)

	// 3. 配置无效时进入拒绝模式：服务照常监听，但所有请求返回 503
	var r *gin.Engine
	if err := cfg.Validate(); err != nil {
		log.Errorw("Configuration invalid, serving refusal mode only", "error", err)
		r = handler.NewConfigErrorRouter(err)
	} else {
		ctx := context.Background()
		a, err := app.New(ctx, &cfg)
		if err != nil {
			log.Fatal("初始化应用失败", err)
		}
		defer a.Close()

		r = handler.NewRouter(handler.RouterDeps{
			ChatService: a.Chat,
			Tokens:      a.Tokens,
			Provider:    cfg.LLM.Provider,
		})
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 进行中的模型调用不受请求取消影响，这里给它们留出完成的时间
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
