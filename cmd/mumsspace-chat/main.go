package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/mumsspace/mumsspace-chat/ai"
	"github.com/mumsspace/mumsspace-chat/config"
	"github.com/mumsspace/mumsspace-chat/globals"
	"github.com/mumsspace/mumsspace-chat/hub"
	"github.com/mumsspace/mumsspace-chat/persistence"
	"github.com/mumsspace/mumsspace-chat/registry"
	"github.com/mumsspace/mumsspace-chat/session"
	"github.com/mumsspace/mumsspace-chat/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func main() {
	_ = godotenv.Load()

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}
	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister != nil {
		defer persister.Close()
	}

	reg, err := registry.New(persister)
	if err != nil {
		panic(err)
	}
	if err := reg.SeedDefaultRooms(); err != nil {
		panic(err)
	}

	messageStore, err := store.New(persister, reg)
	if err != nil {
		panic(err)
	}

	liveHub := hub.New()
	go liveHub.Run()
	defer liveHub.Stop()

	coordinator := session.New(reg, messageStore, liveHub, globalConfig.HistoryConfig.DefaultLimit, globalConfig.HistoryConfig.MaxLimit)

	var rdb *redis.Client
	if globalConfig.RedisConfig.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     globalConfig.RedisConfig.Addr,
			Password: globalConfig.RedisConfig.Password,
			DB:       globalConfig.RedisConfig.DB,
		})
		defer rdb.Close()
	}
	aiClient := ai.New(globalConfig.AIConfig, rdb)

	s := &server{
		cfg:         globalConfig,
		registry:    reg,
		store:       messageStore,
		coordinator: coordinator,
		hub:         liveHub,
		aiClient:    aiClient,
	}

	srv := &http.Server{
		Addr:    globalConfig.ServerConfig.Addr,
		Handler: s.routes(),
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		globals.AppLogger.Info("starting server", "addr", globalConfig.ServerConfig.Addr)
		var err error
		if globalConfig.ServerConfig.SSLCert != "" && globalConfig.ServerConfig.SSLKey != "" {
			err = srv.ListenAndServeTLS(globalConfig.ServerConfig.SSLCert, globalConfig.ServerConfig.SSLKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			globals.AppLogger.Error("stopped listening", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	globals.AppLogger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		globals.AppLogger.Error("server shutdown failed", "error", err)
	}
}
