package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Seminar/internal/adapters/device"
	router "github.com/dkeye/Seminar/internal/adapters/http"
	"github.com/dkeye/Seminar/internal/adapters/metrics"
	"github.com/dkeye/Seminar/internal/adapters/rtc"
	sigchan "github.com/dkeye/Seminar/internal/adapters/signal"
	"github.com/dkeye/Seminar/internal/adapters/snapshot"
	"github.com/dkeye/Seminar/internal/app"
	"github.com/dkeye/Seminar/internal/app/orch"
	"github.com/dkeye/Seminar/internal/config"
	"github.com/dkeye/Seminar/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.RoomID == "" {
		log.Fatal().Msg("room_id is required")
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.UserID
	}
	who, err := domain.NewIdentity(cfg.UserID, cfg.DisplayName)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid identity")
	}

	m := metrics.New()
	devices := device.NewPlatform(cfg.Devices.Granted, []domain.DeviceInfo{
		{ID: "default-mic", Kind: domain.DeviceAudioIn, Label: cfg.Devices.AudioIn},
		{ID: "default-cam", Kind: domain.DeviceVideoIn, Label: cfg.Devices.VideoIn},
		{ID: "default-out", Kind: domain.DeviceAudioOut, Label: cfg.Devices.AudioOut},
	})

	conn, err := rtc.NewConnection(rtc.DefaultWebRTCConfig(), domain.ParticipantID(cfg.UserID))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create media transport")
	}
	if err := conn.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start media transport")
	}
	defer conn.Close()

	channel := sigchan.NewChannel(sigchan.Options{
		URL:          cfg.Channel.URL,
		SendBuffer:   cfg.Channel.SendBuffer,
		WriteTimeout: cfg.Channel.WriteTimeout,
		PingPeriod:   cfg.Channel.PingPeriod,
		ReadLimit:    cfg.Channel.ReadLimit,
		Backoff: sigchan.Backoff{
			Base:     cfg.Channel.ReconnectBase,
			Max:      cfg.Channel.ReconnectMaxDelay,
			Attempts: cfg.Channel.ReconnectAttempts,
		},
		CursorInterval: cfg.Session.CursorInterval,
	})

	snaps := snapshot.NewClient(cfg.Snapshot.BaseURL, cfg.Snapshot.Timeout)
	if cfg.Snapshot.Token != "" {
		snaps.SetToken(cfg.Snapshot.Token)
	}

	o := orch.New(orch.Deps{
		Channel:   channel,
		Snapshots: snaps,
		Devices:   devices,
		Transport: conn,
		Policy:    app.SimplePolicy{},
		Recorder:  m,
	}, orch.Options{
		ChatTail:       cfg.Snapshot.ChatTail,
		CommandTimeout: cfg.Session.CommandTimeout,
		ReactionTTL:    cfg.Session.ReactionTTL,
		FetchTimeout:   cfg.Snapshot.Timeout,
		EraserRadius:   cfg.Session.EraserRadius,
		CanvasWidth:    cfg.Session.CanvasWidth,
		CanvasHeight:   cfg.Session.CanvasHeight,
	})

	var srv *http.Server
	if cfg.InspectPort > 0 {
		addr := fmt.Sprintf(":%d", cfg.InspectPort)
		srv = &http.Server{
			Addr:    addr,
			Handler: router.SetupRouter(cfg, o, m.Handler()),
		}
		go func() {
			log.Info().Str("addr", addr).Msg("inspector started")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("inspector error")
			}
		}()
	}

	if err := o.Join(ctx, domain.RoomID(cfg.RoomID), who); err != nil {
		log.Error().Err(err).Str("room", cfg.RoomID).Msg("join failed")
	} else {
		log.Info().Str("room", cfg.RoomID).Str("user", cfg.UserID).Msg("Seminar session joined")
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	o.Leave()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Inspector forced to shutdown")
		}
	}
	log.Info().Msg("Session exited gracefully")
}
