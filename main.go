package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/client"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/config"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/logging"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/server"
	"github.com/soumyaonikeri/The-Classic-File-Transfer-Real-Time-File-Transfer-and-Verification/shared/transfer"
)

func main() {
	t := flag.String("type", "server", "server or client")
	configPath := flag.String("config", "", "YAML configuration file")
	file := flag.String("file", "", "file to upload (client only)")
	addr := flag.String("addr", "", "overrides the configured address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	if *addr != "" {
		cfg.Address = *addr
	}
	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *t == "client" {
		if *file == "" {
			log.Fatal("-file is required in client mode")
		}
		runClient(ctx, cfg, log, *file)
		return
	}

	s := server.NewServer(cfg, log)
	go func() {
		for ch := range s.TransfersChannel {
			go logProgress(log, ch)
		}
	}()
	if err := s.ListenAndServe(ctx); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}

func runClient(ctx context.Context, cfg transfer.Config, log *logrus.Logger, file string) {
	c := client.NewClient(cfg, log)
	statusCh := make(chan transfer.Progress, 16)
	done := make(chan struct{})
	go func() {
		logProgress(log, statusCh)
		close(done)
	}()
	res, err := c.Upload(ctx, file, statusCh)
	close(statusCh)
	<-done
	if err != nil {
		log.WithError(err).Fatal("Transfer failed")
	}
	log.WithFields(logrus.Fields{
		"output":     res.Output,
		"frames":     res.Frames,
		"duplicates": res.Duplicates,
		"malformed":  res.Malformed,
	}).Info("Transfer verified")
}

func logProgress(log logrus.FieldLogger, ch <-chan transfer.Progress) {
	for status := range ch {
		log.WithField("percent", int(status.Percentage)).Debug(status.Message)
	}
}
