package main

import (
	"fmt"
	"os"

	"github.com/nurpe/contracts-service/internal/auth"
	"github.com/nurpe/contracts-service/internal/config"
	"github.com/nurpe/contracts-service/internal/db"
	"github.com/nurpe/contracts-service/internal/excel"
	httphandler "github.com/nurpe/contracts-service/internal/http"
	"github.com/nurpe/contracts-service/internal/http/middleware"
	"github.com/nurpe/contracts-service/internal/logger"
	"github.com/nurpe/contracts-service/internal/pdf"
	"github.com/nurpe/contracts-service/internal/repository"
	"github.com/nurpe/contracts-service/internal/service"
	"github.com/nurpe/contracts-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	files, err := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.MaxFileSize())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init file storage")
	}

	contractRepo := repository.NewContractRepository(database)
	referenceRepo := repository.NewReferenceRepository(database)

	opts := []service.ContractOption{}
	if cfg.PDF.FontPath != "" {
		pdfGenerator, err := pdf.NewGenerator(cfg.PDF.FontPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init pdf generator")
		}
		opts = append(opts, service.WithPDF(pdfGenerator))
	} else {
		log.Warn().Msg("PDF_FONT_PATH is not set, contract pdf export disabled")
	}

	contractService := service.NewContractService(contractRepo, referenceRepo, files, excel.NewGenerator(), log, opts...)
	referenceService := service.NewReferenceService(referenceRepo, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, referenceService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.AllowedOrigins, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
