package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pf-backoffice/config"
	"pf-backoffice/images"
	"pf-backoffice/pfapi"
	"pf-backoffice/scraper/propertyfinder"
	"pf-backoffice/server"
	"pf-backoffice/services"
	"pf-backoffice/storage"
	"pf-backoffice/templates"
	"pf-backoffice/utils"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	db     *storage.DB
	store  *storage.Store

	upstream    *pfapi.Client
	credentials *services.Credentials
	listings    *services.Listings
	importer    *services.Importer
	leads       *services.Leads
	master      *services.Master
	cleaner     *services.Cleaner
	insights    *services.InsightService
	templates   *templates.Service
	uploader    *images.Uploader
	scraper     *propertyfinder.Scraper
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := utils.NewLoggerTo(os.Stderr, cfg.LogLevel)

	db, err := storage.Open(ctx, storage.Options{
		Driver:         cfg.StoreDriver,
		URL:            cfg.DatabaseURL(),
		ConnectRetries: cfg.ConnectRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	store := storage.NewStore(db)

	blobs, err := images.NewDiskStore(filepath.Join(cfg.DataDir, "images"))
	if err != nil {
		db.Close()
		return nil, err
	}

	upstream := pfapi.New(pfapi.Options{
		BaseURL:     cfg.PFAPIBase,
		Timeout:     cfg.UpstreamTimeout,
		TokenTTL:    cfg.TokenTTL,
		SettleDelay: cfg.PublishSettleDelay,
		Logger:      logger.With("component", "pfapi"),
	})

	uploader := images.NewUploader(blobs, store.Images, store.ImageFolders, images.Options{
		Bucket:           cfg.S3Bucket,
		Region:           cfg.AWSRegion,
		CloudfrontDomain: cfg.CloudfrontDomain,
		Concurrency:      cfg.UploadConcurrency,
	}, logger)

	credentials := services.NewCredentials(store.Settings, cfg.Accounts, upstream, logger)
	listings := services.NewListings(store.Listings, credentials, upstream, uploader, cfg.PFPortalBase, logger)
	cleaner := services.NewCleaner(logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		store:       store,
		upstream:    upstream,
		credentials: credentials,
		listings:    listings,
		importer:    services.NewImporter(listings, time.Duration(cfg.ImportRowDelayMs)*time.Millisecond, logger),
		leads:       services.NewLeads(store.Leads, credentials, upstream, logger),
		master:      services.NewMaster(store.Master, logger),
		cleaner:     cleaner,
		insights:    services.NewInsightService(cleaner, logger),
		templates:   templates.NewService(store.Templates, logger),
		uploader:    uploader,
		scraper: propertyfinder.New(propertyfinder.Options{
			PerPage:   cfg.ScraperPerPage,
			RateLimit: time.Duration(cfg.ScraperRateLimitMs) * time.Millisecond,
			ProxyURL:  cfg.ProxyURL(),
		}, logger),
	}, nil
}

func (a *app) server() *server.Server {
	return server.New(server.Deps{
		DB:          a.db,
		Credentials: a.credentials,
		Listings:    a.listings,
		Importer:    a.importer,
		Leads:       a.leads,
		Master:      a.master,
		Insights:    a.insights,
		Templates:   a.templates,
		Images:      a.uploader,
		Scraper:     a.scraper,
	}, a.logger)
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("[app] closing store: %v", err)
	}
}
