package bootstrap

import (
	"ai-minutes-client/internal/config"
	"ai-minutes-client/internal/identity"
	"ai-minutes-client/internal/pkg/logger"
	"ai-minutes-client/internal/render"
	"ai-minutes-client/internal/service"
	"ai-minutes-client/internal/tokenstore"
	"ai-minutes-client/internal/transport"
)

type Container struct {
	Logger logger.ILogger
	Tokens *tokenstore.Store
	Client *transport.Client
	Google *identity.GoogleExchanger

	SessionService  service.ISessionService
	DocumentService service.IDocumentService
	UploadService   service.IUploadService
	ExportService   service.IExportService
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	tokens := tokenstore.New(cfg.App.StateDir)
	client := transport.NewClient(cfg.API.BaseURL, cfg.API.Timeout, tokens, sysLogger)

	google := identity.NewGoogleExchanger(
		cfg.Google.ClientID,
		cfg.Google.ClientSecret,
		cfg.Google.RedirectURL,
	)

	// 2. Services
	// The session service registers itself as the transport's unauthorized
	// hook, so every 401 funnels through the one mutation entry point.
	sessionService := service.NewSessionService(client, tokens, google, sysLogger)
	documentService := service.NewDocumentService(client, sysLogger)
	uploadService := service.NewUploadService(client, sysLogger)
	exportService := service.NewExportService(render.NewRenderer(), sysLogger)

	return &Container{
		Logger:          sysLogger,
		Tokens:          tokens,
		Client:          client,
		Google:          google,
		SessionService:  sessionService,
		DocumentService: documentService,
		UploadService:   uploadService,
		ExportService:   exportService,
	}
}
