package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/config"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/service"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/validate"
)

// Server exposes store auditing, name resolution, entity deletion and the
// pending-change log as MCP tools.
type Server struct {
	service   *service.Service
	reader    validate.DocumentReader
	schema    *config.Schema
	validator *validate.Validator
	identity  model.Identity
	logger    *zap.Logger
	mcp       *sdk.Server
}

func NewServer(svc *service.Service, reader validate.DocumentReader, schema *config.Schema, identity model.Identity, version string, logger *zap.Logger) *Server {
	if schema == nil {
		schema = config.DefaultSchema()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service:   svc,
		reader:    reader,
		schema:    schema,
		validator: validate.New(schema),
		identity:  identity,
		logger:    logger.Named("mcp"),
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "thought-chronicle",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	s.logger.Info("mcp server starting", zap.String("campaign_id", s.identity.CampaignID))
	return s.mcp.Run(ctx, transport)
}
