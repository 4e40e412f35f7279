package main

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/mcp"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	svc := service.New(a.store, a.identity, a.logger)
	server := mcp.NewServer(svc, a.store, a.schema, a.identity, version, a.logger)
	return server.Run(ctx, &sdk.StdioTransport{})
}
