package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/cascade"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/config"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/validate"
)

type AuditStoreInput struct {
	CampaignID string `json:"campaign_id,omitempty" jsonschema:"campaign to list first; defaults to the active campaign"`
	Severity   string `json:"severity,omitempty" jsonschema:"error or warning to filter issues"`
}

type ResolveEntityInput struct {
	Name string `json:"name" jsonschema:"entity name, matched case-insensitively"`
}

type DeleteEntityInput struct {
	ID   string `json:"id" jsonschema:"local or remote entity id"`
	Mode string `json:"mode,omitempty" jsonschema:"orphan, block, or remove; defaults to block"`
}

type PendingChangesInput struct{}

type GetSchemaInput struct{}

type IssueOutput struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Kind     string `json:"kind"`
	Record   string `json:"record,omitempty"`
	Field    string `json:"field,omitempty"`
}

type AuditStoreOutput struct {
	Clean    bool          `json:"clean"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Issues   []IssueOutput `json:"issues"`
}

type EntityOutput struct {
	ID              string            `json:"id"`
	RemoteID        string            `json:"remote_id,omitempty"`
	Name            string            `json:"name"`
	Category        string            `json:"category"`
	Description     string            `json:"description,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	ParentEntities  []string          `json:"parent_entities"`
	LinkedEntities  []string          `json:"linked_entities"`
	Provenance      string            `json:"provenance"`
	SyncStatus      string            `json:"sync_status"`
	CampaignID      string            `json:"campaign_id"`
	ModifiedLocally string            `json:"modified_locally"`
}

type ResolveEntityOutput struct {
	Found  bool          `json:"found"`
	Entity *EntityOutput `json:"entity,omitempty"`
}

type DeleteEntityOutput struct {
	Deleted          bool   `json:"deleted"`
	Mode             string `json:"mode"`
	EntityID         string `json:"entity_id"`
	EntityName       string `json:"entity_name"`
	AffectedThoughts int    `json:"affected_thoughts"`
	AffectedEntities int    `json:"affected_entities"`
	Reason           string `json:"reason,omitempty"`
	DriftedRecords   int    `json:"drifted_records"`
}

type ChangeSetOutput struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

type PendingChangesOutput struct {
	Total     int             `json:"total"`
	Campaigns ChangeSetOutput `json:"campaigns"`
	Entities  ChangeSetOutput `json:"entities"`
	Thoughts  ChangeSetOutput `json:"thoughts"`
}

type SchemaOutput struct {
	Version     int                `json:"version"`
	RecordTypes []RecordTypeOutput `json:"record_types"`
}

type RecordTypeOutput struct {
	Name   string        `json:"name"`
	Fields []FieldOutput `json:"fields"`
}

type FieldOutput struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Items     string   `json:"items,omitempty"`
	Values    []string `json:"values,omitempty"`
	Default   string   `json:"default,omitempty"`
	Generator string   `json:"generator,omitempty"`
	Required  bool     `json:"required,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "audit_store",
		Description: "Check every record for schema problems, unresolved references, drift and duplicate names without changing anything",
	}, s.handleAuditStore)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_entity",
		Description: "Look up an entity by name in the active campaign",
	}, s.handleResolveEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "delete_entity",
		Description: "Delete an entity, applying a cascade mode to records that reference it",
	}, s.handleDeleteEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "pending_changes",
		Description: "List local changes that have not been synced",
	}, s.handlePendingChanges)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_schema",
		Description: "Return the record schema used for validation",
	}, s.handleGetSchema)
}

func (s *Server) handleAuditStore(ctx context.Context, req *sdk.CallToolRequest, input AuditStoreInput) (*sdk.CallToolResult, AuditStoreOutput, error) {
	var severity validate.Severity
	switch strings.ToLower(strings.TrimSpace(input.Severity)) {
	case "":
	case string(validate.SeverityError):
		severity = validate.SeverityError
	case string(validate.SeverityWarn), "warn":
		severity = validate.SeverityWarn
	default:
		return nil, AuditStoreOutput{}, fmt.Errorf("unknown severity: %s", input.Severity)
	}

	campaignID := input.CampaignID
	if campaignID == "" {
		campaignID = s.identity.CampaignID
	}
	report, err := validate.Run(ctx, s.validator, s.reader, campaignID)
	if err != nil {
		return nil, AuditStoreOutput{}, err
	}

	errs, warnings := report.Errors(), report.Warnings()
	out := AuditStoreOutput{
		Clean:    len(errs) == 0,
		Errors:   len(errs),
		Warnings: len(warnings),
		Issues:   make([]IssueOutput, 0, len(report.Issues)),
	}
	for _, issue := range report.Issues {
		if severity != "" && issue.Severity != severity {
			continue
		}
		out.Issues = append(out.Issues, issueOutput(issue))
	}
	return nil, out, nil
}

func (s *Server) handleResolveEntity(ctx context.Context, req *sdk.CallToolRequest, input ResolveEntityInput) (*sdk.CallToolResult, ResolveEntityOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ResolveEntityOutput{}, fmt.Errorf("name is required")
	}
	entity, ok, err := s.service.ResolveEntity(ctx, input.Name)
	if err != nil {
		return nil, ResolveEntityOutput{}, err
	}
	if !ok {
		return nil, ResolveEntityOutput{Found: false}, nil
	}
	out := entityOutput(entity)
	return nil, ResolveEntityOutput{Found: true, Entity: &out}, nil
}

func (s *Server) handleDeleteEntity(ctx context.Context, req *sdk.CallToolRequest, input DeleteEntityInput) (*sdk.CallToolResult, DeleteEntityOutput, error) {
	if strings.TrimSpace(input.ID) == "" {
		return nil, DeleteEntityOutput{}, fmt.Errorf("id is required")
	}
	mode := cascade.ModeBlock
	if input.Mode != "" {
		parsed, err := cascade.ParseMode(input.Mode)
		if err != nil {
			return nil, DeleteEntityOutput{}, err
		}
		mode = parsed
	}

	result, err := s.service.DeleteEntity(ctx, input.ID, mode)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, DeleteEntityOutput{}, fmt.Errorf("entity not found: %s", input.ID)
		}
		return nil, DeleteEntityOutput{}, err
	}
	s.logger.Info("entity deletion requested",
		zap.String("id", input.ID),
		zap.String("mode", string(mode)),
		zap.Bool("deleted", result.Success))

	return nil, DeleteEntityOutput{
		Deleted:          result.Success,
		Mode:             string(result.Mode),
		EntityID:         result.EntityID,
		EntityName:       result.EntityName,
		AffectedThoughts: result.AffectedThoughts,
		AffectedEntities: result.AffectedEntities,
		Reason:           result.Reason,
		DriftedRecords:   len(result.Drift),
	}, nil
}

func (s *Server) handlePendingChanges(ctx context.Context, req *sdk.CallToolRequest, input PendingChangesInput) (*sdk.CallToolResult, PendingChangesOutput, error) {
	total, pending, err := s.service.PendingCount(ctx)
	if err != nil {
		return nil, PendingChangesOutput{}, err
	}
	return nil, PendingChangesOutput{
		Total:     total,
		Campaigns: changeSetOutput(pending.Campaigns),
		Entities:  changeSetOutput(pending.Entities),
		Thoughts:  changeSetOutput(pending.Thoughts),
	}, nil
}

func (s *Server) handleGetSchema(ctx context.Context, req *sdk.CallToolRequest, input GetSchemaInput) (*sdk.CallToolResult, SchemaOutput, error) {
	return nil, schemaOutputFromConfig(s.schema), nil
}

func schemaOutputFromConfig(schema *config.Schema) SchemaOutput {
	if schema == nil {
		return SchemaOutput{RecordTypes: []RecordTypeOutput{}}
	}

	out := SchemaOutput{
		Version:     schema.Version,
		RecordTypes: make([]RecordTypeOutput, 0, len(schema.RecordTypes)),
	}
	for _, rt := range schema.RecordTypes {
		rtOut := RecordTypeOutput{
			Name:   rt.Name,
			Fields: make([]FieldOutput, 0, len(rt.Fields)),
		}
		for _, f := range rt.Fields {
			fieldOut := FieldOutput{
				Name:      f.Name,
				Type:      f.Type,
				Items:     f.Items,
				Values:    f.Values,
				Generator: f.Generator,
				Required:  f.Required,
			}
			if f.Default != nil {
				fieldOut.Default = fmt.Sprint(f.Default)
			}
			rtOut.Fields = append(rtOut.Fields, fieldOut)
		}
		out.RecordTypes = append(out.RecordTypes, rtOut)
	}
	return out
}

func issueOutput(issue validate.Issue) IssueOutput {
	return IssueOutput{
		Severity: string(issue.Severity),
		Code:     issue.Code,
		Message:  issue.Message,
		Kind:     string(issue.Kind),
		Record:   issue.Record,
		Field:    issue.Field,
	}
}

func entityOutput(e *model.Entity) EntityOutput {
	out := EntityOutput{
		ID:              e.Key(),
		Name:            e.Name,
		Category:        string(e.Category),
		Description:     e.Description,
		ParentEntities:  append([]string{}, e.ParentEntities...),
		LinkedEntities:  append([]string{}, e.LinkedEntities...),
		Provenance:      string(e.Provenance),
		SyncStatus:      string(e.SyncStatus),
		CampaignID:      e.CampaignID,
		ModifiedLocally: e.ModifiedLocally.UTC().Format(time.RFC3339),
	}
	if e.RemoteID != out.ID {
		out.RemoteID = e.RemoteID
	}
	if len(e.Attributes) > 0 {
		out.Attributes = make(map[string]string, len(e.Attributes))
		for _, attr := range e.Attributes {
			out.Attributes[attr.Key] = attr.Value
		}
	}
	return out
}

func changeSetOutput(c model.ChangeSet) ChangeSetOutput {
	return ChangeSetOutput{
		Added:    append([]string{}, c.Added...),
		Modified: append([]string{}, c.Modified...),
		Deleted:  append([]string{}, c.Deleted...),
	}
}
