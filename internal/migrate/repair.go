package migrate

import (
	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/resolve"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/validate"
)

// validView is the typed view of the records that passed validation.
func validView(doc *model.Document, checked validate.DocumentResult) *model.View {
	exclude := make(map[model.Kind][]int, len(checked.Batches))
	for kind, batch := range checked.Batches {
		exclude[kind] = batch.InvalidAt
	}
	return model.NewView(doc, exclude)
}

// repairReferences runs reference repair once per campaign found in the
// store. The configured campaign goes first so unscoped records attach to it.
func repairReferences(data *model.Chronicle, identity model.Identity, logger *zap.Logger, opts ...resolve.Option) *resolve.RepairReport {
	total := &resolve.RepairReport{Orphans: []resolve.OrphanedReferences{}, Created: []string{}}
	for _, campaignID := range resolve.CampaignScopes(data, identity.CampaignID) {
		report := resolve.ValidateAndRepairEntityReferences(data, campaignID, identity.UserID, logger, opts...)
		total.Orphans = append(total.Orphans, report.Orphans...)
		total.TotalOrphans += report.TotalOrphans
		total.Created = append(total.Created, report.Created...)
	}
	return total
}
