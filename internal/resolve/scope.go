package resolve

import "github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"

// CampaignScopes lists the campaigns present in data, preferred first. A
// store with no campaign ids yields a single unscoped entry.
func CampaignScopes(data *model.Chronicle, preferred string) []string {
	scopes := []string{}
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			scopes = append(scopes, id)
		}
	}
	add(preferred)
	for _, c := range data.Campaigns {
		add(c.ID)
	}
	for i := range data.Entities {
		add(data.Entities[i].CampaignID)
	}
	for i := range data.Thoughts {
		add(data.Thoughts[i].CampaignID)
	}
	if len(scopes) == 0 {
		scopes = append(scopes, "")
	}
	return scopes
}
