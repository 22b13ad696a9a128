// Package catalog holds the static permit-type checklist templates and the
// county list used to validate new permit packages.
package catalog

import (
	"errors"
	"strings"
)

// ErrUnknownPermitType is returned for a key that is not in the catalog.
var ErrUnknownPermitType = errors.New("unknown permit type")

// TemplateItem is one entry of a checklist template.
type TemplateItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// PermitTypeTemplate describes a permit type and its ordered checklist.
type PermitTypeTemplate struct {
	Key         string         `json:"key"`
	Label       string         `json:"label"`
	Description string         `json:"description"`
	Items       []TemplateItem `json:"items"`
}

// PermitTypeSummary is the value/label pair used by type pickers.
type PermitTypeSummary struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type typeDef struct {
	key         string
	label       string
	description string
	items       []string
}

// Catalog order is the order types are listed to clients.
var types = []typeDef{
	{
		key:         "mobile-home",
		label:       "Mobile Home",
		description: "Installation of a new or replacement mobile/manufactured home.",
		items: []string{
			"Site plan approval",
			"Foundation inspection",
			"Electrical hookup verification",
			"Plumbing connections check",
			"Tie-down system inspection",
			"Final occupancy inspection",
		},
	},
	{
		key:         "modular-home",
		label:       "Modular Home",
		description: "Installation of a new or replacement modular home.",
		items: []string{
			"Foundation permit",
			"Modular unit delivery approval",
			"Electrical rough-in inspection",
			"Plumbing rough-in inspection",
			"HVAC installation check",
			"Final building inspection",
			"Certificate of occupancy",
		},
	},
	{
		key:         "shed",
		label:       "Shed Permit",
		description: "Construction of accessory storage structures.",
		items: []string{
			"Setback requirements verification",
			"Foundation/slab inspection",
			"Structural framing check",
			"Roofing inspection",
			"Final inspection",
		},
	},
	{
		key:         "addition",
		label:       "Home Addition",
		description: "Construction of additions to existing residential structures.",
		items: []string{
			"Building permit application",
			"Structural plans review",
			"Foundation inspection",
			"Framing inspection",
			"Electrical rough-in",
			"Plumbing rough-in",
			"Insulation inspection",
			"Drywall inspection",
			"Final inspection",
		},
	},
	{
		key:         "hvac",
		label:       "HVAC Permit",
		description: "Installation or replacement of heating, ventilation, and air conditioning systems.",
		items: []string{
			"HVAC system design review",
			"Ductwork installation inspection",
			"Equipment mounting verification",
			"Electrical connections check",
			"Gas line connections (if applicable)",
			"System startup and testing",
			"Final inspection and approval",
		},
	},
	{
		key:         "electrical",
		label:       "Electrical Permit",
		description: "Installation or modification of electrical systems.",
		items: []string{
			"Electrical plans review",
			"Rough-in electrical inspection",
			"Panel installation verification",
			"Outlet and switch installation",
			"GFCI and AFCI compliance check",
			"Final electrical inspection",
			"Certificate of completion",
		},
	},
	{
		key:         "plumbing",
		label:       "Plumbing Permit",
		description: "Installation or modification of plumbing systems.",
		items: []string{
			"Plumbing plans review",
			"Rough-in plumbing inspection",
			"Water line installation",
			"Drain line installation",
			"Fixture installation verification",
			"Pressure testing",
			"Final plumbing inspection",
		},
	},
}

// Items marked "(if applicable)" are optional.
const optionalMarker = "(if applicable)"

// Types lists every permit type in catalog order.
func Types() []PermitTypeSummary {
	out := make([]PermitTypeSummary, 0, len(types))
	for _, t := range types {
		out = append(out, PermitTypeSummary{Value: t.key, Label: t.label})
	}
	return out
}

// Template returns a copy of the checklist template for key.
func Template(key string) (PermitTypeTemplate, error) {
	for _, t := range types {
		if t.key != key {
			continue
		}
		items := make([]TemplateItem, 0, len(t.items))
		for _, title := range t.items {
			items = append(items, TemplateItem{
				Title:       title,
				Description: title,
				Required:    !strings.Contains(title, optionalMarker),
			})
		}
		return PermitTypeTemplate{
			Key:         t.key,
			Label:       t.label,
			Description: t.description,
			Items:       items,
		}, nil
	}
	return PermitTypeTemplate{}, ErrUnknownPermitType
}

// IsPermitType reports whether key names a catalog entry.
func IsPermitType(key string) bool {
	_, err := Template(key)
	return err == nil
}
