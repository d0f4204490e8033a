package classifier

import (
	"fmt"
	"strings"

	"leadscout/pkg/config"
)

// Rubric is the qualification brief rendered into the system prompt
type Rubric struct {
	Product       string
	IdealCustomer []string
	Niche         []string
	Signals       []string
	BudgetSignals []string
	ValueProps    []string
}

// RubricFromConfig copies the configured criteria
func RubricFromConfig(cfg config.RubricConfig) Rubric {
	return Rubric{
		Product:       cfg.Product,
		IdealCustomer: cfg.IdealCustomer,
		Niche:         cfg.Niche,
		Signals:       cfg.Signals,
		BudgetSignals: cfg.BudgetSignals,
		ValueProps:    cfg.ValueProps,
	}
}

// SystemPrompt renders the rubric. Empty sections are left out.
func (r Rubric) SystemPrompt() string {
	var sb strings.Builder

	product := r.Product
	if product == "" {
		product = "our service"
	}
	fmt.Fprintf(&sb, "You are a lead qualification assistant for %s.\n", product)
	sb.WriteString("Analyze the following Reddit post and determine if the author would be a good candidate for our service.\n")

	writeList(&sb, "Our Ideal Customer Profile (ICP):", r.IdealCustomer, false)
	writeList(&sb, "Our Niche:", r.Niche, false)
	writeList(&sb, "Look for these signals:", r.Signals, true)
	writeList(&sb, "Budget Qualification Signals:", r.BudgetSignals, false)
	writeList(&sb, "Our service helps users:", r.ValueProps, false)

	sb.WriteString("\nReturn a JSON response with:\n")
	sb.WriteString("{\n  \"isQualified\": boolean,\n  \"analysis\": string,\n  \"reason\": string\n}")
	return sb.String()
}

func writeList(sb *strings.Builder, heading string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(heading)
	sb.WriteString("\n")
	for i, item := range items {
		if numbered {
			fmt.Fprintf(sb, "%d. %s\n", i+1, item)
		} else {
			fmt.Fprintf(sb, "- %s\n", item)
		}
	}
}
