package renderer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/monitoria-simple/models"
)

// Signature is one signature block printed on a project document
type Signature struct {
	Role     models.Role
	SignerID string
	SignedAt time.Time
	// Digest identifies the signature blob supplied by the signer
	Digest string
}

// ProjectDocument is the input for rendering a project proposal
type ProjectDocument struct {
	Project    models.Project
	Signatures []Signature
}

// MinutesDocument is the input for rendering selection minutes
type MinutesDocument struct {
	Minutes      models.Minutes
	ProjectTitle string
	SignerID     string
	SignedAt     time.Time
}

// Renderer turns domain snapshots into stored artefacts. Implementations
// must be pure: the same input always yields the same bytes.
type Renderer interface {
	RenderProject(doc ProjectDocument) ([]byte, error)
	RenderMinutes(doc MinutesDocument) ([]byte, error)
}

// TextRenderer lays documents out as plain-text tables
type TextRenderer struct{}

// NewTextRenderer creates a plain-text renderer
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// RenderProject renders the proposal with its signature blocks
func (r *TextRenderer) RenderProject(doc ProjectDocument) ([]byte, error) {
	p := doc.Project
	if p.ID == "" {
		return nil, fmt.Errorf("project id is required")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PROJETO DE MONITORIA\n%s\n\n", p.Title)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendRows([]table.Row{
		{"Projeto", p.ID},
		{"Professor", p.ProfessorID},
		{"Departamento", p.DepartmentID},
		{"Período", fmt.Sprintf("%d/%s", p.Year, p.Term)},
		{"Tipo", p.ProposalType},
		{"Bolsas solicitadas", p.ScholarshipsRequested},
		{"Voluntários solicitados", p.VolunteersRequested},
		{"Bolsas concedidas", grantedLabel(p.ScholarshipsGranted)},
		{"Situação", p.Status},
	})
	b.WriteString(tw.Render())
	b.WriteString("\n")

	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Description)
	}

	if len(doc.Signatures) > 0 {
		sig := table.NewWriter()
		sig.SetStyle(table.StyleLight)
		sig.AppendHeader(table.Row{"Assinatura", "Signatário", "Data", "Resumo"})
		for _, s := range doc.Signatures {
			sig.AppendRow(table.Row{s.Role, s.SignerID, s.SignedAt.UTC().Format(time.RFC3339), s.Digest})
		}
		b.WriteString("\n")
		b.WriteString(sig.Render())
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// RenderMinutes renders the ranked outcome of a selection
func (r *TextRenderer) RenderMinutes(doc MinutesDocument) ([]byte, error) {
	m := doc.Minutes
	if m.ID == "" {
		return nil, fmt.Errorf("minutes id is required")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ATA DE SELEÇÃO DE MONITORIA\n%s\n\n", doc.ProjectTitle)
	fmt.Fprintf(&b, "Ata: %s\nModo: %s\nGerada em: %s\n",
		m.ID, m.Mode, m.GeneratedAt.UTC().Format(time.RFC3339))
	if m.Location != "" {
		fmt.Fprintf(&b, "Local: %s\n", m.Location)
	}
	b.WriteString("\n")

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Inscrição", "Estudante", "Nota", "Resultado"})
	for _, e := range m.Entries {
		tw.AppendRow(table.Row{e.Rank, e.ApplicationID, e.StudentID, scoreLabel(e.Score), e.Outcome})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	b.WriteString(tw.Render())
	b.WriteString("\n")

	if m.Notes != "" {
		fmt.Fprintf(&b, "\nObservações: %s\n", m.Notes)
	}
	fmt.Fprintf(&b, "\nAssinado por %s em %s\n", doc.SignerID, doc.SignedAt.UTC().Format(time.RFC3339))
	return []byte(b.String()), nil
}

func grantedLabel(granted *int) string {
	if granted == nil {
		return "-"
	}
	return strconv.Itoa(*granted)
}

func scoreLabel(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 2, 64)
}
